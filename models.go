package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenType discriminates persisted token purposes
type TokenType = string

const (
	// TokenTypePasswordReset is the only token purpose currently defined
	TokenTypePasswordReset TokenType = "PASSWORD_RESET"
)

// TokenValidityWindow is how long a database reset token stays
// redeemable after issuance. The cutoff is exact: a token is valid at
// created_at + 20m and invalid one second later.
const TokenValidityWindow = 20 * time.Minute

// PendingUserValidityWindow bounds the staging record lifetime.
const PendingUserValidityWindow = 20 * time.Minute

// User is the authoritative account record. Email and mobile number are
// globally unique; the password is only ever stored hashed. The OTP
// fields hold in-flight verification codes and are cleared on success.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username       string     `bun:"username,notnull" json:"username,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	MobileNumber   string     `bun:"mobile_number,notnull,unique" json:"mobile_number,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"password_hash,omitempty"`
	IsActive       bool       `bun:"is_active" json:"is_active,omitempty"`
	IsStaff        bool       `bun:"is_staff" json:"is_staff,omitempty"`
	EmailVerified  bool       `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	MobileVerified bool       `bun:"is_mobile_verified" json:"is_mobile_verified,omitempty"`
	EmailOTP       *string    `bun:"email_otp,nullzero" json:"-"`
	MobileOTP      *string    `bun:"mobile_otp,nullzero" json:"-"`
	LoggedInAt     *time.Time `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// IsVerified reports whether both contact channels have been proven.
func (u *User) IsVerified() bool {
	return u.EmailVerified && u.MobileVerified
}

// HasPendingOTP reports whether any verification code is outstanding.
func (u *User) HasPendingOTP() bool {
	return u.EmailOTP != nil || u.MobileOTP != nil
}

// MatchesOTP accepts a code proving either channel. The combined gate is
// deliberate: one correct code marks both channels verified.
func (u *User) MatchesOTP(code string) bool {
	if code == "" {
		return false
	}
	if u.EmailOTP != nil && *u.EmailOTP == code {
		return true
	}
	if u.MobileOTP != nil && *u.MobileOTP == code {
		return true
	}
	return false
}

// Token is a database-backed password reset token. At most one live
// token exists per (user, token_type); issuing a new one replaces the
// previous value and restarts the validity window.
type Token struct {
	bun.BaseModel `bun:"table:tokens,alias:tok"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,notnull" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Token         string     `bun:"token,notnull" json:"token,omitempty"`
	TokenType     TokenType  `bun:"token_type,notnull" json:"token_type,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// IsValidAt checks the validity window against the supplied instant.
func (t *Token) IsValidAt(now time.Time) bool {
	if t == nil || t.CreatedAt == nil {
		return false
	}
	return now.Sub(*t.CreatedAt) <= TokenValidityWindow
}

// PendingUser stages a registration attempt before a full User row
// exists. It is not wired into the active register flow; the entity is
// kept for the alternate staged-registration path.
type PendingUser struct {
	bun.BaseModel    `bun:"table:pending_users,alias:pnd"`
	ID               uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email            string     `bun:"email,notnull" json:"email,omitempty"`
	PasswordHash     string     `bun:"password_hash,notnull" json:"password_hash,omitempty"`
	VerificationCode string     `bun:"verification_code,notnull" json:"verification_code,omitempty"`
	CreatedAt        *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// IsValidAt reports whether the staging record is still redeemable.
func (p *PendingUser) IsValidAt(now time.Time) bool {
	if p == nil || p.CreatedAt == nil {
		return false
	}
	return now.Sub(*p.CreatedAt) <= PendingUserValidityWindow
}
