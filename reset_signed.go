package accounts

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SignedResetTokenTTL is the absolute expiry for stateless reset
// tokens. Independent of any stored timestamp.
const SignedResetTokenTTL = 24 * time.Hour

const signedResetPurpose = "password_reset"

// SignedResetService issues self-contained reset tokens with no
// persisted state. The signing key is derived from the user's
// credential state (id, password hash, last login), so a token stops
// verifying the moment any of those change: redeeming it rewrites the
// password hash, which rotates the key and kills the token.
type SignedResetService struct {
	repo       RepositoryManager
	signingKey []byte
	ttl        time.Duration
	clock      Clock
	logger     Logger
	mailer     Mailer
}

var _ PasswordResetService = (*SignedResetService)(nil)

// NewSignedResetService creates the service with sane defaults.
func NewSignedResetService(repo RepositoryManager, signingKey []byte) *SignedResetService {
	return &SignedResetService{
		repo:       repo,
		signingKey: signingKey,
		ttl:        SignedResetTokenTTL,
		clock:      SystemClock(),
		logger:     defLogger{},
		mailer:     noopMailer{},
	}
}

// WithMailer sets the notification transport.
func (s *SignedResetService) WithMailer(mailer Mailer) *SignedResetService {
	s.mailer = normalizeMailer(mailer)
	return s
}

// WithClock overrides the clock used for issuance and expiry checks.
func (s *SignedResetService) WithClock(clock Clock) *SignedResetService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// WithLogger overrides the logger.
func (s *SignedResetService) WithLogger(logger Logger) *SignedResetService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTTL overrides the token lifetime.
func (s *SignedResetService) WithTTL(ttl time.Duration) *SignedResetService {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

type signedResetClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
}

// Issue produces the reversible user identifier encoding plus a token
// signed with the user's derived key.
func (s *SignedResetService) Issue(user *User) (string, string, error) {
	now := s.clock.Now()

	claims := &signedResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Purpose: signedResetPurpose,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.deriveUserKey(user))
	if err != nil {
		return "", "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign reset token")
	}

	uid := base64.RawURLEncoding.EncodeToString([]byte(user.ID.String()))
	return uid, signed, nil
}

// Validate resolves the encoded identifier and checks the token against
// the user's current credential state. It fails closed: decode errors,
// unknown users, signature mismatches, and expiry all collapse into the
// same generic failure.
func (s *SignedResetService) Validate(ctx context.Context, uidEncoded, token string) (*User, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uidEncoded)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}

	id, err := uuid.Parse(string(raw))
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}

	user, err := s.repo.Users().GetByID(ctx, id.String())
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}

	claims := &signedResetClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidOrExpiredToken
		}
		return s.deriveUserKey(user), nil
	}, jwt.WithTimeFunc(s.clock.Now))

	if err != nil || !parsed.Valid {
		return nil, ErrInvalidOrExpiredToken
	}

	if claims.Purpose != signedResetPurpose || claims.Subject != user.ID.String() {
		return nil, ErrInvalidOrExpiredToken
	}

	return user, nil
}

// Initialize issues a signed link for the account behind email. Missing
// accounts produce the same success-shaped response as real ones.
func (s *SignedResetService) Initialize(ctx context.Context, email string) (*ResetIssue, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	issue := &ResetIssue{}

	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return issue, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	uid, token, err := s.Issue(user)
	if err != nil {
		return nil, err
	}

	issue.Identifier = uid
	issue.Token = token
	issue.Issued = true

	job := MailJob{
		Subject:    "Your Password Reset Link",
		Recipients: []string{user.Email},
		Template:   PasswordResetTemplate,
		Data: map[string]any{
			"email": user.Email,
			"uid":   uid,
			"token": token,
		},
	}

	go func() {
		if err := s.mailer.Enqueue(context.WithoutCancel(ctx), job); err != nil {
			s.logger.Error("password reset mail dispatch error: %v", err)
		}
	}()

	return issue, nil
}

// Finalize validates the credential and replaces the password. The
// password change rotates the derived key, which invalidates the signed
// token; any stored reset tokens for the user are deleted in the same
// transaction so no older link stays redeemable.
func (s *SignedResetService) Finalize(ctx context.Context, credential ResetCredential, newPassword string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if newPassword == "" {
		return ErrNoEmptyString
	}

	user, err := s.Validate(ctx, credential.Identifier, credential.Token)
	if err != nil {
		return err
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Users().ResetPasswordTx(ctx, tx, user.ID, passwordHash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password")
		}

		if err := s.repo.Tokens().DeleteByUserTx(ctx, tx, user.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to invalidate outstanding reset tokens")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	return nil
}

// deriveUserKey binds token signatures to the user's mutable auth
// state. Any password change or login rotates the key.
func (s *SignedResetService) deriveUserKey(user *User) []byte {
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write([]byte(user.ID.String()))
	mac.Write([]byte{0})
	mac.Write([]byte(user.PasswordHash))
	mac.Write([]byte{0})
	if user.LoggedInAt != nil {
		mac.Write([]byte(strconv.FormatInt(user.LoggedInAt.UTC().Unix(), 10)))
	}
	return mac.Sum(nil)
}
