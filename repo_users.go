package accounts

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

var ResetUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"is_email_verified" = TRUE,
	"password_hash" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

var MarkUserVerifiedSQL = `UPDATE "users" AS "usr"
SET
	"is_email_verified" = TRUE,
	"is_mobile_verified" = TRUE,
	"email_otp" = NULL,
	"mobile_otp" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error)
	EmailExistsTx(ctx context.Context, tx bun.IDB, email string) (bool, error)
	MobileExistsTx(ctx context.Context, tx bun.IDB, mobile string) (bool, error)

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	StoreOTPsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, emailOTP, mobileOTP string) error
	MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error

	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("LOWER(?TableAlias.email) = ?", NormalizeEmail(email)).
		Where("?TableAlias.deleted_at IS NULL").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": NormalizeEmail(email),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier)
}

// GetByIdentifierTx resolves a user by id when the identifier parses as
// a UUID, falling back to the email column otherwise. Sessions carry the
// id, login forms carry the email.
func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error) {
	trimmed := strings.TrimSpace(identifier)

	if id, err := uuid.Parse(trimmed); err == nil {
		record := &User{}
		err := tx.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", id).
			Where("?TableAlias.deleted_at IS NULL").
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				return nil, repository.NewRecordNotFound().
					WithMetadata(map[string]any{
						"identifier": trimmed,
					})
			}
			return nil, err
		}

		return record, nil
	}

	return a.GetByEmailTx(ctx, tx, trimmed)
}

func (a *users) EmailExistsTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	return tx.NewSelect().
		Model((*User)(nil)).
		Where("LOWER(?TableAlias.email) = ?", NormalizeEmail(email)).
		Where("?TableAlias.deleted_at IS NULL").
		Exists(ctx)
}

func (a *users) MobileExistsTx(ctx context.Context, tx bun.IDB, mobile string) (bool, error) {
	return tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.mobile_number = ?", NormalizeMobileNumber(mobile)).
		Where("?TableAlias.deleted_at IS NULL").
		Exists(ctx)
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) StoreOTPsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, emailOTP, mobileOTP string) error {
	_, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("email_otp = ?", emailOTP).
		Set("mobile_otp = ?", mobileOTP).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.deleted_at IS NULL").
		Exec(ctx)
	return err
}

func (a *users) MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := a.Repository.RawTx(ctx, tx, MarkUserVerifiedSQL, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	loggedInAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"loggedin_at" = ?
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}

func (a *users) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *users) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, ResetUserPasswordSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)
	record.MobileNumber = NormalizeMobileNumber(record.MobileNumber)

	// verification gates feature access, not login eligibility
	record.IsActive = true

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

// NormalizeEmail case-folds and trims an email so uniqueness checks and
// lookups agree on a canonical value.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeMobileNumber canonicalizes a phone number to E.164 when it
// parses as an international number. Values without a country prefix are
// kept as trimmed digits so uniqueness still applies to raw input.
func NormalizeMobileNumber(mobile string) string {
	trimmed := strings.TrimSpace(mobile)
	if trimmed == "" {
		return trimmed
	}

	num, err := phonenumbers.Parse(trimmed, "")
	if err != nil {
		return trimmed
	}

	return phonenumbers.Format(num, phonenumbers.E164)
}
