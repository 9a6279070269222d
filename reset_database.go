package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// PasswordResetTemplate is the mail template reference handed to the
// delivery transport for reset notifications.
var PasswordResetTemplate = "emails/password_reset_template.html"

// DatabaseResetService issues opaque single-use tokens persisted in the
// tokens table. Serialization per (user, token type) is pushed to the
// store: issuance is an upsert, redemption a compare-and-delete inside
// one transaction.
type DatabaseResetService struct {
	repo   RepositoryManager
	mailer Mailer
	clock  Clock
	logger Logger
}

var _ PasswordResetService = (*DatabaseResetService)(nil)

// NewDatabaseResetService creates the service with sane defaults.
func NewDatabaseResetService(repo RepositoryManager) *DatabaseResetService {
	return &DatabaseResetService{
		repo:   repo,
		mailer: noopMailer{},
		clock:  SystemClock(),
		logger: defLogger{},
	}
}

// WithMailer sets the notification transport.
func (s *DatabaseResetService) WithMailer(mailer Mailer) *DatabaseResetService {
	s.mailer = normalizeMailer(mailer)
	return s
}

// WithClock overrides the clock used for validity checks.
func (s *DatabaseResetService) WithClock(clock Clock) *DatabaseResetService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// WithLogger overrides the logger.
func (s *DatabaseResetService) WithLogger(logger Logger) *DatabaseResetService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Initialize issues (or replaces) the reset token for the account
// behind email. A missing account still yields a success-shaped
// response so the endpoint cannot be used to probe for addresses.
func (s *DatabaseResetService) Initialize(ctx context.Context, email string) (*ResetIssue, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	issue := &ResetIssue{Identifier: NormalizeEmail(email)}

	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return issue, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	token, err := s.repo.Tokens().IssueOrReplace(ctx, user, TokenTypePasswordReset)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue password reset token")
	}

	issue.Token = token.Token
	issue.Issued = true

	job := MailJob{
		Subject:    "Your Password Reset Link",
		Recipients: []string{user.Email},
		Template:   PasswordResetTemplate,
		Data: map[string]any{
			"email": user.Email,
			"token": token.Token,
		},
	}

	go func() {
		if err := s.mailer.Enqueue(context.WithoutCancel(ctx), job); err != nil {
			s.logger.Error("password reset mail dispatch error: %v", err)
		}
	}()

	return issue, nil
}

// Finalize redeems a token: the password mutation and the token delete
// happen in one transaction, and the delete is conditional on the token
// value still matching, so a token can never be spent twice.
func (s *DatabaseResetService) Finalize(ctx context.Context, credential ResetCredential, newPassword string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if newPassword == "" {
		return ErrNoEmptyString
	}

	token, err := s.repo.Tokens().Lookup(ctx, credential.Identifier, credential.Token, TokenTypePasswordReset)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrInvalidOrExpiredToken
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve password reset token")
	}

	if !token.IsValidAt(s.clock.Now()) {
		return ErrInvalidOrExpiredToken
	}

	if token.UserID == nil {
		return goerrors.New("reset token is not associated with a user", goerrors.CategoryInternal)
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Users().ResetPasswordTx(ctx, tx, *token.UserID, passwordHash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password")
		}

		consumed, err := s.repo.Tokens().ConsumeTx(ctx, tx, token.ID, token.Token)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume password reset token")
		}

		if !consumed {
			// a concurrent redemption won; roll the password change back
			return ErrInvalidOrExpiredToken
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
