package accounts

import (
	"context"
)

// ResetIssue is the material produced when a reset is initialized. For
// the database variant Identifier is the account email; for the signed
// variant it is the encoded user id. Issued is false when no account
// matched, but callers get the same shape either way so responses never
// reveal whether an email exists.
type ResetIssue struct {
	Identifier string
	Token      string
	Issued     bool
}

// ResetCredential is what a caller hands back to finalize a reset.
type ResetCredential struct {
	Identifier string
	Token      string
}

// PasswordResetService abstracts the two reset schemes behind a single
// capability so call sites never branch on the variant.
type PasswordResetService interface {
	Initialize(ctx context.Context, email string) (*ResetIssue, error)
	Finalize(ctx context.Context, credential ResetCredential, newPassword string) error
}

// NewPasswordResetService selects an implementation from configuration.
// Unknown or empty variants fall back to the database scheme.
func NewPasswordResetService(cfg Config, repo RepositoryManager) PasswordResetService {
	switch cfg.GetPasswordResetVariant() {
	case ResetVariantSigned:
		return NewSignedResetService(repo, []byte(cfg.GetSigningKey()))
	default:
		return NewDatabaseResetService(repo)
	}
}
