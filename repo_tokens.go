package accounts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ResetTokenLength matches the opaque value length of the original
// token scheme.
const ResetTokenLength = 20

// Tokens manages database-backed reset tokens. The upsert keyed on
// (user_id, token_type) guarantees at most one live token per purpose
// per user; ConsumeTx is the compare-and-delete that makes redemption
// single-use under concurrency.
type Tokens interface {
	repository.Repository[*Token]

	IssueOrReplace(ctx context.Context, user *User, tokenType TokenType) (*Token, error)
	IssueOrReplaceTx(ctx context.Context, tx bun.IDB, user *User, tokenType TokenType) (*Token, error)
	Lookup(ctx context.Context, email, value string, tokenType TokenType) (*Token, error)
	LookupTx(ctx context.Context, tx bun.IDB, email, value string, tokenType TokenType) (*Token, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, value string) (bool, error)
	DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type tokens struct {
	repository.Repository[*Token]
	db    *bun.DB
	clock Clock
}

var (
	_ Tokens                        = (*tokens)(nil)
	_ repository.Repository[*Token] = (*tokens)(nil)
)

type TokensOption func(*tokens)

// WithTokensClock overrides the clock used to stamp created_at.
func WithTokensClock(clock Clock) TokensOption {
	return func(t *tokens) {
		if clock != nil {
			t.clock = clock
		}
	}
}

func NewTokensRepository(db *bun.DB, opts ...TokensOption) Tokens {
	repo := repository.NewRepository[*Token](db, repository.ModelHandlers[*Token]{
		NewRecord: func() *Token { return &Token{} },
		GetID: func(t *Token) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *Token, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	repoTokens := &tokens{
		Repository: repo,
		db:         db,
		clock:      SystemClock(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoTokens)
		}
	}

	return repoTokens
}

func (a *tokens) IssueOrReplace(ctx context.Context, user *User, tokenType TokenType) (*Token, error) {
	return a.IssueOrReplaceTx(ctx, a.db, user, tokenType)
}

func (a *tokens) IssueOrReplaceTx(ctx context.Context, tx bun.IDB, user *User, tokenType TokenType) (*Token, error) {
	value, err := RandomTokenString(ResetTokenLength)
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	record := &Token{
		ID:        uuid.New(),
		UserID:    &user.ID,
		Token:     value,
		TokenType: tokenType,
		CreatedAt: &now,
	}

	// Upsert keyed on (user_id, token_type): the previous value is
	// replaced and the validity window restarts.
	_, err = tx.NewInsert().
		Model(record).
		On("CONFLICT (user_id, token_type) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)

	if err != nil {
		return nil, err
	}

	return a.LookupTx(ctx, tx, user.Email, value, tokenType)
}

func (a *tokens) Lookup(ctx context.Context, email, value string, tokenType TokenType) (*Token, error) {
	return a.LookupTx(ctx, a.db, email, value, tokenType)
}

// LookupTx resolves a token by exact value, scoped by type and the
// owning user's email. Token values are matched case sensitively.
func (a *tokens) LookupTx(ctx context.Context, tx bun.IDB, email, value string, tokenType TokenType) (*Token, error) {
	record := &Token{}
	err := tx.NewSelect().
		Model(record).
		Relation("User").
		Where("?TableAlias.token = ?", value).
		Where("?TableAlias.token_type = ?", tokenType).
		Where("LOWER(\"user\".email) = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"token_type": tokenType,
				})
		}
		return nil, err
	}

	return record, nil
}

// ConsumeTx deletes the token only if both id and value still match what
// the caller validated. A false return means another redemption already
// spent the token.
func (a *tokens) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, value string) (bool, error) {
	res, err := tx.NewDelete().
		Model((*Token)(nil)).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.token = ?", value).
		Exec(ctx)

	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

func (a *tokens) DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Token)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)
	return err
}
