package accounts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PendingUsers stages registrations for the alternate two-phase flow.
// Expired rows are rejected on read and purged lazily by DeleteExpired;
// nothing sweeps them eagerly.
type PendingUsers interface {
	repository.Repository[*PendingUser]

	GetValidByEmail(ctx context.Context, email string) (*PendingUser, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type pendingUsers struct {
	repository.Repository[*PendingUser]
	db    *bun.DB
	clock Clock
}

var _ PendingUsers = (*pendingUsers)(nil)

type PendingUsersOption func(*pendingUsers)

// WithPendingUsersClock overrides the clock used for validity checks.
func WithPendingUsersClock(clock Clock) PendingUsersOption {
	return func(p *pendingUsers) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func NewPendingUsersRepository(db *bun.DB, opts ...PendingUsersOption) PendingUsers {
	repo := repository.NewRepository[*PendingUser](db, repository.ModelHandlers[*PendingUser]{
		NewRecord: func() *PendingUser { return &PendingUser{} },
		GetID: func(p *PendingUser) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *PendingUser, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoPending := &pendingUsers{
		Repository: repo,
		db:         db,
		clock:      SystemClock(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoPending)
		}
	}

	return repoPending
}

func (a *pendingUsers) GetValidByEmail(ctx context.Context, email string) (*PendingUser, error) {
	record := &PendingUser{}
	err := a.db.NewSelect().
		Model(record).
		Where("LOWER(?TableAlias.email) = ?", NormalizeEmail(email)).
		Order("created_at DESC").
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

	if !record.IsValidAt(a.clock.Now()) {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"email":   NormalizeEmail(email),
				"expired": true,
			})
	}

	return record, nil
}

func (a *pendingUsers) DeleteExpired(ctx context.Context) (int64, error) {
	cutoff := a.clock.Now().Add(-PendingUserValidityWindow)
	res, err := a.db.NewDelete().
		Model((*PendingUser)(nil)).
		Where("?TableAlias.created_at < ?", cutoff).
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
