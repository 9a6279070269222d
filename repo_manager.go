package accounts

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() Users
	Tokens() Tokens
	PendingUsers() PendingUsers
}

type mngr struct {
	db           *bun.DB
	users        Users
	tokens       Tokens
	pendingUsers PendingUsers
}

type ManagerOption func(*mngr)

// WithManagerClock threads a shared clock through the token and pending
// user repositories.
func WithManagerClock(clock Clock) ManagerOption {
	return func(m *mngr) {
		if clock == nil {
			return
		}
		m.tokens = NewTokensRepository(m.db, WithTokensClock(clock))
		m.pendingUsers = NewPendingUsersRepository(m.db, WithPendingUsersClock(clock))
	}
}

func NewRepositoryManager(db *bun.DB, opts ...ManagerOption) RepositoryManager {
	m := &mngr{
		db:           db,
		users:        NewUsersRepository(db),
		tokens:       NewTokensRepository(db),
		pendingUsers: NewPendingUsersRepository(db),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.tokens == nil {
		return errors.New("repository tokens should be initialized")
	}

	if m.pendingUsers == nil {
		return errors.New("repository pendingUsers should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Tokens() Tokens {
	return m.tokens
}

func (m mngr) PendingUsers() PendingUsers {
	return m.pendingUsers
}
