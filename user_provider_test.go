package accounts_test

import (
	"context"
	"errors"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func providerUser(t *testing.T, password string) *accounts.User {
	t.Helper()
	hash, err := accounts.HashPassword(password)
	require.NoError(t, err)

	return &accounts.User{
		ID:           uuid.New(),
		Username:     "pepe.rone",
		Email:        "pepe.rone@example.com",
		PasswordHash: hash,
		IsActive:     true,
	}
}

func TestVerifyIdentity(t *testing.T) {
	ctx := context.Background()
	user := providerUser(t, "super-secret-password")

	t.Run("valid credentials", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByIdentifier", ctx, "pepe.rone@example.com").Return(user, nil)
		store.On("TrackSuccessfulLogin", ctx, user).Return(nil)

		provider := accounts.NewUserProvider(store).WithLogger(testLogger{})

		identity, err := provider.VerifyIdentity(ctx, "pepe.rone@example.com", "super-secret-password")
		require.NoError(t, err)
		require.NotNil(t, identity)

		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, "pepe.rone", identity.Username())
		assert.Equal(t, "pepe.rone@example.com", identity.Email())
		assert.Equal(t, accounts.RoleMember, identity.Role())

		store.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByIdentifier", ctx, "pepe.rone@example.com").Return(user, nil)

		provider := accounts.NewUserProvider(store).WithLogger(testLogger{})

		_, err := provider.VerifyIdentity(ctx, "pepe.rone@example.com", "not-the-password")
		require.Error(t, err)
		assert.ErrorIs(t, err, accounts.ErrMismatchedHashAndPassword)

		store.AssertNotCalled(t, "TrackSuccessfulLogin", mock.Anything, mock.Anything)
	})

	t.Run("unknown account reads like a wrong password", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByIdentifier", ctx, "ghost@example.com").Return(nil, repository.NewRecordNotFound())

		provider := accounts.NewUserProvider(store).WithLogger(testLogger{})

		_, err := provider.VerifyIdentity(ctx, "ghost@example.com", "whatever")
		require.Error(t, err)
		assert.ErrorIs(t, err, accounts.ErrMismatchedHashAndPassword)
	})

	t.Run("store failure is not a credential error", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByIdentifier", ctx, "pepe.rone@example.com").Return(nil, errors.New("connection refused"))

		provider := accounts.NewUserProvider(store).WithLogger(testLogger{})

		_, err := provider.VerifyIdentity(ctx, "pepe.rone@example.com", "super-secret-password")
		require.Error(t, err)
		assert.NotErrorIs(t, err, accounts.ErrMismatchedHashAndPassword)
	})

	t.Run("tracking failure does not block login", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByIdentifier", ctx, "pepe.rone@example.com").Return(user, nil)
		store.On("TrackSuccessfulLogin", ctx, user).Return(errors.New("update failed"))

		provider := accounts.NewUserProvider(store).WithLogger(testLogger{})

		identity, err := provider.VerifyIdentity(ctx, "pepe.rone@example.com", "super-secret-password")
		require.NoError(t, err)
		assert.NotNil(t, identity)
	})

	t.Run("custom validator rejects", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByIdentifier", ctx, "pepe.rone@example.com").Return(user, nil)
		store.On("TrackSuccessfulLogin", ctx, user).Return(nil)

		provider := accounts.NewUserProvider(store).WithLogger(testLogger{})
		provider.Validator = func(u *accounts.User) error {
			return errors.New("account quarantined")
		}

		_, err := provider.VerifyIdentity(ctx, "pepe.rone@example.com", "super-secret-password")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "account quarantined")
	})
}

func TestFindIdentityByIdentifier(t *testing.T) {
	ctx := context.Background()
	user := providerUser(t, "super-secret-password")

	t.Run("found by id", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByIdentifier", ctx, user.ID.String()).Return(user, nil)

		provider := accounts.NewUserProvider(store).WithLogger(testLogger{})

		identity, err := provider.FindIdentityByIdentifier(ctx, user.ID.String())
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
	})

	t.Run("not found", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByIdentifier", ctx, "ghost@example.com").Return(nil, repository.NewRecordNotFound())

		provider := accounts.NewUserProvider(store).WithLogger(testLogger{})

		_, err := provider.FindIdentityByIdentifier(ctx, "ghost@example.com")
		assert.Error(t, err)
	})
}

func TestIdentityRoles(t *testing.T) {
	member := accounts.NewIdentityFromUser(&accounts.User{ID: uuid.New(), IsActive: true})
	assert.Equal(t, accounts.RoleMember, member.Role())

	staff := accounts.NewIdentityFromUser(&accounts.User{ID: uuid.New(), IsStaff: true})
	assert.Equal(t, accounts.RoleStaff, staff.Role())
}
