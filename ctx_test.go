package accounts_test

import (
	"context"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContext(t *testing.T) {
	user := &accounts.User{ID: uuid.New()}

	ctx := accounts.WithContext(context.Background(), user)

	found, ok := accounts.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, user, found)

	_, ok = accounts.FromContext(context.Background())
	assert.False(t, ok)
}

func TestClaimsContext(t *testing.T) {
	claims := &accounts.JWTClaims{UID: uuid.NewString(), UserRole: accounts.RoleMember}

	ctx := accounts.WithClaimsContext(context.Background(), claims)

	found, ok := accounts.GetClaims(ctx)
	require.True(t, ok)
	assert.Equal(t, claims.UserID(), found.UserID())
	assert.Equal(t, accounts.RoleMember, found.Role())

	_, ok = accounts.GetClaims(context.Background())
	assert.False(t, ok)
}
