package accounts_test

import (
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionObject(t *testing.T) {
	userID := uuid.NewString()
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	session := &accounts.SessionObject{
		UserID:   userID,
		Audience: []string{"test-audience"},
		Issuer:   "test-issuer",
		IssuedAt: &issued,
		Data:     map[string]any{"role": accounts.RoleMember},
	}

	assert.Equal(t, userID, session.GetUserID())
	assert.Equal(t, []string{"test-audience"}, session.GetAudience())
	assert.Equal(t, "test-issuer", session.GetIssuer())
	assert.Equal(t, &issued, session.GetIssuedAt())
	assert.Equal(t, accounts.RoleMember, session.GetData()["role"])

	parsed, err := session.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsed.String())
}

func TestHasUserUUID(t *testing.T) {
	assert.True(t, accounts.HasUserUUID(&accounts.SessionObject{UserID: uuid.NewString()}))
	assert.False(t, accounts.HasUserUUID(&accounts.SessionObject{UserID: "not-a-uuid"}))
	assert.False(t, accounts.HasUserUUID(nil))
}
