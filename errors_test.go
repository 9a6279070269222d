package accounts_test

import (
	"errors"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestIsTokenExpiredError(t *testing.T) {
	assert.False(t, accounts.IsTokenExpiredError(nil))
	assert.True(t, accounts.IsTokenExpiredError(accounts.ErrTokenExpired))
	assert.False(t, accounts.IsTokenExpiredError(errors.New("something else")))
}

func TestIsMalformedError(t *testing.T) {
	assert.False(t, accounts.IsMalformedError(nil))
	assert.True(t, accounts.IsMalformedError(accounts.ErrTokenMalformed))
	assert.True(t, accounts.IsMalformedError(errors.New("missing or malformed JWT")))
	assert.False(t, accounts.IsMalformedError(errors.New("something else")))
}
