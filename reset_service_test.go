package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func variantConfig(variant string) *MockConfig {
	cfg := &MockConfig{}
	cfg.On("GetSigningKey").Return("test-signing-key").Maybe()
	cfg.On("GetPasswordResetVariant").Return(variant).Maybe()
	return cfg
}

func TestNewPasswordResetService(t *testing.T) {
	repo := &MockRepositoryManager{}

	t.Run("database variant", func(t *testing.T) {
		service := accounts.NewPasswordResetService(variantConfig(accounts.ResetVariantDatabase), repo)
		assert.IsType(t, &accounts.DatabaseResetService{}, service)
	})

	t.Run("signed variant", func(t *testing.T) {
		service := accounts.NewPasswordResetService(variantConfig(accounts.ResetVariantSigned), repo)
		assert.IsType(t, &accounts.SignedResetService{}, service)
	})

	t.Run("unknown variant falls back to database", func(t *testing.T) {
		service := accounts.NewPasswordResetService(variantConfig("carrier-pigeon"), repo)
		assert.IsType(t, &accounts.DatabaseResetService{}, service)
	})

	repo.AssertNotCalled(t, "Users")
}
