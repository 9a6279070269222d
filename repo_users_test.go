package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pepe.Rone@Example.com", "pepe.rone@example.com"},
		{"  pepe.rone@example.com  ", "pepe.rone@example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, accounts.NormalizeEmail(tt.in))
	}
}

func TestNormalizeMobileNumber(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already E.164", "+14155550100", "+14155550100"},
		{"spaced international", "+1 415 555 0100", "+14155550100"},
		{"no country prefix kept as is", "4155550100", "4155550100"},
		{"trimmed", "  +14155550100  ", "+14155550100"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, accounts.NormalizeMobileNumber(tt.in))
		})
	}
}
