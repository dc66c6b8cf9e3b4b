package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name          string
		password      string
		shouldFail    bool
		errorContains string
	}{
		{
			name:       "valid password",
			password:   "correct horse battery",
			shouldFail: false,
		},
		{
			name:          "too short",
			password:      "Pass@1",
			shouldFail:    true,
			errorContains: "at least 8",
		},
		{
			name:          "too long for bcrypt",
			password:      strings.Repeat("a", 73),
			shouldFail:    true,
			errorContains: "at most 72",
		},
		{
			name:       "exactly 72 bytes",
			password:   strings.Repeat("ab", 36),
			shouldFail: false,
		},
		{
			name:          "common password rejected",
			password:      "Password123",
			shouldFail:    true,
			errorContains: "too common",
		},
		{
			name:          "whitespace only",
			password:      "          ",
			shouldFail:    true,
			errorContains: "whitespace",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if !tt.shouldFail {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)

			var pve *PasswordValidationError
			assert.ErrorAs(t, err, &pve)
		})
	}
}

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	ok, err := h.Verify("s3cret-pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong-pass", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_EmptyPassword(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	_, err := h.Hash("")
	assert.Error(t, err)
}

func TestBcryptHasher_MalformedHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	ok, err := h.Verify("whatever", "not-a-bcrypt-hash")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestNewBcryptHasher_CostBounds(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(0).Cost)
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(99).Cost)
	assert.Equal(t, 10, NewBcryptHasher(10).Cost)
}
