package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, version, err := HashPassword("password123")
	require.NoError(t, err)
	assert.Equal(t, HashVersionBcrypt, version)
	assert.NotContains(t, hash, "password123")

	assert.NoError(t, VerifyPassword(hash, "password123"))
	assert.Error(t, VerifyPassword(hash, "password124"))
}

func TestHashPasswordEnforcesMinimumLength(t *testing.T) {
	_, _, err := HashPassword("seven77")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}
