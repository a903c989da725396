package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)

	// 32 bytes, base64url without padding
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

func TestTokenPrefix(t *testing.T) {
	assert.Equal(t, "abcdefgh", TokenPrefix("abcdefghijklmnop"))
	assert.Equal(t, "short", TokenPrefix("short"))
}
