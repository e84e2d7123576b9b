package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundtrip(t *testing.T) {
	Init("test-secret")

	token, err := GenerateToken(123)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(123), userID)
}

func TestTamperedTokenRejected(t *testing.T) {
	Init("test-secret")

	token, err := GenerateToken(123)
	require.NoError(t, err)

	// Flip a character in the signature segment.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = ValidateToken(tampered)
	assert.Error(t, err)
}

func TestTokenFromOtherSecretRejected(t *testing.T) {
	Init("first-secret")
	token, err := GenerateToken(9)
	require.NoError(t, err)

	Init("second-secret")
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestGenerateWithoutSecret(t *testing.T) {
	Init("")
	_, err := GenerateToken(1)
	assert.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	Init("test-secret")
	_, err := ValidateToken("definitely.not.a-jwt")
	assert.Error(t, err)
}
