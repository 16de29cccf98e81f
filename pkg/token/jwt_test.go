package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyToken(t *testing.T) {
	v := NewVerifier("secret")

	tok, err := v.IssueToken("user-123", time.Hour)
	require.NoError(t, err)

	claims, err := v.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	tok, err := NewVerifier("secret-a").IssueToken("user-123", time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier("secret-b").VerifyToken(tok)
	assert.Error(t, err)
}

func TestVerifyTokenExpired(t *testing.T) {
	v := NewVerifier("secret")

	tok, err := v.IssueToken("user-123", -time.Minute)
	require.NoError(t, err)

	_, err = v.VerifyToken(tok)
	assert.Error(t, err)
}

func TestVerifyTokenMissingSubject(t *testing.T) {
	v := NewVerifier("secret")

	claims := IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = v.VerifyToken(tok)
	assert.Error(t, err)
}

func TestVerifyTokenGarbage(t *testing.T) {
	_, err := NewVerifier("secret").VerifyToken("not-a-token")
	assert.Error(t, err)
}
