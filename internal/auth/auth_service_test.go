package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, accessTTL time.Duration) *AuthService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	svc, err := NewAuthService(privPEM, pubPEM, accessTTL, time.Hour)
	require.NoError(t, err)
	return svc
}

func TestTokenPairRoundTrip(t *testing.T) {
	svc := newTestService(t, time.Minute)

	pair, err := svc.GenerateTokenPair(7, "company", true)
	require.NoError(t, err)

	access, err := svc.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(7), access.UserID)
	assert.Equal(t, "company", access.Role)
	assert.Equal(t, TokenTypeAccess, access.TokenType)
	assert.True(t, access.MustChangePassword)

	refresh, err := svc.ValidateToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, refresh.TokenType)
	assert.NotEmpty(t, refresh.ID)
	assert.False(t, refresh.MustChangePassword)
}

func TestValidateTokenRejectsExpiredAndForeign(t *testing.T) {
	svc := newTestService(t, -time.Minute)
	pair, err := svc.GenerateTokenPair(1, "candidate", false)
	require.NoError(t, err)

	_, err = svc.ValidateToken(pair.AccessToken)
	assert.Error(t, err)

	other := newTestService(t, time.Minute)
	_, err = other.ValidateToken(pair.RefreshToken)
	assert.Error(t, err)

	_, err = svc.ValidateToken("")
	assert.Error(t, err)
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := HashPassword("s3cretpass")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("s3cretpass", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))

	assert.NoError(t, CheckPasswordStrength("abcd1234"))
	assert.ErrorIs(t, CheckPasswordStrength("short1"), ErrWeakPassword)
	assert.ErrorIs(t, CheckPasswordStrength("lettersonly"), ErrWeakPassword)
	assert.ErrorIs(t, CheckPasswordStrength("1234567890"), ErrWeakPassword)

	pw, err := RandomPassword(24)
	require.NoError(t, err)
	assert.NoError(t, CheckPasswordStrength(pw))
}
