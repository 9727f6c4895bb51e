package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTManager(t *testing.T) {
	manager := NewJWTManager("test-secret-key-for-testing-purposes", "bharatconnect-api", 15*time.Minute)

	assert.NotNil(t, manager)
	assert.Equal(t, "bharatconnect-api", manager.audience)
	assert.Equal(t, 15*time.Minute, manager.tokenDuration)
}

func TestGenerateAccessToken_RequiresUserID(t *testing.T) {
	manager := NewJWTManager("test-secret", "bharatconnect-api", 15*time.Minute)

	token, err := manager.GenerateAccessToken("", "a@example.com")

	assert.Error(t, err)
	assert.Empty(t, token)
}

func TestValidateToken_ValidToken(t *testing.T) {
	manager := NewJWTManager("test-secret", "bharatconnect-api", 15*time.Minute)

	token, err := manager.GenerateAccessToken("firebase-uid-1", "asha@example.com")
	require.NoError(t, err)

	claims, err := manager.ValidateToken(token)

	require.NoError(t, err)
	assert.Equal(t, "firebase-uid-1", claims.UserID)
	assert.Equal(t, "asha@example.com", claims.Email)
	assert.Equal(t, "firebase-uid-1", claims.Subject)
}

func TestValidateToken_ExpiredToken(t *testing.T) {
	manager := NewJWTManager("test-secret", "bharatconnect-api", time.Nanosecond)

	token, err := manager.GenerateAccessToken("uid", "")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	claims, err := manager.ValidateToken(token)

	assert.Error(t, err)
	assert.Nil(t, claims)
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateToken_WrongSecret(t *testing.T) {
	signer := NewJWTManager("secret-a", "bharatconnect-api", time.Minute)
	verifier := NewJWTManager("secret-b", "bharatconnect-api", time.Minute)

	token, err := signer.GenerateAccessToken("uid", "")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_WrongAudience(t *testing.T) {
	signer := NewJWTManager("secret", "other-api", time.Minute)
	verifier := NewJWTManager("secret", "bharatconnect-api", time.Minute)

	token, err := signer.GenerateAccessToken("uid", "")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Malformed(t *testing.T) {
	manager := NewJWTManager("secret", "bharatconnect-api", time.Minute)

	_, err := manager.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestVerifyToken(t *testing.T) {
	manager := NewJWTManager("secret", "bharatconnect-api", time.Minute)
	token, err := manager.GenerateAccessToken("uid-7", "")
	require.NoError(t, err)

	userID, err := manager.VerifyToken(context.Background(), token)

	require.NoError(t, err)
	assert.Equal(t, "uid-7", userID)
	assert.Equal(t, "jwt", manager.Provider())
}
