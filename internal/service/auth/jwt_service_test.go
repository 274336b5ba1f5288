package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchat/taskchat-api/internal/config"
)

const testSecret = "test-secret-key-thats-long-enough-for-hmac"

func newTestService(t *testing.T) *hmacJWTService {
	t.Helper()
	service, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)
	return service.(*hmacJWTService)
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	_, err := NewJWTService(config.AuthConfig{JWTSecret: "too-short"})
	assert.Error(t, err)
}

func TestGenerateAndValidateToken(t *testing.T) {
	service := newTestService(t)
	ownerID := uuid.New()

	token, err := service.GenerateToken(context.Background(), ownerID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, ownerID, claims.OwnerID)
	assert.Equal(t, ownerID.String(), claims.Subject)
	assert.False(t, claims.ExpiresAt.IsZero())
}

func TestValidateTokenExpired(t *testing.T) {
	service := newTestService(t)
	ownerID := uuid.New()

	// Issue a token in the past, beyond lifetime plus clock skew.
	service.timeFunc = func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}
	token, err := service.GenerateToken(context.Background(), ownerID)
	require.NoError(t, err)

	service.timeFunc = time.Now
	_, err = service.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWrongKey(t *testing.T) {
	service := newTestService(t)
	ownerID := uuid.New()

	token, err := service.GenerateToken(context.Background(), ownerID)
	require.NoError(t, err)

	other, err := NewJWTService(config.AuthConfig{
		JWTSecret: "a-completely-different-secret-key-value",
	})
	require.NoError(t, err)

	_, err = other.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenMalformed(t *testing.T) {
	service := newTestService(t)

	_, err := service.ValidateToken(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = service.ValidateToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
