package service_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pageza/clientpulse/backend/internal/service"
	"github.com/pageza/clientpulse/backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := service.NewTokenService("test-secret")
	userID := uuid.New()

	token, err := svc.GenerateToken(&types.TokenClaims{UserID: userID, Email: "admin@example.com", Role: "admin"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.True(t, claims.IsAdmin())
}

func TestTokenService_Rejects(t *testing.T) {
	svc := service.NewTokenService("test-secret")

	other, err := service.NewTokenService("other-secret").GenerateToken(&types.TokenClaims{UserID: uuid.New()})
	require.NoError(t, err)
	_, err = svc.ValidateToken(other)
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	expired, err := svc.GenerateToken(&types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
		UserID:           uuid.New(),
	})
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, service.ErrTokenExpired)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}
