package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avery/hireflow/internal/auth"
	"github.com/avery/hireflow/internal/database/models"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := auth.NewJWTService("test-secret", time.Hour)

	userID := uuid.New()
	companyID := uuid.New()

	token, err := svc.GenerateToken(userID, companyID, "user@example.com", models.RoleHR)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, companyID, claims.CompanyID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, models.RoleHR, claims.Role)
}

func TestTokenWithoutCompany(t *testing.T) {
	svc := auth.NewJWTService("test-secret", time.Hour)

	token, err := svc.GenerateToken(uuid.New(), uuid.Nil, "free@example.com", "")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, claims.CompanyID)
	assert.Empty(t, claims.Role)
}

func TestInvalidToken(t *testing.T) {
	svc := auth.NewJWTService("test-secret", time.Hour)

	_, err := svc.ValidateToken("garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	// Token signed with a different secret.
	other := auth.NewJWTService("different-secret", time.Hour)
	token, err := other.GenerateToken(uuid.New(), uuid.Nil, "a@example.com", "")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	svc := auth.NewJWTService("test-secret", -time.Minute)

	token, err := svc.GenerateToken(uuid.New(), uuid.Nil, "a@example.com", "")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("supersecret")
	require.NoError(t, err)
	assert.NotEqual(t, "supersecret", hash)

	assert.True(t, auth.CheckPassword("supersecret", hash))
	assert.False(t, auth.CheckPassword("wrong", hash))
}
