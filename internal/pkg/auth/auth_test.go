package auth

import (
	"testing"
	"time"

	"github.com/campusgpt/admission/internal/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *JWTService {
	return NewJWTService(JWTConfig{SecretKey: "secret", AccessTokenExp: time.Hour, TokenIssuer: "admission-test"})
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestService()
	staff := &models.StaffUser{ID: 7, Email: "officer@superior.edu.pk", Role: models.RoleOfficer}

	token, expiresIn, err := svc.GenerateAccessToken(staff)
	require.NoError(t, err)
	assert.Equal(t, 3600, expiresIn)

	claims, err := svc.ValidateAndExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.StaffID)
	assert.Equal(t, "OFFICER", claims.Role)
}

func TestValidate_Expired(t *testing.T) {
	svc := newTestService()
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := svc.GenerateAccessToken(&models.StaffUser{ID: 1, Email: "a@b.c"})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_WrongSecret(t *testing.T) {
	token, _, err := newTestService().GenerateAccessToken(&models.StaffUser{ID: 1, Email: "a@b.c"})
	require.NoError(t, err)

	other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour, TokenIssuer: "admission-test"})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = ExtractBearerToken("")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("Admin123!")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "Admin123!"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
