package service

import (
	"testing"
	"time"

	"qr-loyalty-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "test-access-secret-for-unit-tests"
	testRefreshSecret = "test-refresh-secret-for-unit-tests"
)

func newTestTokenService(accessTTL, refreshTTL time.Duration) *JWTTokenService {
	return NewJWTTokenService(testAccessSecret, accessTTL, testRefreshSecret, refreshTTL, "test-issuer")
}

func TestJWTTokenService_AccessRoundTrip(t *testing.T) {
	svc := newTestTokenService(15*time.Minute, time.Hour)
	accountID := uuid.New()

	tokenStr, expiresAt, err := svc.GenerateAccess(accountID, domain.RoleMerchant)
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateAccess(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, accountID, claims.AccountID)
	assert.Equal(t, domain.RoleMerchant, claims.Role)
	assert.NotEmpty(t, claims.TokenID)
}

func TestJWTTokenService_RefreshRoundTrip(t *testing.T) {
	svc := newTestTokenService(15*time.Minute, time.Hour)
	accountID := uuid.New()

	tokenStr, _, err := svc.GenerateRefresh(accountID)
	require.NoError(t, err)

	claims, err := svc.ValidateRefresh(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, accountID, claims.AccountID)
}

func TestJWTTokenService_TokensAreUnique(t *testing.T) {
	svc := newTestTokenService(15*time.Minute, time.Hour)
	accountID := uuid.New()

	a, _, err := svc.GenerateRefresh(accountID)
	require.NoError(t, err)
	b, _, err := svc.GenerateRefresh(accountID)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestJWTTokenService_TypesAreNotInterchangeable(t *testing.T) {
	svc := newTestTokenService(15*time.Minute, time.Hour)
	accountID := uuid.New()

	access, _, err := svc.GenerateAccess(accountID, domain.RoleCustomer)
	require.NoError(t, err)
	refresh, _, err := svc.GenerateRefresh(accountID)
	require.NoError(t, err)

	_, err = svc.ValidateRefresh(access)
	assert.Error(t, err, "access token must not validate as refresh")
	_, err = svc.ValidateAccess(refresh)
	assert.Error(t, err, "refresh token must not validate as access")
}

func TestJWTTokenService_SameSecretStillChecksType(t *testing.T) {
	svc := NewJWTTokenService("shared", time.Hour, "shared", time.Hour, "issuer")

	refresh, _, err := svc.GenerateRefresh(uuid.New())
	require.NoError(t, err)

	_, err = svc.ValidateAccess(refresh)
	assert.Error(t, err)
}

func TestJWTTokenService_ExpiredToken(t *testing.T) {
	svc := newTestTokenService(-1*time.Hour, -1*time.Hour)

	tokenStr, _, err := svc.GenerateAccess(uuid.New(), domain.RoleCustomer)
	require.NoError(t, err)

	_, err = svc.ValidateAccess(tokenStr)
	assert.Error(t, err, "expired token should fail validation")
}

func TestJWTTokenService_InvalidSignature(t *testing.T) {
	svc1 := NewJWTTokenService("secret-1", time.Hour, "r1", time.Hour, "issuer")
	svc2 := NewJWTTokenService("secret-2", time.Hour, "r2", time.Hour, "issuer")

	tokenStr, _, err := svc1.GenerateAccess(uuid.New(), domain.RoleAdmin)
	require.NoError(t, err)

	_, err = svc2.ValidateAccess(tokenStr)
	assert.Error(t, err, "token signed with different secret should fail")
}

func TestJWTTokenService_WrongIssuer(t *testing.T) {
	svc1 := NewJWTTokenService(testAccessSecret, time.Hour, testRefreshSecret, time.Hour, "issuer-a")
	svc2 := NewJWTTokenService(testAccessSecret, time.Hour, testRefreshSecret, time.Hour, "issuer-b")

	tokenStr, _, err := svc1.GenerateAccess(uuid.New(), domain.RoleAdmin)
	require.NoError(t, err)

	_, err = svc2.ValidateAccess(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_InvalidTokenString(t *testing.T) {
	svc := newTestTokenService(time.Hour, time.Hour)

	_, err := svc.ValidateAccess("not.a.valid.jwt")
	assert.Error(t, err)
	_, err = svc.ValidateRefresh("")
	assert.Error(t, err)
}
