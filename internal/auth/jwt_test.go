package auth

import (
	"testing"
	"time"

	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing-purposes"

func newTestJWTService(t *testing.T) *JWTService {
	t.Helper()
	service, err := NewJWTService(testSecret, 15*time.Minute)
	require.NoError(t, err)
	return service
}

func TestNewJWTService_WeakSecret(t *testing.T) {
	service, err := NewJWTService("short", time.Minute)

	assert.ErrorIs(t, err, ErrWeakSecret)
	assert.Nil(t, service)
}

func TestJWTService_GenerateAccessToken_Success(t *testing.T) {
	service := newTestJWTService(t)

	token, expiresAt, err := service.GenerateAccessToken(42, "test@example.com", customer.RoleUser)

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
	assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))
}

func TestJWTService_ValidateAccessToken_Valid(t *testing.T) {
	service := newTestJWTService(t)

	token, _, err := service.GenerateAccessToken(7, "admin@example.com", customer.RoleAdmin)
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(token)

	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.CustomerID)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.True(t, claims.IsAdmin())
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, tokenIssuer, claims.Issuer)
}

func TestJWTService_ValidateAccessToken_Expired(t *testing.T) {
	service := newTestJWTService(t)
	issued := time.Now().Add(-time.Hour)
	service.now = func() time.Time { return issued }

	token, _, err := service.GenerateAccessToken(1, "test@example.com", customer.RoleUser)
	require.NoError(t, err)
	service.now = time.Now

	claims, err := service.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_Invalid(t *testing.T) {
	service := newTestJWTService(t)

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"random string", "not-a-valid-token"},
		{"malformed JWT", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTService_ValidateAccessToken_WrongSignature(t *testing.T) {
	signer, err := NewJWTService("another-secret-key-that-is-long-enough", 15*time.Minute)
	require.NoError(t, err)
	token, _, err := signer.GenerateAccessToken(1, "test@example.com", customer.RoleUser)
	require.NoError(t, err)

	claims, err := newTestJWTService(t).ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_RejectsForgedClaims(t *testing.T) {
	service := newTestJWTService(t)
	now := time.Now()

	tests := []struct {
		name  string
		token func() (string, error)
	}{
		{"alg none", func() (string, error) {
			return jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{CustomerID: 1, Role: customer.RoleAdmin,
				RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer}}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		}},
		{"HS512", func() (string, error) {
			return jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{CustomerID: 1,
				RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer, ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}}).SignedString([]byte(testSecret))
		}},
		{"foreign issuer", func() (string, error) {
			return jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{CustomerID: 1,
				RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}}).SignedString([]byte(testSecret))
		}},
		{"missing customer", func() (string, error) {
			return jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
				RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer, ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}}).SignedString([]byte(testSecret))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tt.token()
			require.NoError(t, err)

			claims, err := service.ValidateAccessToken(token)

			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTService_AccessTTL(t *testing.T) {
	assert.Equal(t, 15*time.Minute, newTestJWTService(t).AccessTTL())
}
