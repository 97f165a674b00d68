package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "ec-checkout"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrWeakSecret   = errors.New("jwt secret must be at least 32 bytes")
)

// Claims identify the customer a token was issued to
type Claims struct {
	CustomerID int64         `json:"customer_id"`
	Email      string        `json:"email"`
	Role       customer.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	return c.Role == customer.RoleAdmin
}

// JWTService issues and verifies HS256 access tokens
type JWTService struct {
	secretKey []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewJWTService(secretKey string, accessTTL time.Duration) (*JWTService, error) {
	if len(secretKey) < 32 {
		return nil, ErrWeakSecret
	}
	return &JWTService{
		secretKey: []byte(secretKey),
		accessTTL: accessTTL,
		now:       time.Now,
	}, nil
}

// GenerateAccessToken signs a token for the customer. The returned time is
// when the token stops being accepted.
func (s *JWTService) GenerateAccessToken(customerID int64, email string, role customer.Role) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.accessTTL)

	claims := Claims{
		CustomerID: customerID,
		Email:      email,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(customerID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken checks signature, algorithm, issuer and expiry.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.CustomerID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *JWTService) AccessTTL() time.Duration {
	return s.accessTTL
}
