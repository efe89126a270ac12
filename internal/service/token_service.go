package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// JWTTokenService implements ports.TokenService using HS256 JWT.
// Access and refresh tokens are signed with different secrets and carry a
// "typ" claim, so one can never be replayed as the other.
type JWTTokenService struct {
	accessSecret  []byte
	accessExpiry  time.Duration
	refreshSecret []byte
	refreshExpiry time.Duration
	issuer        string
}

// NewJWTTokenService creates a new JWT token service.
func NewJWTTokenService(accessSecret string, accessExpiry time.Duration, refreshSecret string, refreshExpiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		accessSecret:  []byte(accessSecret),
		accessExpiry:  accessExpiry,
		refreshSecret: []byte(refreshSecret),
		refreshExpiry: refreshExpiry,
		issuer:        issuer,
	}
}

// GenerateAccess creates a short-lived access token carrying the role.
func (s *JWTTokenService) GenerateAccess(accountID uuid.UUID, role domain.Role) (string, time.Time, error) {
	return s.sign(s.accessSecret, s.accessExpiry, jwt.MapClaims{
		"sub":  accountID.String(),
		"role": string(role),
		"typ":  tokenTypeAccess,
	})
}

// GenerateRefresh creates a refresh token. Every token gets a random jti so
// two tokens issued within the same second still differ.
func (s *JWTTokenService) GenerateRefresh(accountID uuid.UUID) (string, time.Time, error) {
	return s.sign(s.refreshSecret, s.refreshExpiry, jwt.MapClaims{
		"sub": accountID.String(),
		"typ": tokenTypeRefresh,
	})
}

func (s *JWTTokenService) sign(secret []byte, ttl time.Duration, claims jwt.MapClaims) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	jti := make([]byte, 16)
	if _, err := rand.Read(jti); err != nil {
		return "", time.Time{}, fmt.Errorf("generating jti: %w", err)
	}

	claims["jti"] = hex.EncodeToString(jti)
	claims["iat"] = now.Unix()
	claims["exp"] = expiresAt.Unix()
	claims["iss"] = s.issuer

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateAccess parses and validates an access token.
func (s *JWTTokenService) ValidateAccess(tokenString string) (*ports.TokenClaims, error) {
	claims, err := s.parse(tokenString, s.accessSecret, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role claim %q", claims.Role)
	}
	claims.Role = role
	return claims, nil
}

// ValidateRefresh parses and validates a refresh token.
func (s *JWTTokenService) ValidateRefresh(tokenString string) (*ports.TokenClaims, error) {
	return s.parse(tokenString, s.refreshSecret, tokenTypeRefresh)
}

func (s *JWTTokenService) parse(tokenString string, secret []byte, typ string) (*ports.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if t, _ := claims["typ"].(string); t != typ {
		return nil, fmt.Errorf("unexpected token type %q", t)
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("missing subject claim")
	}

	accountID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid account ID in token: %w", err)
	}

	role, _ := claims["role"].(string)
	jti, _ := claims["jti"].(string)

	return &ports.TokenClaims{
		AccountID: accountID,
		Role:      domain.Role(role),
		TokenID:   jti,
	}, nil
}
