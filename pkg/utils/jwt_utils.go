package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims defines the JWT claims structure. The registered Subject carries the
// user id as a string; JWT subjects must always be strings even though user
// ids are numeric.
type Claims struct {
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the numeric user id carried in the token subject.
func (c *Claims) UserID() (int64, error) {
	return StrToInt64(c.Subject)
}

// TokenManager signs and verifies bearer tokens. The secret and default
// lifetime come from process configuration, constructed once at startup and
// passed in; request-handling code never reads them from ambient state.
type TokenManager struct {
	secret     []byte
	defaultTTL time.Duration
	issuer     string
}

// NewTokenManager creates a TokenManager with the given signing secret and
// default token lifetime.
func NewTokenManager(secret string, defaultTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		defaultTTL: defaultTTL,
		issuer:     "booknest-backend",
	}
}

// Generate creates a signed access token for a user. A zero ttl uses the
// manager's default lifetime; callers may override it per issuance.
func (tm *TokenManager) Generate(userID int64, username, role string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = tm.defaultTTL
	}
	now := time.Now()
	claims := &Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   Int64ToStr(userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tm.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Validate parses and validates a token string, returning the claims if valid.
func (tm *TokenManager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
