package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the verified content of an access token.
type Claims struct {
	UserID    int64
	Username  string
	JTI       string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies user access tokens. Every issued token
// carries a unique jti so individual sessions can be revoked.
type TokenIssuer struct {
	secretKey []byte
	ttl       time.Duration
}

// NewTokenIssuer builds a token helper using the provided secret.
func NewTokenIssuer(secretKey string) *TokenIssuer {
	return &TokenIssuer{
		secretKey: []byte(secretKey),
		ttl:       7 * 24 * time.Hour,
	}
}

// WithTTL allows customising the expiration duration.
func (ti *TokenIssuer) WithTTL(ttl time.Duration) *TokenIssuer {
	if ttl > 0 {
		ti.ttl = ttl
	}
	return ti
}

// TTL reports the configured token lifetime.
func (ti *TokenIssuer) TTL() time.Duration {
	return ti.ttl
}

// Issue signs a JWT for the user and returns it with its claims.
func (ti *TokenIssuer) Issue(userID int64, username string) (string, *Claims, error) {
	if ti == nil || len(ti.secretKey) == 0 {
		return "", nil, errors.New("token secret is empty")
	}

	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		Username:  username,
		JTI:       uuid.NewString(),
		ExpiresAt: now.Add(ti.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     username,
		"user_id": userID,
		"jti":     claims.JTI,
		"iat":     now.Unix(),
		"exp":     claims.ExpiresAt.Unix(),
	})
	signed, err := token.SignedString(ti.secretKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify validates the JWT signature and expiry and extracts the claims.
func (ti *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	if ti == nil || len(ti.secretKey) == 0 {
		return nil, errors.New("token secret is empty")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ti.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	username, ok := mapClaims["sub"].(string)
	if !ok || username == "" {
		return nil, errors.New("invalid sub claim")
	}
	rawUserID, ok := mapClaims["user_id"].(float64)
	if !ok {
		return nil, errors.New("invalid user_id claim")
	}
	jti, ok := mapClaims["jti"].(string)
	if !ok || jti == "" {
		return nil, errors.New("invalid jti claim")
	}

	claims := &Claims{
		UserID:   int64(rawUserID),
		Username: username,
		JTI:      jti,
	}
	if exp, ok := mapClaims["exp"].(float64); ok {
		claims.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return claims, nil
}
