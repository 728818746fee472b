package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/brainshare/backend/internal/config"
	"github.com/brainshare/backend/internal/core"
)

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTManager issues and verifies HS256 session tokens.
type JWTManager struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// NewJWTManager signs with cfg.JWTSecret and issues tokens valid for
// cfg.JWTExpiration.
func NewJWTManager(cfg config.AuthConfig) *JWTManager {
	return &JWTManager{
		secret:     []byte(cfg.JWTSecret),
		expiration: cfg.JWTExpiration,
		now:        time.Now,
	}
}

func (m *JWTManager) Expiration() time.Duration {
	return m.expiration
}

// Issue signs a session token for email and returns it with its expiry.
func (m *JWTManager) Issue(email string) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.expiration)
	claims := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expires, nil
}

// Verify checks the signature and expiry of tokenString. Every failure is
// core.ErrUnauthenticated.
func (m *JWTManager) Verify(_ context.Context, tokenString string) (Identity, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("session expired: %w", core.ErrUnauthenticated)
		}
		return Identity{}, fmt.Errorf("invalid session token: %w", core.ErrUnauthenticated)
	}
	if !token.Valid {
		return Identity{}, fmt.Errorf("invalid session token: %w", core.ErrUnauthenticated)
	}
	return Identity{Email: claims.Email}, nil
}
