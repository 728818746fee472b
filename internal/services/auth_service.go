package services

import (
	"context"
	"fmt"
	"time"

	"github.com/brainshare/backend/internal/access"
	"github.com/brainshare/backend/internal/core"
	"github.com/brainshare/backend/internal/models"
)

// AuthService exchanges a login proof for a signed session token.
type AuthService struct {
	tokens          *access.JWTManager
	idTokens        access.IDTokenVerifier
	allowUnverified bool
}

// NewAuthService accepts a nil idTokens verifier; logins then require
// allowUnverified.
func NewAuthService(tokens *access.JWTManager, idTokens access.IDTokenVerifier, allowUnverified bool) *AuthService {
	return &AuthService{tokens: tokens, idTokens: idTokens, allowUnverified: allowUnverified}
}

type Session struct {
	Token     string
	Email     string
	ExpiresAt time.Time
}

func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (Session, error) {
	email, err := s.identify(ctx, req)
	if err != nil {
		return Session{}, err
	}
	token, expires, err := s.tokens.Issue(email)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, Email: email, ExpiresAt: expires}, nil
}

func (s *AuthService) identify(ctx context.Context, req *models.LoginRequest) (string, error) {
	if req.IDToken != "" {
		if s.idTokens == nil {
			return "", fmt.Errorf("identity provider not configured: %w", core.ErrUnauthenticated)
		}
		return s.idTokens.VerifyIDToken(ctx, req.IDToken)
	}
	if !s.allowUnverified {
		return "", fmt.Errorf("unverified login disabled: %w", core.ErrUnauthenticated)
	}
	return NormalizeEmail(req.Email)
}
