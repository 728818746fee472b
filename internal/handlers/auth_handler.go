package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/brainshare/backend/internal/models"
	"github.com/brainshare/backend/internal/services"
)

// AuthHandler issues and clears the session cookie.
type AuthHandler struct {
	auth       *services.AuthService
	cookieName string
	secure     bool
	timeout    time.Duration
}

func NewAuthHandler(auth *services.AuthService, cookieName string, secure bool, timeout time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, cookieName: cookieName, secure: secure, timeout: timeout}
}

func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, err := h.auth.Login(ctx, &req)
	if err != nil {
		writeError(w, r, "IssueToken", err, "Failed to issue token")
		return
	}

	http.SetCookie(w, h.cookie(session.Token, session.ExpiresAt))
	slog.InfoContext(ctx, "session issued", "email", session.Email)
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.SessionResponse{
		Token:     session.Token,
		Email:     session.Email,
		ExpiresAt: session.ExpiresAt,
	}))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	c := h.cookie("", time.Unix(0, 0))
	c.MaxAge = -1
	http.SetCookie(w, c)
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}

// cookie is cross-site in production, where the frontend lives on another
// origin, and same-site during local development.
func (h *AuthHandler) cookie(value string, expires time.Time) *http.Cookie {
	sameSite := http.SameSiteStrictMode
	if h.secure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: sameSite,
	}
}
