package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/brainshare/backend/internal/access"
	"github.com/brainshare/backend/internal/core"
	"github.com/brainshare/backend/internal/models"
)

type contextKey string

const IdentityKey contextKey = "identity"

// CredentialsFromRequest returns the session credentials a request carries:
// the named cookie first, then a Bearer Authorization header.
func CredentialsFromRequest(r *http.Request, cookieName string) []string {
	var creds []string
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		creds = append(creds, c.Value)
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		if tok := strings.TrimSpace(parts[1]); tok != "" && (len(creds) == 0 || creds[0] != tok) {
			creds = append(creds, tok)
		}
	}
	return creds
}

// Authenticate rejects requests without a valid session credential and
// stores the caller's Identity in the request context. A stale cookie does
// not hide a valid Bearer header.
func Authenticate(guard *access.Guard, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticateAny(r, guard, CredentialsFromRequest(r, cookieName))
			if err != nil {
				writeError(w, err, "Unauthorized access")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func authenticateAny(r *http.Request, guard *access.Guard, creds []string) (access.Identity, error) {
	if len(creds) == 0 {
		return guard.Authenticate(r.Context(), "")
	}
	var err error
	for _, c := range creds {
		var id access.Identity
		if id, err = guard.Authenticate(r.Context(), c); err == nil {
			return id, nil
		}
	}
	return access.Identity{}, err
}

// RequireRole must run after Authenticate.
func RequireRole(guard *access.Guard, role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				writeError(w, core.ErrUnauthenticated, "Unauthorized access")
				return
			}
			if err := guard.Authorize(r.Context(), id, role); err != nil {
				writeError(w, err, "Forbidden access")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id access.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

// IdentityFrom returns the Identity stored by Authenticate, if any.
func IdentityFrom(ctx context.Context) (access.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(access.Identity)
	return id, ok
}

// writeError maps err to its status. Server-side failures are logged and
// replaced by a generic message.
func writeError(w http.ResponseWriter, err error, message string) {
	status := core.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("access check failed", "error", err)
		message = http.StatusText(status)
	}
	writeJSON(w, status, models.NewErrorResponse(message))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
