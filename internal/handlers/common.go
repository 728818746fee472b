package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/brainshare/backend/internal/core"
	"github.com/brainshare/backend/internal/middleware"
	"github.com/brainshare/backend/internal/models"
)

const maxBodyBytes = 1 << 20

type validatable interface {
	Validate() map[string]string
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err onto the response envelope. Client errors are returned
// as-is; server errors are logged under op and hidden behind fallback.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error, fallback string) {
	var fe *core.FieldError
	if errors.As(err, &fe) {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(map[string]string{fe.Field: fe.Message}))
		return
	}

	status := core.HTTPStatus(err)
	var message string
	switch {
	case errors.Is(err, core.ErrPostLimitReached):
		message = "Post limit reached, become a member to post more"
	case status == http.StatusUnauthorized:
		message = "Unauthorized access"
	case status == http.StatusForbidden:
		message = "Forbidden access"
	case status == http.StatusNotFound:
		message = "Not found"
	case status == http.StatusConflict:
		message = "Already exists"
	case status == http.StatusBadRequest:
		message = "Invalid request"
	case status == http.StatusServiceUnavailable:
		slog.ErrorContext(r.Context(), op+" failed", "error", err, "retryable", true)
		w.Header().Set("Retry-After", "5")
		message = "Service temporarily unavailable"
	default:
		slog.ErrorContext(r.Context(), op+" failed", "error", err)
		message = fallback
	}
	writeJSON(w, status, models.NewErrorResponse(message))
}

// decodeBody reads a JSON body into req and runs its validation. It writes
// the error response itself and reports whether the handler may continue.
func decodeBody(w http.ResponseWriter, r *http.Request, req validatable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return false
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return false
	}
	return true
}

func callerEmail(r *http.Request) string {
	id, _ := middleware.IdentityFrom(r.Context())
	return id.Email
}

func contextWithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}
