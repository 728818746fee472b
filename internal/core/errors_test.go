package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"unauthenticated", fmt.Errorf("guard: %w", ErrUnauthenticated), http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"post limit", ErrPostLimitReached, http.StatusForbidden},
		{"not found", fmt.Errorf("post: %w", ErrNotFound), http.StatusNotFound},
		{"field error", InvalidInput("id", "malformed identifier"), http.StatusBadRequest},
		{"conflict", ErrConflict, http.StatusConflict},
		{"unavailable", Unavailable(context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUnavailableKeepsCause(t *testing.T) {
	err := Unavailable(context.DeadlineExceeded)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatal("expected ErrStoreUnavailable")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("expected cause to be preserved")
	}
	if Unavailable(nil) != nil {
		t.Fatal("Unavailable(nil) should be nil")
	}
}

func TestFieldErrorUnwrapsToInvalidInput(t *testing.T) {
	err := fmt.Errorf("parse: %w", InvalidInput("page", "must be at least 1"))

	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatal("expected FieldError")
	}
	if fe.Field != "page" {
		t.Errorf("Field = %q", fe.Field)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("expected ErrInvalidInput")
	}
}
