package core

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
	ErrStoreUnavailable = errors.New("data store unavailable")
	ErrPostLimitReached = errors.New("post limit reached for bronze members")
)

// FieldError is a client input error tied to a single request field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidInput
}

// InvalidInput returns a FieldError for field.
func InvalidInput(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

type unavailableError struct {
	err error
}

func (e *unavailableError) Error() string {
	return ErrStoreUnavailable.Error() + ": " + e.err.Error()
}

func (e *unavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func (e *unavailableError) Unwrap() error {
	return e.err
}

// Unavailable marks err as a store outage. The original error stays
// reachable through errors.Is/As.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return &unavailableError{err: err}
}

// HTTPStatus maps an error from the guard, the query engine or a service to
// the status code returned to the client.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrPostLimitReached):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
