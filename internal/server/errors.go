// Package server provides the HTTP API for generating application documents.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/application-agent/internal/generation"
)

// ErrNotFound indicates a requested record does not exist
type ErrNotFound struct {
	Kind string
	ID   string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var notFound *ErrNotFound
	var invalid *ErrValidation
	switch {
	case errors.As(err, &invalid), errors.Is(err, generation.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.As(err, &notFound), errors.Is(err, generation.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, generation.ErrNoResume):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal failures from clients.
func publicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
