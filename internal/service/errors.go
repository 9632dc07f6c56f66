package service

import (
	"fmt"

	"latiafanny/backend/internal/store"
)

// ValidationError names the offending request field. It matches
// store.ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return store.ErrInvalidInput
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
