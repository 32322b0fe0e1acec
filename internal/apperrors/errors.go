package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested record could not be found.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate indicates an attempt to create a record that already exists.
var ErrDuplicate = errors.New("record already exists")

// ValidationError carries a client-facing message for a rejected request,
// with optional structured detail (e.g. the mismatched totals).
type ValidationError struct {
	Message string
	Data    map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
