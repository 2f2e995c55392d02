// Package errs defines the error kinds shared across the library.
package errs

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument marks every parameter-validation failure in the library.
// Callers branch on it with errors.Is; the wrapped message carries the detail.
var ErrInvalidArgument = errors.New("invalid argument")

// Invalidf wraps ErrInvalidArgument with formatted context.
func Invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidArgument)
}
