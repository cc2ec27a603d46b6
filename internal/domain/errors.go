package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any store access.
	ErrValidation = errors.New("validation failed")
	// ErrCycle is returned when a category would become its own ancestor.
	ErrCycle = fmt.Errorf("%w: category cycle", ErrValidation)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
