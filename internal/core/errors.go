package core

import (
	"errors"
	"fmt"

	"foodcost/internal/uom"
)

var (
	// ErrValidation marks a request that was rejected before any write.
	ErrValidation = errors.New("validation failed")

	// ErrLimitReached is returned when writes are disabled (read-only mode,
	// expired license). Callers treat it as an expected business state.
	ErrLimitReached = errors.New("write limit reached")

	ErrNotFound = errors.New("not found")

	// ErrLockLost is the cause of a held lock's context when the lock expired
	// before it was released.
	ErrLockLost = errors.New("lock lost before release")

	// ErrUnitConversion aliases the uom sentinel so callers only import core.
	ErrUnitConversion = uom.ErrIncompatibleUnits
)

// ValidationError carries the offending field. It unwraps to ErrValidation.
type ValidationError struct {
	Field   string
	Details string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Details)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Details)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Details: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}
