package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Schema errors: fatal for a whole load
	ErrSchema          = errors.New("schema error")
	ErrMissingColumn   = fmt.Errorf("%w: missing column", ErrSchema)
	ErrInvalidDate     = fmt.Errorf("%w: invalid date", ErrSchema)
	ErrInvalidQuantity = fmt.Errorf("%w: invalid quantity", ErrSchema)
	ErrEmptyFile       = fmt.Errorf("%w: no header row", ErrSchema)

	// Session errors
	ErrNotFound     = errors.New("resource not found")
	ErrNoDataset    = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrNoSession    = fmt.Errorf("%w: session", ErrNotFound)
	ErrUnauthorized = errors.New("unauthorized")

	// Request errors
	ErrUnknownAnalysis = errors.New("unknown analysis type")
	ErrInvalidRange    = errors.New("invalid date range")
)

// Error constructors with context
func NewMissingColumnError(column string) error {
	return fmt.Errorf("%w %q", ErrMissingColumn, column)
}

func NewInvalidDateError(line int, value string) error {
	return fmt.Errorf("%w on line %d: %q", ErrInvalidDate, line, value)
}

func NewInvalidQuantityError(line int, value string) error {
	return fmt.Errorf("%w on line %d: %q", ErrInvalidQuantity, line, value)
}

// Error checking helpers
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
