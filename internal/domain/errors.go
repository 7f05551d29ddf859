package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for invariant violations raised by aggregates. The
// command side maps these onto aggregate error codes; callers test them
// with errors.Is.
var (
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrEmptyOrder              = errors.New("order must contain at least one line")
	ErrDuplicateReference      = errors.New("duplicate part reference for supplier")
	ErrMixedCurrency           = errors.New("mixed currencies")
	ErrValidation              = errors.New("validation failed")
)

// NewValidationError tags malformed value-object input. These are rejected
// before any aggregate is invoked and never reach the event log.
func NewValidationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, strings.TrimSpace(msg))
}

func NewInsufficientStockError(requested, available int) error {
	return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, requested, available)
}

func NewInvalidStatusTransitionError(from, to OrderStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
}
