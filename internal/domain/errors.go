package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Handlers map these to HTTP statuses; services and
// tests branch on them with errors.Is.
var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrOccupancyExceeded     = errors.New("occupancy exceeded")
	ErrInsufficientPoints    = errors.New("insufficient points")
	ErrRedemptionCapExceeded = errors.New("redemption cap exceeded")
	ErrConcurrencyConflict   = errors.New("concurrency conflict")
)

// Error wraps a sentinel kind with a human-readable message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NewValidationError reports invalid caller input before any mutation.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports a missing entity by type and identifier.
func NewNotFoundError(entity, id string) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewConflictError reports a uniqueness or state conflict.
func NewConflictError(format string, args ...any) *Error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidTransitionError names both the current and the requested state.
func NewInvalidTransitionError(from, to string) *Error {
	return &Error{Kind: ErrInvalidTransition, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewInsufficientInventoryError reports an availability shortfall. No units
// are claimed when this is returned.
func NewInsufficientInventoryError(roomType string, requested, available int) *Error {
	return &Error{
		Kind:    ErrInsufficientInventory,
		Message: fmt.Sprintf("room type %s: requested %d units, %d available", roomType, requested, available),
	}
}

// NewOccupancyExceededError reports that the requested rooms cannot hold the
// requested guests.
func NewOccupancyExceededError(guests, capacity int) *Error {
	return &Error{
		Kind:    ErrOccupancyExceeded,
		Message: fmt.Sprintf("%d guests exceed a combined capacity of %d", guests, capacity),
	}
}

// NewInsufficientPointsError reports a redemption above the account balance.
func NewInsufficientPointsError(requested, balance int64) *Error {
	return &Error{
		Kind:    ErrInsufficientPoints,
		Message: fmt.Sprintf("requested %d points, balance is %d", requested, balance),
	}
}

// NewRedemptionCapError reports a redemption above the per-reservation cap.
func NewRedemptionCapError(requested, cap int64) *Error {
	return &Error{
		Kind:    ErrRedemptionCapExceeded,
		Message: fmt.Sprintf("requested %d points, per-reservation cap is %d", requested, cap),
	}
}

// NewConcurrencyConflictError reports that a concurrent operation won the
// race; callers should retry the whole attempt.
func NewConcurrencyConflictError(message string) *Error {
	return &Error{Kind: ErrConcurrencyConflict, Message: message}
}
