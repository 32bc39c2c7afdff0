package domain

import "errors"

// ValidationError represents caller-fixable bad input (quantity, percent,
// duration). Never retried automatically.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a validation error for a named input field.
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

// StateConflictError represents a request rejected by current engine state
// (frozen market/item, round limit, insufficient balance or holdings).
// Terminal for that request; Reason is suitable for direct display.
type StateConflictError struct {
	Reason string
	Err    error
}

func (e *StateConflictError) Error() string {
	return e.Reason
}

func (e *StateConflictError) Unwrap() error {
	return e.Err
}

// NewStateConflictError wraps a sentinel with a human-readable reason.
func NewStateConflictError(reason string, err error) *StateConflictError {
	return &StateConflictError{Reason: reason, Err: err}
}

// NotFoundError represents an unknown item or team id.
type NotFoundError struct {
	Kind string // "item", "team"
	ID   string
}

func (e *NotFoundError) Error() string {
	return e.Kind + " not found: " + e.ID
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

var (
	// ErrNotFound is the sentinel wrapped by every NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuantity is returned when a trade quantity is not positive.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrMarketFrozen is returned when trading is suspended market-wide.
	ErrMarketFrozen = errors.New("market frozen")

	// ErrItemFrozen is returned when the requested item is frozen.
	ErrItemFrozen = errors.New("item frozen")

	// ErrInsufficientBalance is returned when a buy exceeds the team balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientHoldings is returned when a sell exceeds the held quantity.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrRoundLimitReached is returned when every round has been played.
	ErrRoundLimitReached = errors.New("round limit reached")

	// ErrDuplicateAdjustment is returned when a reward/penalty reference id
	// was already applied for the team. Callers treat it as success.
	ErrDuplicateAdjustment = errors.New("adjustment already applied")
)
