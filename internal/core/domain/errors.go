package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Each maps to one stable code returned to API callers.
var (
	ErrNotFound           = errors.New("not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidSender      = errors.New("sender is not a participant of the order")
	ErrNoReceiver         = errors.New("order has no booster assigned")
	ErrStorageFault       = errors.New("storage fault")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")

	// ErrConflict is returned by conditional writes whose expectation no
	// longer holds. The lifecycle engine resolves it into a guard error.
	ErrConflict = errors.New("concurrent modification")
)

var (
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrBoosterNotFound = fmt.Errorf("booster %w", ErrNotFound)
)

// Stable machine-readable codes.
const (
	CodeNotFound           = "not_found"
	CodePreconditionFailed = "precondition_failed"
	CodeForbidden          = "forbidden"
	CodeInvalidSender      = "invalid_sender"
	CodeNoReceiver         = "no_receiver"
	CodeStorageFault       = "storage_fault"
	CodeInvalidInput       = "invalid_input"
	CodeInvalidCredentials = "invalid_credentials"
	CodeConflict           = "conflict"
	CodeInternal           = "internal"
)

// Code returns the stable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrPreconditionFailed):
		return CodePreconditionFailed
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrInvalidSender):
		return CodeInvalidSender
	case errors.Is(err, ErrNoReceiver):
		return CodeNoReceiver
	case errors.Is(err, ErrStorageFault):
		return CodeStorageFault
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrInvalidCredentials):
		return CodeInvalidCredentials
	case errors.Is(err, ErrUserExists), errors.Is(err, ErrConflict):
		return CodeConflict
	default:
		return CodeInternal
	}
}

// Precondition returns a guard violation carrying a specific reason.
func Precondition(reason string) error {
	return fmt.Errorf("%w: %s", ErrPreconditionFailed, reason)
}

// Forbidden returns an ownership violation carrying a specific reason.
func Forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}

// Invalid returns an input validation error.
func Invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}

// StorageError wraps a persistence failure. It matches both ErrStorageFault
// and the underlying driver error.
type StorageError struct {
	Op  string
	Err error
}

// Storage wraps err as a StorageError for op. Nil stays nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage fault: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageFault, e.Err}
}
