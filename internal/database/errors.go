package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
)

var (
	// ErrNotFound is returned by read operations when the identity does not exist.
	ErrNotFound = errors.New("identity not found")

	// ErrStoreUnavailable wraps failures to reach the underlying database.
	ErrStoreUnavailable = errors.New("identity store unavailable")
)

// ValidationError rejects a write with bad input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// unavailableError marks err as a connectivity failure while keeping the cause.
type unavailableError struct {
	err error
}

func (e *unavailableError) Error() string {
	return fmt.Sprintf("%s: %v", ErrStoreUnavailable, e.err)
}

func (e *unavailableError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.err}
}

// IsConnectionError reports whether err looks like the database could not be reached.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// WrapStoreError annotates err with op and marks connection failures with
// ErrStoreUnavailable. It returns nil for a nil err.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsConnectionError(err) {
		return fmt.Errorf("%s: %w", op, &unavailableError{err: err})
	}
	return fmt.Errorf("%s: %w", op, err)
}
