package errors

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the session relay
var (
	// Session errors
	ErrNoSession   = errors.New("no session")
	ErrMissingCode = errors.New("missing authorization code")

	// Collaborator errors
	ErrProvider = errors.New("oauth provider error")
	ErrStore    = errors.New("session store error")

	// Record validation
	ErrInvalidRecord = errors.New("invalid session record")

	// General errors
	ErrNotConfigured = errors.New("not configured")
	ErrUnsupported   = errors.New("unsupported operation")
)

// New returns an error that formats as the given text
func New(text string) error {
	return errors.New(text)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Store marks err as a persistence failure, keeping the original error in the chain
func Store(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", fmt.Sprintf(format, args...), ErrStore, err)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
