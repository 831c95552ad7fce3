package provider

import (
	"fmt"

	"github.com/jrsteele09/go-oauth-relay/internal/errors"
)

// Error describes a failed token grant.
// StatusCode is 0 when the provider never answered (transport failure or timeout),
// and 200 when it answered successfully but the token response was unusable.
type Error struct {
	StatusCode int
	Body       string // raw provider body, for logs only
	Reason     string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("oauth provider error: status %d", e.StatusCode)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes every provider Error match errors.ErrProvider
func (e *Error) Is(target error) bool {
	return target == errors.ErrProvider
}

func (e *Error) Unwrap() error {
	return e.Err
}
