package api

import (
	"errors"
	"fmt"
)

// ErrAuthentication marks a failed credential exchange with the
// identity service. The previous session is left untouched so a later
// retry reuses the same clock baseline.
var ErrAuthentication = errors.New("authentication failed")

// TransportError is returned once the bounded retry of a single API
// call is exhausted. It carries the final HTTP status and the request
// path for diagnostics; Status is zero for connection-level failures.
type TransportError struct {
	Status int
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request %s failed: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("request %s failed with status %d", e.Path, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }
