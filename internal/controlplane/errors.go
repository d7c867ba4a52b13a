package controlplane

import (
	"errors"
	"fmt"
	"net"
)

// UnreachableError means no HTTP response arrived: DNS failure, refused
// connection, or a connect/total timeout.
type UnreachableError struct {
	URL   string
	Cause error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("control plane unreachable at %s: %v", e.URL, e.Cause)
}

func (e *UnreachableError) Unwrap() error { return e.Cause }

// Timeout reports whether the failure was a timeout.
func (e *UnreachableError) Timeout() bool {
	var netErr net.Error
	return errors.As(e.Cause, &netErr) && netErr.Timeout()
}

// ServerRejectedError carries the control plane's own error text.
type ServerRejectedError struct {
	Message    string
	StatusCode int
}

func (e *ServerRejectedError) Error() string {
	return "control plane rejected the request: " + e.Message
}

// MalformedResponseError means the response arrived but could not be used.
type MalformedResponseError struct {
	Field  string
	Reason string
	Cause  error
}

func (e *MalformedResponseError) Error() string {
	if e.Field == "" {
		return "malformed control plane response: " + e.Reason
	}
	return fmt.Sprintf("malformed control plane response: %s %s", e.Field, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }
