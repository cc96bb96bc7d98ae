package entity

import (
	"fmt"
)

// ValidationError reports input that was rejected before any cache or network access
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// RemoteServiceError carries the message the rate service put in its error body
type RemoteServiceError struct {
	Message string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("rate service error: %s", e.Message)
}

// TransportError wraps failures talking to the rate service: connection
// problems, unexpected status codes and undecodable bodies
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
