package kestra

import (
	"errors"
	"fmt"
)

// TransportError reports a failure to reach the engine or to read its reply.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// EngineRejectedError is returned when the engine answers a launch with a
// non-success HTTP status.
type EngineRejectedError struct {
	Op         string
	StatusCode int
	Status     string // status text, e.g. "Unprocessable Entity"
	Body       string
}

func (e *EngineRejectedError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: kestra error: %s: %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: kestra error: %s", e.Op, e.Status)
}

// IsTransport reports whether err wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsEngineRejected reports whether err wraps an *EngineRejectedError.
func IsEngineRejected(err error) bool {
	var re *EngineRejectedError
	return errors.As(err, &re)
}
