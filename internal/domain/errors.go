package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// ValidationError reports malformed or out-of-range input. Field uses the
// JSON path of the offending value, e.g. "indicators.rsi".
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// GatewayError is a failed or timed-out model call.
type GatewayError struct {
	Reason string
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model gateway: %s: %v", e.Reason, e.Err)
	}
	return "model gateway: " + e.Reason
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ParseError is model output that could not be coerced into a Signal.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "unparseable model reply: " + e.Reason }

type NotifierError struct {
	Err error
}

func (e *NotifierError) Error() string { return fmt.Sprintf("notifier: %v", e.Err) }

func (e *NotifierError) Unwrap() error { return e.Err }
