package worker

import "errors"

var (
	// ErrTransportDisabled is returned when no client is configured for a channel
	ErrTransportDisabled = errors.New("transport not configured")

	// ErrRedeliveryExhausted is returned when a redelivered message fails again
	ErrRedeliveryExhausted = errors.New("delivery failed after redelivery")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
