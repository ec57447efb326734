// Package transport holds the vendor clients the worker delivers notifications through.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
)

// StatusError is returned when a vendor answers with a non-2xx status
type StatusError struct {
	Vendor string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d: %s", e.Vendor, e.Code, e.Body)
}

// Temporary reports whether the vendor asked us to come back later
func (e *StatusError) Temporary() bool {
	return e.Code == 429 || e.Code >= 500
}

// IsTemporary reports whether a delivery failure may succeed when retried.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}

	// SMTP 4xx replies are transient by definition
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code >= 400 && protoErr.Code < 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
