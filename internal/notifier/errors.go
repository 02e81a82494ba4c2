package notifier

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotConfigured is matched by every ConfigurationError.
var ErrNotConfigured = errors.New("telegram not configured")

// ConfigurationError reports missing deployment secrets. No request is made.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("telegram configuration missing: %s", strings.Join(e.Missing, ", "))
}

func (e *ConfigurationError) Unwrap() error { return ErrNotConfigured }

// DeliveryError is returned when the Bot API answers with a failure.
type DeliveryError struct {
	StatusCode  int
	Description string
}

func (e *DeliveryError) Error() string {
	desc := e.Description
	if desc == "" {
		desc = fmt.Sprintf("status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return "telegram send failed: " + desc
}

// TransportError wraps a failure to reach the Bot API at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "telegram unreachable: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }
