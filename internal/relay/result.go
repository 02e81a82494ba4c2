package relay

import (
	"encoding/json"
	"errors"

	"SignalRelay/internal/cooldown"
	"SignalRelay/internal/model"
	"SignalRelay/internal/notifier"
)

var (
	// ErrInvalidBody means the request body was not a JSON object.
	ErrInvalidBody = errors.New("invalid JSON body")
	// ErrMissingFields means strategy or symbol was absent or empty.
	ErrMissingFields = errors.New("missing required fields")
)

// Outcome is the terminal state of one relay attempt.
type Outcome int

const (
	Accepted Outcome = iota + 1
	Suppressed
	Rejected
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Suppressed:
		return "suppressed"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes what happened to a signal. Signal is nil only when the body
// could not be decoded.
type Result struct {
	Outcome Outcome
	Signal  *model.Signal
	// Body is the request body as received, nil when Process was called directly.
	Body    json.RawMessage
	Key     cooldown.Key
	// Message is the text that was delivered (Accepted only).
	Message string
	Receipt *notifier.Receipt
	// Reason is the client-facing rejection text (Rejected only).
	Reason string
	Err    error
}

// Kind classifies Err for logs and metrics.
func (r Result) Kind() string {
	var (
		cerr *notifier.ConfigurationError
		derr *notifier.DeliveryError
		terr *notifier.TransportError
	)
	switch {
	case r.Err == nil:
		return ""
	case errors.Is(r.Err, ErrInvalidBody), errors.Is(r.Err, ErrMissingFields):
		return "validation"
	case errors.As(r.Err, &cerr):
		return "configuration"
	case errors.As(r.Err, &derr):
		return "delivery"
	case errors.As(r.Err, &terr):
		return "transport"
	default:
		return "internal"
	}
}
