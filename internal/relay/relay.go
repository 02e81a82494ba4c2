// Package relay turns inbound signals into delivered chat messages, at most
// one per cooldown key and window.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"SignalRelay/internal/cooldown"
	"SignalRelay/internal/model"
	"SignalRelay/internal/notifier"
)

// Sender delivers a formatted message.
type Sender interface {
	Send(ctx context.Context, text string) (*notifier.Receipt, error)
}

// Options wires a Relay. Gate and Now are optional.
type Options struct {
	Store     cooldown.Store
	Gate      *cooldown.Gate
	Formatter *notifier.Formatter
	Sender    Sender
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Relay validates, deduplicates, formats and delivers signals.
type Relay struct {
	store     cooldown.Store
	gate      *cooldown.Gate
	formatter *notifier.Formatter
	sender    Sender
	log       zerolog.Logger
	now       func() time.Time
}

// New creates a Relay from opts.
func New(opts Options) *Relay {
	r := &Relay{
		store:     opts.Store,
		gate:      opts.Gate,
		formatter: opts.Formatter,
		sender:    opts.Sender,
		log:       opts.Logger,
		now:       opts.Now,
	}
	if r.gate == nil {
		r.gate = &cooldown.Gate{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Cooldown returns the window used in formatted messages.
func (r *Relay) Cooldown() time.Duration { return r.formatter.Cooldown }

// HandleSignal decodes a raw request body and relays it.
func (r *Relay) HandleSignal(ctx context.Context, body []byte) Result {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return r.reject(nil, ErrInvalidBody, ErrInvalidBody.Error())
	}
	var sig model.Signal
	if err := json.Unmarshal(trimmed, &sig); err != nil {
		return r.reject(nil, fmt.Errorf("%w: %v", ErrInvalidBody, err), ErrInvalidBody.Error())
	}
	res := r.Process(ctx, &sig)
	res.Body = json.RawMessage(trimmed)
	return res
}

// Process relays an already decoded signal.
//
// The key is held for the whole check, deliver, record sequence, so two
// signals with one key can never both be admitted inside a window. Admission
// is recorded only after the provider confirmed delivery.
func (r *Relay) Process(ctx context.Context, sig *model.Signal) Result {
	if missing := sig.MissingFields(); len(missing) > 0 {
		reason := fmt.Sprintf("%s: %s", ErrMissingFields, strings.Join(missing, ", "))
		return r.reject(sig, fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", ")), reason)
	}

	key := cooldown.KeyFor(sig)
	log := r.log.With().Str("strategy", key.Strategy).Str("symbol", key.Symbol).Logger()
	start := time.Now()

	release, err := r.gate.Acquire(ctx, key)
	if err != nil {
		return r.fail(log, sig, key, fmt.Errorf("wait for cooldown key: %w", err))
	}
	defer release()

	now := r.now()
	admitted, err := r.store.IsAdmitted(ctx, key, now)
	if err != nil {
		return r.fail(log, sig, key, fmt.Errorf("check cooldown: %w", err))
	}
	if !admitted {
		log.Info().Str("outcome", Suppressed.String()).Msg("signal in cooldown")
		return Result{Outcome: Suppressed, Signal: sig, Key: key}
	}

	text := r.formatter.Format(sig, now)
	receipt, err := r.sender.Send(ctx, text)
	if err != nil {
		return r.fail(log, sig, key, err)
	}

	if err := r.store.RecordAdmission(ctx, key, r.now()); err != nil {
		// The message is already out; reporting failure would invite a duplicate.
		log.Warn().Err(err).Msg("record admission")
	}

	log.Info().
		Str("outcome", Accepted.String()).
		Int64("message_id", receipt.MessageID()).
		Dur("latency", time.Since(start)).
		Msg("signal relayed")
	return Result{Outcome: Accepted, Signal: sig, Key: key, Message: text, Receipt: receipt}
}

func (r *Relay) reject(sig *model.Signal, err error, reason string) Result {
	r.log.Warn().Err(err).Str("outcome", Rejected.String()).Msg("signal rejected")
	return Result{Outcome: Rejected, Signal: sig, Reason: reason, Err: err}
}

func (r *Relay) fail(log zerolog.Logger, sig *model.Signal, key cooldown.Key, err error) Result {
	res := Result{Outcome: Failed, Signal: sig, Key: key, Err: err}
	log.Error().Err(err).Str("outcome", Failed.String()).Str("kind", res.Kind()).Msg("signal not relayed")
	return res
}
