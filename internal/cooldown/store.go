// Package cooldown decides whether a signal may be relayed again. Every key
// carries the time of its last successful relay; a key is admitted once more
// than the cooldown window has passed since then.
package cooldown

import (
	"context"
	"fmt"
	"time"

	"SignalRelay/internal/model"
)

// Key identifies a signal stream. The pair is kept structured so that
// ("A_B", "C") and ("A", "B_C") never collide. Case is preserved.
type Key struct {
	Strategy string
	Symbol   string
}

// KeyFor derives the cooldown key of a signal.
func KeyFor(sig *model.Signal) Key {
	return Key{Strategy: sig.Strategy.String(), Symbol: sig.Symbol.String()}
}

// String encodes the key with a length prefix so it stays unambiguous when a
// backend needs a flat string.
func (k Key) String() string {
	return fmt.Sprintf("%d:%s|%s", len(k.Strategy), k.Strategy, k.Symbol)
}

// Store tracks the last admission per key.
type Store interface {
	// IsAdmitted reports whether key has no entry or its entry is older than
	// the window. It never mutates state.
	IsAdmitted(ctx context.Context, key Key, now time.Time) (bool, error)
	// RecordAdmission sets the entry of key to now, overwriting any previous one.
	RecordAdmission(ctx context.Context, key Key, now time.Time) error
	// Prune drops entries admitted before cutoff and returns how many were removed.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Options configures a store.
type Options struct {
	Backend string
	// Path is the SQLite database file; ignored by the memory backend.
	Path      string
	Window    time.Duration
	Retention time.Duration
}

// Open builds the store named by opts.Backend.
func Open(opts Options) (Store, error) {
	if opts.Window <= 0 {
		return nil, fmt.Errorf("cooldown window must be positive, got %s", opts.Window)
	}
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(opts.Window, opts.Retention), nil
	case BackendSQLite:
		return NewSQLiteStore(opts.Path, opts.Window, opts.Retention)
	default:
		return nil, fmt.Errorf("unknown cooldown backend %q", opts.Backend)
	}
}

// expired reports whether an admission at last no longer blocks a signal at now.
func expired(last, now time.Time, window time.Duration) bool {
	return now.Sub(last) > window
}

// stamp normalizes a timestamp to the millisecond resolution stored by every backend.
func stamp(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli())
}

// clampRetention keeps a positive retention from evicting entries that are
// still inside the window.
func clampRetention(window, retention time.Duration) time.Duration {
	if retention > 0 && retention < window {
		return window
	}
	return retention
}
