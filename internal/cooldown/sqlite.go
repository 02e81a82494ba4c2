package cooldown

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists admissions so cooldowns survive a restart.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.Mutex
	window    time.Duration
	retention time.Duration
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string, window, retention time.Duration) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite cooldown store requires a path")
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: SQLite has a single writer, and ":memory:" databases are
	// per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:        db,
		window:    window,
		retention: clampRetention(window, retention),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cooldowns (
			strategy    TEXT    NOT NULL,
			symbol      TEXT    NOT NULL,
			admitted_at INTEGER NOT NULL,
			PRIMARY KEY (strategy, symbol)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cooldowns_admitted ON cooldowns(admitted_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) IsAdmitted(ctx context.Context, key Key, now time.Time) (bool, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx,
		`SELECT admitted_at FROM cooldowns WHERE strategy = ? AND symbol = ?`,
		key.Strategy, key.Symbol,
	).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("query cooldown %s: %w", key, err)
	}
	return expired(time.UnixMilli(ms), stamp(now), s.window), nil
}

func (s *SQLiteStore) RecordAdmission(ctx context.Context, key Key, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := now.UnixMilli()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO cooldowns (strategy, symbol, admitted_at) VALUES (?, ?, ?)
		 ON CONFLICT(strategy, symbol) DO UPDATE SET admitted_at = excluded.admitted_at`,
		key.Strategy, key.Symbol, ms,
	); err != nil {
		return fmt.Errorf("record cooldown %s: %w", key, err)
	}
	if s.retention > 0 {
		cutoff := now.Add(-s.retention).UnixMilli()
		if _, err := s.db.ExecContext(ctx, `DELETE FROM cooldowns WHERE admitted_at < ?`, cutoff); err != nil {
			return fmt.Errorf("evict cooldowns: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM cooldowns WHERE admitted_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune cooldowns: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune cooldowns: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
