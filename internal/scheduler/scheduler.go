package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"SignalRelay/internal/cooldown"
)

// Scheduler runs periodic cooldown maintenance.
type Scheduler struct {
	Cron      *cron.Cron
	Store     cooldown.Store
	Retention time.Duration
	Log       zerolog.Logger
	Ctx       context.Context
	Now       func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, store cooldown.Store, retention time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(),
		Store:     store,
		Retention: retention,
		Log:       log,
		Ctx:       ctx,
		Now:       time.Now,
	}
}

// Register adds the prune job; spec accepts standard cron fields or descriptors
// such as "@every 10m".
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.pruneTask); err != nil {
		return fmt.Errorf("register prune task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info().Msg("scheduler started")
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info().Msg("scheduler stopped")
}

// PruneNow drops entries older than the retention and returns how many went.
func (s *Scheduler) PruneNow() (int, error) {
	cutoff := s.Now().Add(-s.Retention)
	return s.Store.Prune(s.Ctx, cutoff)
}

func (s *Scheduler) pruneTask() {
	n, err := s.PruneNow()
	if err != nil {
		s.Log.Error().Err(err).Msg("prune cooldowns")
		return
	}
	s.Log.Debug().Int("removed", n).Msg("cooldowns pruned")
}
