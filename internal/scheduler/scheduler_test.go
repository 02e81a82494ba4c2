package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalRelay/internal/cooldown"
)

func TestPruneNow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := cooldown.NewMemoryStore(30*time.Minute, 0)

	require.NoError(t, store.RecordAdmission(ctx, cooldown.Key{Strategy: "s", Symbol: "old"}, now.Add(-3*time.Hour)))
	require.NoError(t, store.RecordAdmission(ctx, cooldown.Key{Strategy: "s", Symbol: "fresh"}, now.Add(-10*time.Minute)))

	s := NewScheduler(ctx, store, 2*time.Hour, zerolog.Nop())
	s.Now = func() time.Time { return now }

	n, err := s.PruneNow()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, store.Len())
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), cooldown.NewMemoryStore(time.Minute, 0), time.Hour, zerolog.Nop())
	require.NoError(t, s.Register("@every 10m"))
	assert.Len(t, s.Cron.Entries(), 1)

	assert.Error(t, s.Register("every ten minutes"))

	s.Start()
	s.Stop()
}
