package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altafino/mdimg-publish/internal/types"
)

type recordingRunner struct {
	mu   sync.Mutex
	docs []string
}

func (r *recordingRunner) run(_ context.Context, _ *types.Config, doc string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, doc)
	return nil
}

func newTestScheduler(r *recordingRunner) *Scheduler {
	s := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)), r.run)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func scheduledConfig() *types.Config {
	cfg := &types.Config{}
	cfg.Meta.ID = "blog"
	cfg.Scheduling.Enabled = true
	cfg.Scheduling.FrequencyEvery = "hour"
	cfg.Scheduling.FrequencyAmount = 2
	cfg.Scheduling.Documents = []string{"posts/a.md", "posts/b.md"}
	return cfg
}

func TestUpdateJob(t *testing.T) {
	r := &recordingRunner{}
	s := newTestScheduler(r)

	require.NoError(t, s.UpdateJob(scheduledConfig()))
	assert.Equal(t, []string{"blog"}, s.Jobs())
	assert.Empty(t, r.docs)

	// updating replaces rather than duplicates
	require.NoError(t, s.UpdateJob(scheduledConfig()))
	assert.Len(t, s.Jobs(), 1)

	s.RemoveJob("blog")
	assert.Empty(t, s.Jobs())
}

func TestUpdateJobStartNow(t *testing.T) {
	r := &recordingRunner{}
	s := newTestScheduler(r)

	cfg := scheduledConfig()
	cfg.Scheduling.StartNow = true
	require.NoError(t, s.UpdateJob(cfg))
	assert.Equal(t, []string{"posts/a.md", "posts/b.md"}, r.docs)
}

func TestUpdateJobSkips(t *testing.T) {
	s := newTestScheduler(&recordingRunner{})

	disabled := scheduledConfig()
	disabled.Scheduling.Enabled = false
	require.NoError(t, s.UpdateJob(disabled))
	assert.Empty(t, s.Jobs())

	expired := scheduledConfig()
	expired.Scheduling.StopAt = "2024-04-30T00:00:00Z"
	require.NoError(t, s.UpdateJob(expired))
	assert.Empty(t, s.Jobs())
}

func TestUpdateJobErrors(t *testing.T) {
	s := newTestScheduler(&recordingRunner{})

	badFrequency := scheduledConfig()
	badFrequency.Scheduling.FrequencyEvery = "fortnight"
	assert.ErrorContains(t, s.UpdateJob(badFrequency), "invalid frequency")

	badStop := scheduledConfig()
	badStop.Scheduling.StopAt = "tomorrow"
	assert.ErrorContains(t, s.UpdateJob(badStop), "invalid stop time")
}
