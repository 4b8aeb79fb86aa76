package scheduler

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecturealarm/internal/pkg/logger"
)

func TestOneShotSpec(t *testing.T) {
	at := time.Date(2026, time.October, 12, 8, 45, 0, 0, time.UTC)
	assert.Equal(t, "0 45 8 12 10 *", OneShotSpec(at, time.UTC))

	plus2 := time.FixedZone("EET", 2*60*60)
	assert.Equal(t, "0 45 10 12 10 *", OneShotSpec(at, plus2))
}

func TestOneShotSpec_NextMatchesInstant(t *testing.T) {
	loc := time.FixedZone("EET", 2*60*60)
	at := time.Date(2026, time.December, 31, 23, 55, 0, 0, loc)

	sched, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).
		Parse(OneShotSpec(at, loc))
	require.NoError(t, err)

	next := sched.Next(at.Add(-time.Hour))
	assert.True(t, next.Equal(at), "next %v, want %v", next, at)
}

func TestScheduler_AddRemove(t *testing.T) {
	s := NewScheduler(time.UTC, logger.NewWithLevel(io.Discard, logger.LevelError))
	defer s.Stop()

	id, err := s.AddJob("0 0 9 1 1 *", func() {})
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 1)
	assert.Equal(t, time.UTC, s.Location())

	s.RemoveJob(id)
	assert.Empty(t, s.cron.Entries())

	_, err = s.AddJob("not a spec", func() {})
	assert.Error(t, err)
}

func TestScheduler_StopWhileJobReschedules(t *testing.T) {
	s := NewScheduler(time.UTC, logger.NewWithLevel(io.Discard, logger.LevelError))

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	_, err := s.AddJob("* * * * * *", func() {
		first := false
		once.Do(func() {
			first = true
			close(started)
		})
		if !first {
			return
		}
		<-release
		// A delivered alarm removes itself and registers next week's run.
		s.RemoveJob(0)
		_, _ = s.AddJob("0 0 9 1 1 *", func() {})
	})
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	// Let Stop begin waiting on the running job.
	time.Sleep(100 * time.Millisecond)
	close(release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the running job finished")
	}
}
