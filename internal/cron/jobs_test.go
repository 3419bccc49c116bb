package cron

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// testPruner implements CounterPruner for job tests.
type testPruner struct {
	calls    atomic.Int32
	pruneErr error
	cutoff   time.Time
}

func (p *testPruner) Prune(_ context.Context, cutoff time.Time) error {
	p.calls.Add(1)
	p.cutoff = cutoff
	return p.pruneErr
}

// testSweeper implements TerminalSweeper for job tests.
type testSweeper struct {
	calls   atomic.Int32
	removed int
	maxAge  time.Duration
}

func (s *testSweeper) SweepTerminal(maxAge time.Duration) int {
	s.calls.Add(1)
	s.maxAge = maxAge
	return s.removed
}

func TestScratchSweepJob_Name(t *testing.T) {
	t.Parallel()
	j := &ScratchSweepJob{Logger: slog.Default()}
	if j.Name() != "scratch_sweep" {
		t.Errorf("name = %q, want %q", j.Name(), "scratch_sweep")
	}
}

func TestScratchSweepJob_Schedule(t *testing.T) {
	t.Parallel()
	j := &ScratchSweepJob{Logger: slog.Default()}
	if j.Schedule() != "*/15 * * * *" {
		t.Errorf("schedule = %q, want %q", j.Schedule(), "*/15 * * * *")
	}
}

func TestScratchSweepJob_RemovesStaleEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stale := filepath.Join(dir, "stale.m4a")
	fresh := filepath.Join(dir, "fresh.vtt")
	for _, path := range []string{stale, fresh} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	j := &ScratchSweepJob{Dir: dir, MaxAge: time.Hour, Logger: slog.Default()}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Error("stale file should have been removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh file should survive: %v", err)
	}
}

func TestScratchSweepJob_MissingDirIsNoop(t *testing.T) {
	t.Parallel()

	j := &ScratchSweepJob{
		Dir:    filepath.Join(t.TempDir(), "never-created"),
		MaxAge: time.Hour,
		Logger: slog.Default(),
	}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQuotaPruneJob_Run(t *testing.T) {
	t.Parallel()

	pruner := &testPruner{}
	j := &QuotaPruneJob{
		Store:     pruner,
		Retention: 24 * time.Hour,
		Logger:    slog.Default(),
	}

	before := time.Now().Add(-24 * time.Hour)
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pruner.calls.Load() != 1 {
		t.Errorf("prune calls = %d, want 1", pruner.calls.Load())
	}
	if pruner.cutoff.Before(before.Add(-time.Minute)) {
		t.Errorf("cutoff = %v, want roughly now-24h", pruner.cutoff)
	}
}

func TestQuotaPruneJob_PropagatesError(t *testing.T) {
	t.Parallel()

	pruner := &testPruner{pruneErr: errors.New("disk full")}
	j := &QuotaPruneJob{Store: pruner, Retention: time.Hour, Logger: slog.Default()}
	if err := j.Run(context.Background()); err == nil {
		t.Fatal("expected error from failing store")
	}
}

func TestStreamSweepJob_Run(t *testing.T) {
	t.Parallel()

	sweeper := &testSweeper{removed: 2}
	j := &StreamSweepJob{
		Registry: sweeper,
		MaxAge:   10 * time.Minute,
		Logger:   slog.Default(),
	}

	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sweeper.calls.Load() != 1 {
		t.Errorf("sweep calls = %d, want 1", sweeper.calls.Load())
	}
	if sweeper.maxAge != 10*time.Minute {
		t.Errorf("maxAge = %v, want 10m", sweeper.maxAge)
	}
}

func TestStreamSweepJob_CancelledContext(t *testing.T) {
	t.Parallel()

	sweeper := &testSweeper{}
	j := &StreamSweepJob{Registry: sweeper, MaxAge: time.Minute, Logger: slog.Default()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := j.Run(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if sweeper.calls.Load() != 0 {
		t.Error("sweep should not run after cancellation")
	}
}

func TestSubscriptionSweepJob_Run(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	j := &SubscriptionSweepJob{
		Cache:  cacheSweeperFunc(func() { calls.Add(1) }),
		Logger: slog.Default(),
	}

	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("sweep calls = %d, want 1", calls.Load())
	}
}

// cacheSweeperFunc adapts a func to CacheSweeper.
type cacheSweeperFunc func()

func (f cacheSweeperFunc) SweepSubscriptionCache() { f() }
