package cron

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// CounterPruner is the subset of storage.QuotaStore needed by cron jobs.
// Defined here to keep the jobs decoupled from the storage package.
type CounterPruner interface {
	Prune(ctx context.Context, cutoff time.Time) error
}

// TerminalSweeper removes idle terminal entries from the stream registry.
type TerminalSweeper interface {
	SweepTerminal(maxAge time.Duration) int
}

// CacheSweeper drops expired entries from the subscription cache.
type CacheSweeper interface {
	SweepSubscriptionCache()
}

// ScratchSweepJob deletes leftover audio and caption files from the
// pipeline scratch directory. Workers clean up after themselves, so
// anything still present after MaxAge was orphaned by a crash.
type ScratchSweepJob struct {
	Dir          string
	MaxAge       time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/15 * * * *"
}

// Compile-time interface check.
var _ Job = (*ScratchSweepJob)(nil)

// Name implements Job.
func (j *ScratchSweepJob) Name() string { return "scratch_sweep" }

// Schedule implements Job.
func (j *ScratchSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/15 * * * *"
}

// Run removes entries under Dir whose mtime is older than MaxAge.
func (j *ScratchSweepJob) Run(ctx context.Context) error {
	entries, err := os.ReadDir(j.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cron: read scratch dir: %w", err)
	}

	cutoff := time.Now().Add(-j.MaxAge)
	removed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.Dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			j.Logger.Warn("cron: failed to remove scratch entry",
				"path", path,
				"error", err,
			)
			continue
		}
		removed++
	}
	if removed > 0 {
		j.Logger.Info("cron: swept orphaned scratch files", "count", removed)
	}
	return nil
}

// QuotaPruneJob deletes quota counters whose window ended before the
// retention horizon. Expired counters are dead weight: a fresh request
// resets its window anyway.
type QuotaPruneJob struct {
	Store        CounterPruner
	Retention    time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "0 * * * *"
}

// Compile-time interface check.
var _ Job = (*QuotaPruneJob)(nil)

// Name implements Job.
func (j *QuotaPruneJob) Name() string { return "quota_prune" }

// Schedule implements Job.
func (j *QuotaPruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 * * * *"
}

// Run prunes counters older than Retention.
func (j *QuotaPruneJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.Retention)
	if err := j.Store.Prune(ctx, cutoff); err != nil {
		return fmt.Errorf("cron: prune quota counters: %w", err)
	}
	j.Logger.Debug("cron: pruned expired quota counters", "cutoff", cutoff)
	return nil
}

// StreamSweepJob evicts terminal streams that kept zero subscribers past
// MaxAge. The registry already schedules per-stream cleanup timers; this
// job is the backstop for timers lost to racing subscribes.
type StreamSweepJob struct {
	Registry     TerminalSweeper
	MaxAge       time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/5 * * * *"
}

// Compile-time interface check.
var _ Job = (*StreamSweepJob)(nil)

// Name implements Job.
func (j *StreamSweepJob) Name() string { return "stream_sweep" }

// Schedule implements Job.
func (j *StreamSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run removes idle terminal streams older than MaxAge.
func (j *StreamSweepJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: stream sweep cancelled: %w", ctx.Err())
	}
	removed := j.Registry.SweepTerminal(j.MaxAge)
	if removed > 0 {
		j.Logger.Info("cron: swept terminal streams", "count", removed)
	}
	return nil
}

// SubscriptionSweepJob drops expired subscription cache entries so
// lapsed subscribers do not linger in memory between requests.
type SubscriptionSweepJob struct {
	Cache        CacheSweeper
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/5 * * * *"
}

// Compile-time interface check.
var _ Job = (*SubscriptionSweepJob)(nil)

// Name implements Job.
func (j *SubscriptionSweepJob) Name() string { return "subscription_sweep" }

// Schedule implements Job.
func (j *SubscriptionSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run sweeps the subscription cache.
func (j *SubscriptionSweepJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: subscription sweep cancelled: %w", ctx.Err())
	}
	j.Cache.SweepSubscriptionCache()
	return nil
}
