package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the registered maintenance jobs on their cron schedules.
// Each job is guarded by a per-job mutex acquired with TryLock, so a tick
// that fires while the previous run is still in flight is skipped rather
// than stacked. Sweeps are idempotent; a dropped tick is caught up by the
// next one.
type Scheduler struct {
	mu     sync.Mutex
	parser cron.Parser
	cron   *cron.Cron
	jobs   []Job
	names  map[string]struct{}
	locks  map[string]*sync.Mutex
	logger *slog.Logger
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. Jobs must be registered before Start().
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		names:  make(map[string]struct{}),
		locks:  make(map[string]*sync.Mutex),
		logger: logger,
	}
}

// RegisterJob adds a job to the scheduler. Must be called before Start().
// The schedule expression is validated here so a bad expression fails the
// module that registered it, not the whole scheduler at startup. Returns
// an error on a duplicate job name or an unparsable schedule.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.names[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}
	if _, err := s.parser.Parse(j.Schedule()); err != nil {
		return fmt.Errorf("cron: invalid schedule for job %q: %w", name, err)
	}

	s.names[name] = struct{}{}
	s.locks[name] = &sync.Mutex{}
	s.jobs = append(s.jobs, j)
	return nil
}

// Start begins executing registered jobs on their schedules.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.cron = cron.New(cron.WithParser(s.parser))

	for _, job := range s.jobs {
		lock := s.locks[job.Name()]

		_, err := s.cron.AddFunc(job.Schedule(), func() {
			// TryLock never blocks: if the previous sweep is still
			// running, skip this tick instead of queueing behind it.
			if !lock.TryLock() {
				s.logger.Warn("cron: sweep still running, skipping tick",
					"job", job.Name(),
				)
				return
			}
			defer lock.Unlock()

			started := time.Now()
			if err := job.Run(ctx); err != nil {
				s.logger.Error("cron: sweep failed",
					"job", job.Name(),
					"elapsed", time.Since(started),
					"error", err,
				)
				return
			}
			s.logger.Debug("cron: sweep completed",
				"job", job.Name(),
				"elapsed", time.Since(started),
			)
		})
		if err != nil {
			// Schedules were validated at registration, so this only
			// fires if a Job mutates its Schedule() afterwards.
			cancel()
			return fmt.Errorf("cron: invalid schedule for job %q: %w", job.Name(), err)
		}
	}

	s.cron.Start()
	s.logger.Info("cron: maintenance scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for in-flight sweeps.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		// Wait for running sweeps to complete.
		<-s.cron.Stop().Done()
		s.logger.Info("cron: maintenance scheduler stopped")
	}
	return nil
}
