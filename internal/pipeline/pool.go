package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/pkg/clip"
)

// Pool is the bounded-concurrency job scheduler. A single driver goroutine
// polls the job store; eligible jobs (queued, fingerprint not already in
// flight) are dispatched to their own goroutines up to the concurrency
// bound. The driver never blocks on a running job, and any job completion
// wakes it immediately so sustained throughput equals the worker count.
type Pool struct {
	pipeline *Pipeline
	jobs     storage.JobStore
	logger   *slog.Logger

	pollInterval time.Duration
	sem          *semaphore.Weighted

	mu       sync.Mutex
	inflight map[string]struct{} // fingerprints with a running driver

	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewPool creates a Pool around the given pipeline.
func NewPool(p *Pipeline) *Pool {
	return &Pool{
		pipeline:     p,
		jobs:         p.jobs,
		logger:       p.logger.With("component", "pool"),
		pollInterval: p.cfg.PollInterval,
		sem:          semaphore.NewWeighted(int64(p.cfg.MaxConcurrentJobs)),
		inflight:     make(map[string]struct{}),
		wake:         make(chan struct{}, 1),
	}
}

// Start launches the driver goroutine.
func (p *Pool) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		p.drive(ctx)
	}()
}

// Stop signals the driver to exit and waits for in-flight jobs to finish.
// Cancellation is cooperative; running jobs are allowed to complete.
func (p *Pool) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	<-p.done

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wake nudges the driver to re-poll immediately, e.g. right after a new job
// was enqueued.
func (p *Pool) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pool) drive(ctx context.Context) {
	timer := time.NewTimer(p.pollInterval)
	defer timer.Stop()

	for {
		p.dispatchBatch(ctx)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(p.pollInterval)

		select {
		case <-ctx.Done():
			return
		case <-p.wake:
		case <-timer.C:
		}
	}
}

// dispatchBatch starts a driver goroutine for every eligible queued job for
// which a worker slot is free.
func (p *Pool) dispatchBatch(ctx context.Context) {
	queued, err := p.jobs.ListQueued(ctx)
	if err != nil {
		p.logger.Error("poll queue", "error", err)
		return
	}

	for _, job := range queued {
		if ctx.Err() != nil {
			return
		}
		if !p.claim(job.Fingerprint) {
			continue
		}
		if !p.sem.TryAcquire(1) {
			p.release(job.Fingerprint)
			return // all slots busy; a completion will wake the driver
		}

		p.wg.Add(1)
		jobsInFlight.Inc()
		// Jobs are detached from the driver's cancellation: stopping the
		// pool lets in-flight jobs run to their terminal state.
		jobCtx := context.WithoutCancel(ctx)
		go func(job *clip.Job) {
			defer func() {
				p.sem.Release(1)
				p.release(job.Fingerprint)
				jobsInFlight.Dec()
				p.wg.Done()
				p.Wake() // re-poll with no delay
			}()
			p.pipeline.Execute(jobCtx, job)
		}(job)
	}
}

// claim marks a fingerprint in flight. Returns false when a driver already
// holds it.
func (p *Pool) claim(fp string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, running := p.inflight[fp]; running {
		return false
	}
	p.inflight[fp] = struct{}{}
	return true
}

func (p *Pool) release(fp string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, fp)
}
