package analysis

import (
	"context"
	"log/slog"
	"time"
)

const (
	// CallTimeout is the hard deadline for one analysis call including
	// all retry attempts.
	CallTimeout = 10 * time.Minute

	maxAttempts    = 3
	initialBackoff = time.Second
)

// Retrier wraps an Analyzer with retry on transient upstream failures.
// Backoff doubles per attempt (1s, 2s, 4s). A call that has already
// emitted chunks is never retried: subscribers have observed partial
// output and a restart would duplicate it.
type Retrier struct {
	next   Analyzer
	logger *slog.Logger

	// sleep is replaceable in tests.
	sleep func(context.Context, time.Duration) error
}

var _ Analyzer = (*Retrier)(nil)

// NewRetrier wraps next with the retry policy.
func NewRetrier(next Analyzer, logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{next: next, logger: logger, sleep: sleepCtx}
}

func (r *Retrier) Stream(ctx context.Context, params Params, onChunk ChunkFunc) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		emitted := false
		full, err := r.next.Stream(ctx, params, func(text string) {
			emitted = true
			onChunk(text)
		})
		if err == nil {
			return full, nil
		}
		lastErr = err

		if emitted || !IsRetryable(err) || ctx.Err() != nil || attempt == maxAttempts {
			break
		}
		r.logger.Warn("analysis attempt failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err)
		if err := r.sleep(ctx, backoff); err != nil {
			break
		}
		backoff *= 2
	}
	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
