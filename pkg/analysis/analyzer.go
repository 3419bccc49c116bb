package analysis

import (
	"context"
	"errors"
)

// Sentinel errors for upstream analysis calls.
var (
	// ErrRateLimited indicates the upstream model returned a rate limit
	// response.
	ErrRateLimited = errors.New("analysis provider rate limited")

	// ErrUnavailable indicates the upstream model is temporarily down.
	ErrUnavailable = errors.New("analysis provider unavailable")

	// ErrInvalidRequest indicates the upstream rejected the request as
	// malformed. Never retried.
	ErrInvalidRequest = errors.New("analysis request rejected")

	// ErrUnauthorized indicates bad or missing upstream credentials.
	// Never retried.
	ErrUnauthorized = errors.New("analysis provider unauthorized")
)

// IsRetryable reports whether the error is transient and the call can be
// attempted again after a delay.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

// ChunkFunc receives one incremental piece of streamed model output.
type ChunkFunc func(text string)

// Analyzer streams a linguistic analysis of one sentence. Implementations
// call onChunk once per upstream delta, in arrival order, and return the
// full accumulated text. Initial connection errors are returned directly;
// a mid-stream failure is returned after whatever chunks were delivered.
type Analyzer interface {
	Stream(ctx context.Context, params Params, onChunk ChunkFunc) (string, error)
}
