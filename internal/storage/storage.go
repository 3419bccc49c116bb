// Package storage defines the durable store contracts for segments, jobs,
// the word index, analysis records, and quota counters, plus in-memory
// implementations used as the default backend and as test fixtures. The
// SQLite-backed implementations live in modules/store/sqlite.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/flemzord/phrasecue/pkg/analysis"
	"github.com/flemzord/phrasecue/pkg/clip"
)

// Sentinel errors shared by all store implementations.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrDuplicate indicates a unique-key violation. Callers that treat
	// duplicate inserts as success must check for it with errors.Is.
	ErrDuplicate = errors.New("storage: duplicate key")
)

// SegmentStore is the persistent cache of completed search results, keyed
// by fingerprint. Records are immutable and never evicted.
type SegmentStore interface {
	// FindByFingerprint returns the segment for fp, or ErrNotFound.
	FindByFingerprint(ctx context.Context, fp string) (*clip.Segment, error)

	// Insert stores a new segment. Returns ErrDuplicate when a segment
	// already exists for the fingerprint.
	Insert(ctx context.Context, seg clip.Segment) error
}

// JobInit carries the fields needed to enqueue a new job.
type JobInit struct {
	Fingerprint string
	Query       string
	Canonical   string
	Kind        clip.QueryKind
}

// JobStore is the persistent job queue. At most one job exists per
// fingerprint; terminal jobs never change again.
type JobStore interface {
	// Create enqueues a job in status queued. Returns ErrDuplicate when a
	// job already exists for the fingerprint; callers resolve by fetching
	// the existing job.
	Create(ctx context.Context, init JobInit) (*clip.Job, error)

	FindByFingerprint(ctx context.Context, fp string) (*clip.Job, error)
	FindByID(ctx context.Context, id string) (*clip.Job, error)

	// SetStatus advances a non-terminal job to a new phase. Transitions on
	// terminal jobs are silently ignored.
	SetStatus(ctx context.Context, fp string, status clip.JobStatus, currentVideoID string) error

	// SetResult terminalizes the job as completed with the given segment.
	SetResult(ctx context.Context, fp string, seg clip.Segment) error

	// SetError terminalizes the job as failed with the given message.
	SetError(ctx context.Context, fp string, msg string) error

	// ListQueued returns queued jobs in FIFO order by creation time.
	ListQueued(ctx context.Context) ([]*clip.Job, error)
}

// WordIndex maps each caption word to the segments it occurs in. The index
// is append-only at (word, videoID, start, end) granularity.
type WordIndex interface {
	// AddSegmentToWords appends ref under every word, atomically. A ref is
	// appended to an entry only if no existing example shares
	// (videoID, start, end); repeats are no-ops.
	AddSegmentToWords(ctx context.Context, words []string, ref clip.SegmentRef) error

	// FindByWord returns the entry for w, or ErrNotFound. Examples come
	// back in insertion order.
	FindByWord(ctx context.Context, w string) (*clip.WordEntry, error)

	// ListWords returns an alphabetical page of indexed words.
	ListWords(ctx context.Context, limit, offset int) ([]string, error)

	// Stats returns index totals.
	Stats(ctx context.Context) (clip.IndexStats, error)
}

// AnalysisStore is the persistent cache of completed sentence analyses.
type AnalysisStore interface {
	// FindByFingerprint returns the record for fp, or ErrNotFound.
	FindByFingerprint(ctx context.Context, fp string) (*analysis.Record, error)

	// Insert stores a new record. Returns ErrDuplicate on fingerprint reuse.
	Insert(ctx context.Context, rec analysis.Record) error

	// Touch increments the access count and stamps last-accessed time.
	Touch(ctx context.Context, fp string) error
}

// QuotaStore holds fixed-width sliding-window counters per identity and
// scope. A counter resets when its window has elapsed.
type QuotaStore interface {
	// Get returns the counter for (scope, identity). A missing counter is
	// returned as a zero Counter, not an error.
	Get(ctx context.Context, scope, identity string) (Counter, error)

	// Set stores the counter for (scope, identity).
	Set(ctx context.Context, scope, identity string, c Counter) error

	// Prune deletes counters whose window ended before cutoff.
	Prune(ctx context.Context, cutoff time.Time) error
}

// Counter is one sliding-window quota cell.
type Counter struct {
	Count       int
	WindowStart time.Time
}
