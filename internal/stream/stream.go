// Package stream implements the analysis stream coalescer: a
// per-fingerprint registry that guarantees at most one upstream model call
// per fingerprint, fans incremental output out to every subscriber, replays
// accumulated output to late joiners with pacing, and persists completed
// streams as replayable transcripts.
package stream

import (
	"strings"
	"sync"
	"time"

	"github.com/flemzord/phrasecue/pkg/analysis"
)

// Status is the lifecycle state of an active stream.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusErrored   Status = "errored"
)

// Terminal reports whether no further chunks will be published.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusErrored
}

// Conn is one subscriber connection. Implementations frame payloads for
// their transport (SSE, websocket). A write error marks the connection
// dead and the registry drops the subscriber.
type Conn interface {
	// SendChunk delivers one incremental chunk.
	SendChunk(text string) error

	// SendDone delivers the terminal frame with the full accumulated
	// response. The transport should close after this.
	SendDone(fullResponse string) error

	// SendError delivers a shaped error payload. The transport should
	// close after this.
	SendError(msg string) error

	// Open reports whether the connection can still be written to.
	Open() bool
}

// subscriber is one attached connection. Subscribers hold no pointer back
// to their stream, only the registry keeps that edge.
type subscriber struct {
	conn      Conn
	joinedAt  time.Time
	replaying bool
}

// stream is one active registration. The registry mutex guards the table;
// this mutex guards everything below it, so mutations on different
// fingerprints never contend.
type stream struct {
	fingerprint string
	params      analysis.Params
	createdAt   time.Time

	mu          sync.Mutex
	subscribers map[string]*subscriber
	chunks      []analysis.Chunk
	accumulated strings.Builder
	status      Status
	// full is the analyzer-returned final text, settled on completion.
	// Terminal frames always carry this value so live subscribers and
	// late joiners see the same fullResponse.
	full        string
	errMsg      string
	completedAt time.Time
}

func newStream(fp string, params analysis.Params, now time.Time) *stream {
	return &stream{
		fingerprint: fp,
		params:      params,
		createdAt:   now,
		subscribers: make(map[string]*subscriber),
		status:      StatusActive,
	}
}

// snapshotChunks returns a consistent prefix of the chunk log. The log is
// append-only, so the returned slice stays valid after the lock is
// released.
func (s *stream) snapshotChunks() []analysis.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks[:len(s.chunks):len(s.chunks)]
}
