package stream

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/pkg/analysis"
)

// ErrRegistryFull is returned when the stream cap is reached and no
// terminal idle stream can be evicted.
var ErrRegistryFull = errors.New("too many concurrent analysis streams")

// Options tunes the registry. The zero value is completed by defaults().
type Options struct {
	// MaxStreams caps simultaneous registrations.
	MaxStreams int `yaml:"max_streams"`

	// CompletedTTL is how long a completed stream lingers for late
	// joiners before cleanup.
	CompletedTTL time.Duration `yaml:"completed_ttl"`

	// ErroredTTL is how long an errored stream lingers before cleanup.
	ErroredTTL time.Duration `yaml:"errored_ttl"`

	Logger *slog.Logger `yaml:"-"`
}

func (o *Options) defaults() {
	if o.MaxStreams <= 0 {
		o.MaxStreams = 100
	}
	if o.CompletedTTL <= 0 {
		o.CompletedTTL = 5 * time.Minute
	}
	if o.ErroredTTL <= 0 {
		o.ErroredTTL = time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Registry is the per-fingerprint active-stream table. All exported
// methods are safe for concurrent use. For a given fingerprint, exactly
// one driver task runs the upstream call; every other caller becomes a
// subscriber.
type Registry struct {
	opts     Options
	analyzer analysis.Analyzer
	store    storage.AnalysisStore
	logger   *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	streams map[string]*stream

	drivers sync.WaitGroup

	// persistSleep is replaceable in tests.
	persistSleep func(time.Duration)
}

// NewRegistry creates a Registry. The analyzer drives upstream calls; the
// store receives completed transcripts.
func NewRegistry(analyzer analysis.Analyzer, store storage.AnalysisStore, opts Options) *Registry {
	opts.defaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		opts:         opts,
		analyzer:     analyzer,
		store:        store,
		logger:       opts.Logger.With("component", "stream.registry"),
		baseCtx:      ctx,
		cancel:       cancel,
		streams:      make(map[string]*stream),
		persistSleep: time.Sleep,
	}
}

// GetOrCreate returns the registration for fp, creating it and spawning
// the single driver task if none exists. The created flag reports whether
// this call was the owner.
func (r *Registry) GetOrCreate(fp string, params analysis.Params) (created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.streams[fp]; ok {
		return false, nil
	}
	if len(r.streams) >= r.opts.MaxStreams {
		r.evictLocked()
	}
	if len(r.streams) >= r.opts.MaxStreams {
		return false, ErrRegistryFull
	}

	s := newStream(fp, params, time.Now())
	r.streams[fp] = s
	metricStreamsActive.Inc()

	r.drivers.Add(1)
	go r.drive(s)
	return true, nil
}

// Subscribe attaches conn to the stream for fp. If the stream already has
// accumulated chunks, or is already terminal, a paced replay task delivers
// the backlog before live frames. Returns the subscriber id.
func (r *Registry) Subscribe(fp string, conn Conn) (string, error) {
	r.mu.Lock()
	s, ok := r.streams[fp]
	r.mu.Unlock()
	if !ok {
		return "", storage.ErrNotFound
	}

	id := uuid.NewString()
	s.mu.Lock()
	needsReplay := len(s.chunks) > 0 || s.status.Terminal()
	s.subscribers[id] = &subscriber{
		conn:      conn,
		joinedAt:  time.Now(),
		replaying: needsReplay,
	}
	s.mu.Unlock()
	metricSubscribers.Inc()

	if needsReplay {
		go r.replay(s, id)
	}
	return id, nil
}

// Unsubscribe detaches the subscriber. The driver task keeps running so
// the result is still persisted.
func (r *Registry) Unsubscribe(fp, id string) {
	r.mu.Lock()
	s, ok := r.streams[fp]
	r.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.subscribers, id)
	s.mu.Unlock()
}

// Close cancels every in-flight driver and waits for them to wind down.
func (r *Registry) Close(ctx context.Context) error {
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.drivers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of registered streams.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}

// drive is the single owner task for one stream. It runs the upstream
// call, publishing each delta, then settles the stream.
func (r *Registry) drive(s *stream) {
	defer r.drivers.Done()

	full, err := r.analyzer.Stream(r.baseCtx, s.params, func(text string) {
		r.publishChunk(s, text)
	})
	if err != nil {
		r.logger.Error("analysis stream failed",
			"fingerprint", s.fingerprint,
			"error", err)
		r.settleError(s, "Analysis failed. Please try again.")
		return
	}
	r.settleComplete(s, full)
}

// publishChunk appends one delta to the log and delivers it to every live
// (non-replaying) subscriber. Writes happen under the stream lock so all
// subscribers observe the log order.
func (r *Registry) publishChunk(s *stream, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = append(s.chunks, analysis.Chunk{
		Text:      text,
		Timestamp: time.Since(s.createdAt).Milliseconds(),
	})
	s.accumulated.WriteString(text)
	metricChunksPublished.Inc()

	for id, sub := range s.subscribers {
		if sub.replaying {
			continue
		}
		if err := sub.conn.SendChunk(text); err != nil {
			delete(s.subscribers, id)
		}
	}
}

// settleComplete marks the stream completed, emits the terminal frame to
// live subscribers, kicks off persistence, and schedules cleanup.
func (r *Registry) settleComplete(s *stream, full string) {
	s.mu.Lock()
	s.status = StatusCompleted
	s.completedAt = time.Now()
	if full == "" {
		full = s.accumulated.String()
	}
	s.full = full
	chunks := s.chunks[:len(s.chunks):len(s.chunks)]
	for id, sub := range s.subscribers {
		if sub.replaying {
			continue
		}
		_ = sub.conn.SendDone(full)
		delete(s.subscribers, id)
	}
	s.mu.Unlock()

	go r.persist(s.params, full, chunks)
	r.scheduleCleanup(s.fingerprint, r.opts.CompletedTTL)
}

// settleError marks the stream errored and emits the error frame to live
// subscribers. Nothing is persisted.
func (r *Registry) settleError(s *stream, msg string) {
	s.mu.Lock()
	s.status = StatusErrored
	s.errMsg = msg
	s.completedAt = time.Now()
	for id, sub := range s.subscribers {
		if sub.replaying {
			continue
		}
		_ = sub.conn.SendError(msg)
		delete(s.subscribers, id)
	}
	s.mu.Unlock()

	r.scheduleCleanup(s.fingerprint, r.opts.ErroredTTL)
}

// scheduleCleanup removes the stream after wait, but only once it is
// terminal with no subscribers. A late joiner inside the window keeps the
// stream alive; the sweep in the maintenance cron catches leftovers.
func (r *Registry) scheduleCleanup(fp string, wait time.Duration) {
	time.AfterFunc(wait, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		s, ok := r.streams[fp]
		if !ok {
			return
		}
		s.mu.Lock()
		idle := s.status.Terminal() && len(s.subscribers) == 0
		s.mu.Unlock()
		if idle {
			delete(r.streams, fp)
			metricStreamsActive.Dec()
		}
	})
}

// SweepTerminal removes every terminal zero-subscriber stream older than
// maxAge. Returns how many were removed.
func (r *Registry) SweepTerminal(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for fp, s := range r.streams {
		s.mu.Lock()
		stale := s.status.Terminal() && len(s.subscribers) == 0 && s.completedAt.Before(cutoff)
		s.mu.Unlock()
		if stale {
			delete(r.streams, fp)
			metricStreamsActive.Dec()
			removed++
		}
	}
	return removed
}

// evictLocked frees capacity by dropping the oldest completed
// zero-subscriber streams, at most a tenth of the completed population per
// pass. Caller holds r.mu.
func (r *Registry) evictLocked() {
	type idle struct {
		fp          string
		completedAt time.Time
	}
	var (
		candidates []idle
		completed  int
	)
	for fp, s := range r.streams {
		s.mu.Lock()
		if s.status == StatusCompleted {
			completed++
			if len(s.subscribers) == 0 {
				candidates = append(candidates, idle{fp, s.completedAt})
			}
		}
		s.mu.Unlock()
	}
	if len(candidates) == 0 {
		return
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].completedAt.Before(candidates[j].completedAt)
	})
	limit := completed / 10
	if limit < 1 {
		limit = 1
	}
	if limit > len(candidates) {
		limit = len(candidates)
	}
	for _, c := range candidates[:limit] {
		delete(r.streams, c.fp)
		metricStreamsActive.Dec()
		metricStreamsEvicted.Inc()
	}
}
