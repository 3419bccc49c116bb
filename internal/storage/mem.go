package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flemzord/phrasecue/pkg/analysis"
	"github.com/flemzord/phrasecue/pkg/clip"
)

// InMemorySegmentStore is a thread-safe, in-memory SegmentStore. It is the
// default backend when no SQLite store is configured and the primary test
// fixture.
type InMemorySegmentStore struct {
	mu       sync.RWMutex
	segments map[string]clip.Segment
}

// NewInMemorySegmentStore creates an empty segment store.
func NewInMemorySegmentStore() *InMemorySegmentStore {
	return &InMemorySegmentStore{segments: make(map[string]clip.Segment)}
}

var _ SegmentStore = (*InMemorySegmentStore)(nil)

func (s *InMemorySegmentStore) FindByFingerprint(_ context.Context, fp string) (*clip.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seg, ok := s.segments[fp]
	if !ok {
		return nil, ErrNotFound
	}
	return &seg, nil
}

func (s *InMemorySegmentStore) Insert(_ context.Context, seg clip.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.segments[seg.Fingerprint]; exists {
		return ErrDuplicate
	}
	if seg.CreatedAt.IsZero() {
		seg.CreatedAt = time.Now().UTC()
	}
	s.segments[seg.Fingerprint] = seg
	return nil
}

// InMemoryJobStore is a thread-safe, in-memory JobStore.
type InMemoryJobStore struct {
	mu   sync.RWMutex
	byFP map[string]*clip.Job
	byID map[string]*clip.Job
	fifo []string // fingerprints in creation order
}

// NewInMemoryJobStore creates an empty job store.
func NewInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{
		byFP: make(map[string]*clip.Job),
		byID: make(map[string]*clip.Job),
	}
}

var _ JobStore = (*InMemoryJobStore)(nil)

func (s *InMemoryJobStore) Create(_ context.Context, init JobInit) (*clip.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byFP[init.Fingerprint]; exists {
		return nil, ErrDuplicate
	}

	now := time.Now().UTC()
	job := &clip.Job{
		ID:          uuid.NewString(),
		Fingerprint: init.Fingerprint,
		Query:       init.Query,
		Canonical:   init.Canonical,
		Kind:        init.Kind,
		Status:      clip.StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.byFP[init.Fingerprint] = job
	s.byID[job.ID] = job
	s.fifo = append(s.fifo, init.Fingerprint)

	cp := *job
	return &cp, nil
}

func (s *InMemoryJobStore) FindByFingerprint(_ context.Context, fp string) (*clip.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.byFP[fp]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *InMemoryJobStore) FindByID(_ context.Context, id string) (*clip.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *InMemoryJobStore) SetStatus(_ context.Context, fp string, status clip.JobStatus, currentVideoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.byFP[fp]
	if !ok {
		return ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = status
	job.CurrentVideoID = currentVideoID
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryJobStore) SetResult(_ context.Context, fp string, seg clip.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.byFP[fp]
	if !ok {
		return ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = clip.StatusCompleted
	job.Result = &seg
	job.CurrentVideoID = ""
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryJobStore) SetError(_ context.Context, fp string, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.byFP[fp]
	if !ok {
		return ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = clip.StatusFailed
	job.Error = msg
	job.CurrentVideoID = ""
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryJobStore) ListQueued(_ context.Context) ([]*clip.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var queued []*clip.Job
	for _, fp := range s.fifo {
		if job := s.byFP[fp]; job.Status == clip.StatusQueued {
			cp := *job
			queued = append(queued, &cp)
		}
	}
	return queued, nil
}

// InMemoryWordIndex is a thread-safe, in-memory WordIndex.
type InMemoryWordIndex struct {
	mu      sync.RWMutex
	entries map[string]*clip.WordEntry
}

// NewInMemoryWordIndex creates an empty word index.
func NewInMemoryWordIndex() *InMemoryWordIndex {
	return &InMemoryWordIndex{entries: make(map[string]*clip.WordEntry)}
}

var _ WordIndex = (*InMemoryWordIndex)(nil)

func (s *InMemoryWordIndex) AddSegmentToWords(_ context.Context, words []string, ref clip.SegmentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, w := range words {
		entry, ok := s.entries[w]
		if !ok {
			entry = &clip.WordEntry{Word: w, CreatedAt: now}
			s.entries[w] = entry
		}
		if hasRef(entry.Examples, ref) {
			continue
		}
		entry.Examples = append(entry.Examples, ref)
		entry.UpdatedAt = now
	}
	return nil
}

func (s *InMemoryWordIndex) FindByWord(_ context.Context, w string) (*clip.WordEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[w]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *entry
	cp.Examples = append([]clip.SegmentRef(nil), entry.Examples...)
	return &cp, nil
}

func (s *InMemoryWordIndex) ListWords(_ context.Context, limit, offset int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	words := make([]string, 0, len(s.entries))
	for w := range s.entries {
		words = append(words, w)
	}
	sort.Strings(words)

	if offset >= len(words) {
		return nil, nil
	}
	words = words[offset:]
	if limit > 0 && limit < len(words) {
		words = words[:limit]
	}
	return words, nil
}

func (s *InMemoryWordIndex) Stats(_ context.Context) (clip.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := clip.IndexStats{TotalWords: len(s.entries)}
	for _, entry := range s.entries {
		stats.TotalMappings += len(entry.Examples)
	}
	return stats, nil
}

func hasRef(examples []clip.SegmentRef, ref clip.SegmentRef) bool {
	for _, e := range examples {
		if e.Same(ref) {
			return true
		}
	}
	return false
}

// InMemoryAnalysisStore is a thread-safe, in-memory AnalysisStore.
type InMemoryAnalysisStore struct {
	mu      sync.RWMutex
	records map[string]*analysis.Record
}

// NewInMemoryAnalysisStore creates an empty analysis store.
func NewInMemoryAnalysisStore() *InMemoryAnalysisStore {
	return &InMemoryAnalysisStore{records: make(map[string]*analysis.Record)}
}

var _ AnalysisStore = (*InMemoryAnalysisStore)(nil)

func (s *InMemoryAnalysisStore) FindByFingerprint(_ context.Context, fp string) (*analysis.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[fp]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	cp.Chunks = append([]analysis.Chunk(nil), rec.Chunks...)
	return &cp, nil
}

func (s *InMemoryAnalysisStore) Insert(_ context.Context, rec analysis.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.Fingerprint]; exists {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.LastAccessedAt.IsZero() {
		rec.LastAccessedAt = now
	}
	if rec.AccessCount < 1 {
		rec.AccessCount = 1
	}
	s.records[rec.Fingerprint] = &rec
	return nil
}

func (s *InMemoryAnalysisStore) Touch(_ context.Context, fp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[fp]
	if !ok {
		return ErrNotFound
	}
	rec.AccessCount++
	rec.LastAccessedAt = time.Now().UTC()
	return nil
}

// InMemoryQuotaStore is a thread-safe, in-memory QuotaStore.
type InMemoryQuotaStore struct {
	mu       sync.RWMutex
	counters map[string]Counter
}

// NewInMemoryQuotaStore creates an empty quota store.
func NewInMemoryQuotaStore() *InMemoryQuotaStore {
	return &InMemoryQuotaStore{counters: make(map[string]Counter)}
}

var _ QuotaStore = (*InMemoryQuotaStore)(nil)

func quotaKey(scope, identity string) string { return scope + "\x00" + identity }

func (s *InMemoryQuotaStore) Get(_ context.Context, scope, identity string) (Counter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[quotaKey(scope, identity)], nil
}

func (s *InMemoryQuotaStore) Set(_ context.Context, scope, identity string, c Counter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[quotaKey(scope, identity)] = c
	return nil
}

func (s *InMemoryQuotaStore) Prune(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, c := range s.counters {
		if c.WindowStart.Before(cutoff) {
			delete(s.counters, key)
		}
	}
	return nil
}
