package stream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/pkg/analysis"
)

// analysisJSON is a complete upstream response split into deltas the way a
// model would stream it.
var analysisJSON = []string{
	`{"fullTranslation": "Hello world",`,
	` "literalTranslation": "Hello world",`,
	` "grammarAnalysis": "A simple greeting."}`,
}

// scriptedAnalyzer emits a fixed chunk sequence. If gate is non-nil the
// call blocks after the chunks until the gate closes, keeping the stream
// active so tests can attach late joiners deterministically. When final is
// set it is returned instead of the chunk concatenation.
type scriptedAnalyzer struct {
	chunks []string
	final  string
	err    error
	gate   chan struct{}
	calls  atomic.Int32
}

func (a *scriptedAnalyzer) Stream(ctx context.Context, _ analysis.Params, onChunk analysis.ChunkFunc) (string, error) {
	a.calls.Add(1)
	for _, c := range a.chunks {
		onChunk(c)
	}
	if a.gate != nil {
		select {
		case <-a.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if a.err != nil {
		return "", a.err
	}
	if a.final != "" {
		return a.final, nil
	}
	return strings.Join(a.chunks, ""), nil
}

// testConn records every frame it receives.
type testConn struct {
	mu     sync.Mutex
	chunks []string
	dones  []string
	errors []string
	closed bool
}

func (c *testConn) SendChunk(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	c.chunks = append(c.chunks, text)
	return nil
}

func (c *testConn) SendDone(full string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dones = append(c.dones, full)
	return nil
}

func (c *testConn) SendError(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, msg)
	return nil
}

func (c *testConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *testConn) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *testConn) snapshot() (chunks, dones, errs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.chunks...),
		append([]string(nil), c.dones...),
		append([]string(nil), c.errors...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func params(sentence string) analysis.Params {
	return analysis.Params{
		Sentence:       sentence,
		TargetWord:     "hello",
		TargetLanguage: "en",
		NativeLanguage: "fr",
	}
}

func TestRegistry_CoalescesDuplicateFingerprints(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	az := &scriptedAnalyzer{chunks: analysisJSON, gate: gate}
	r := NewRegistry(az, storage.NewInMemoryAnalysisStore(), Options{})
	defer func() { _ = r.Close(context.Background()) }()

	created, err := r.GetOrCreate("fp1", params("hello world"))
	if err != nil || !created {
		t.Fatalf("first GetOrCreate = (%v, %v), want (true, nil)", created, err)
	}
	created, err = r.GetOrCreate("fp1", params("hello world"))
	if err != nil || created {
		t.Fatalf("second GetOrCreate = (%v, %v), want (false, nil)", created, err)
	}

	a, b := &testConn{}, &testConn{}
	if _, err := r.Subscribe("fp1", a); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Subscribe("fp1", b); err != nil {
		t.Fatal(err)
	}

	close(gate)
	waitFor(t, 2*time.Second, func() bool {
		_, doneA, _ := a.snapshot()
		_, doneB, _ := b.snapshot()
		return len(doneA) == 1 && len(doneB) == 1
	})

	if got := az.calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
	want := strings.Join(analysisJSON, "")
	for name, conn := range map[string]*testConn{"a": a, "b": b} {
		chunks, dones, _ := conn.snapshot()
		if got := strings.Join(chunks, ""); got != want {
			t.Errorf("%s: chunks = %q, want %q", name, got, want)
		}
		if dones[0] != want {
			t.Errorf("%s: done frame = %q, want %q", name, dones[0], want)
		}
	}
}

func TestRegistry_LiveBroadcastOrder(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	az := &scriptedAnalyzer{gate: gate}
	r := NewRegistry(az, storage.NewInMemoryAnalysisStore(), Options{})
	defer func() { _ = r.Close(context.Background()) }()

	if _, err := r.GetOrCreate("fp1", params("hi")); err != nil {
		t.Fatal(err)
	}
	conn := &testConn{}
	if _, err := r.Subscribe("fp1", conn); err != nil {
		t.Fatal(err)
	}

	r.mu.Lock()
	s := r.streams["fp1"]
	r.mu.Unlock()
	for _, c := range analysisJSON {
		r.publishChunk(s, c)
	}

	chunks, _, _ := conn.snapshot()
	for i, want := range analysisJSON {
		if chunks[i] != want {
			t.Fatalf("chunk[%d] = %q, want %q", i, chunks[i], want)
		}
	}
	close(gate)
}

func TestRegistry_LateJoinerReplays(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	az := &scriptedAnalyzer{chunks: analysisJSON, gate: gate}
	r := NewRegistry(az, storage.NewInMemoryAnalysisStore(), Options{})
	defer func() { _ = r.Close(context.Background()) }()

	if _, err := r.GetOrCreate("fp1", params("hello world")); err != nil {
		t.Fatal(err)
	}

	// All chunks are in the log before the subscriber attaches.
	waitFor(t, 2*time.Second, func() bool {
		r.mu.Lock()
		s := r.streams["fp1"]
		r.mu.Unlock()
		return len(s.snapshotChunks()) == len(analysisJSON)
	})

	conn := &testConn{}
	if _, err := r.Subscribe("fp1", conn); err != nil {
		t.Fatal(err)
	}
	close(gate)

	waitFor(t, 2*time.Second, func() bool {
		_, dones, _ := conn.snapshot()
		return len(dones) == 1
	})

	chunks, dones, _ := conn.snapshot()
	if len(chunks) != len(analysisJSON) {
		t.Fatalf("got %d chunks, want %d (no loss, no duplication)", len(chunks), len(analysisJSON))
	}
	for i, want := range analysisJSON {
		if chunks[i] != want {
			t.Errorf("chunk[%d] = %q, want %q", i, chunks[i], want)
		}
	}
	if want := strings.Join(analysisJSON, ""); dones[0] != want {
		t.Errorf("done frame = %q, want %q", dones[0], want)
	}
}

func TestRegistry_ErrorFrameAndCleanup(t *testing.T) {
	t.Parallel()

	az := &scriptedAnalyzer{err: analysis.ErrUnavailable}
	r := NewRegistry(az, storage.NewInMemoryAnalysisStore(), Options{ErroredTTL: 20 * time.Millisecond})
	defer func() { _ = r.Close(context.Background()) }()

	// Subscribe through a gated variant so the error lands after attach.
	gate := make(chan struct{})
	az.gate = gate
	if _, err := r.GetOrCreate("fp1", params("broken")); err != nil {
		t.Fatal(err)
	}
	conn := &testConn{}
	if _, err := r.Subscribe("fp1", conn); err != nil {
		t.Fatal(err)
	}
	close(gate)

	waitFor(t, 2*time.Second, func() bool {
		_, _, errs := conn.snapshot()
		return len(errs) == 1
	})
	waitFor(t, 2*time.Second, func() bool { return r.Len() == 0 })
}

func TestRegistry_UnsubscribedStreamStillPersists(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	az := &scriptedAnalyzer{chunks: analysisJSON, gate: gate}
	store := storage.NewInMemoryAnalysisStore()
	r := NewRegistry(az, store, Options{})
	defer func() { _ = r.Close(context.Background()) }()

	p := params("hello world")
	if _, err := r.GetOrCreate("ignored", p); err != nil {
		t.Fatal(err)
	}
	conn := &testConn{}
	id, err := r.Subscribe("ignored", conn)
	if err != nil {
		t.Fatal(err)
	}
	r.Unsubscribe("ignored", id)
	close(gate)

	fp := analysisFingerprint(p)
	waitFor(t, 2*time.Second, func() bool {
		_, err := store.FindByFingerprint(context.Background(), fp)
		return err == nil
	})

	rec, err := store.FindByFingerprint(context.Background(), fp)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Result.FullTranslation != "Hello world" {
		t.Errorf("persisted translation = %q", rec.Result.FullTranslation)
	}
	if len(rec.Chunks) != len(analysisJSON) {
		t.Errorf("persisted %d chunks, want %d", len(rec.Chunks), len(analysisJSON))
	}
	if rec.AccessCount != 1 {
		t.Errorf("access count = %d, want 1", rec.AccessCount)
	}
}

func TestRegistry_CapacityEvictsCompletedIdle(t *testing.T) {
	t.Parallel()

	az := &scriptedAnalyzer{chunks: analysisJSON}
	r := NewRegistry(az, storage.NewInMemoryAnalysisStore(), Options{MaxStreams: 2})
	defer func() { _ = r.Close(context.Background()) }()

	for _, fp := range []string{"fp1", "fp2"} {
		if _, err := r.GetOrCreate(fp, params(fp)); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, 2*time.Second, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, s := range r.streams {
			s.mu.Lock()
			terminal := s.status.Terminal()
			s.mu.Unlock()
			if !terminal {
				return false
			}
		}
		return true
	})

	created, err := r.GetOrCreate("fp3", params("fp3"))
	if err != nil || !created {
		t.Fatalf("GetOrCreate after eviction = (%v, %v), want (true, nil)", created, err)
	}
}

func TestRegistry_CapacityRejectsWhenAllActive(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	defer close(gate)
	az := &scriptedAnalyzer{gate: gate}
	r := NewRegistry(az, storage.NewInMemoryAnalysisStore(), Options{MaxStreams: 1})
	defer func() { _ = r.Close(context.Background()) }()

	if _, err := r.GetOrCreate("fp1", params("fp1")); err != nil {
		t.Fatal(err)
	}
	if _, err := r.GetOrCreate("fp2", params("fp2")); !errors.Is(err, ErrRegistryFull) {
		t.Fatalf("err = %v, want ErrRegistryFull", err)
	}
}

func TestRegistry_DeadConnectionDropped(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	az := &scriptedAnalyzer{gate: gate}
	r := NewRegistry(az, storage.NewInMemoryAnalysisStore(), Options{})
	defer func() { _ = r.Close(context.Background()) }()

	if _, err := r.GetOrCreate("fp1", params("x")); err != nil {
		t.Fatal(err)
	}
	conn := &testConn{}
	if _, err := r.Subscribe("fp1", conn); err != nil {
		t.Fatal(err)
	}
	conn.close()

	r.mu.Lock()
	s := r.streams["fp1"]
	r.mu.Unlock()
	r.publishChunk(s, "chunk")

	s.mu.Lock()
	n := len(s.subscribers)
	s.mu.Unlock()
	if n != 0 {
		t.Errorf("dead subscriber not removed, %d left", n)
	}
	close(gate)
}

// failNStore fails the first n inserts, then delegates.
type failNStore struct {
	storage.AnalysisStore
	mu   sync.Mutex
	fail int
}

func (s *failNStore) Insert(ctx context.Context, rec analysis.Record) error {
	s.mu.Lock()
	if s.fail > 0 {
		s.fail--
		s.mu.Unlock()
		return errors.New("transient")
	}
	s.mu.Unlock()
	return s.AnalysisStore.Insert(ctx, rec)
}

func TestPersist_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	inner := storage.NewInMemoryAnalysisStore()
	store := &failNStore{AnalysisStore: inner, fail: 2}
	r := NewRegistry(&scriptedAnalyzer{}, store, Options{})
	r.persistSleep = func(time.Duration) {}

	p := params("hello world")
	raw := strings.Join(analysisJSON, "")
	r.persist(p, raw, []analysis.Chunk{{Text: raw}})

	if _, err := inner.FindByFingerprint(context.Background(), analysisFingerprint(p)); err != nil {
		t.Fatalf("record not persisted after retries: %v", err)
	}
}

func TestPersist_SkipsUnparseableResponse(t *testing.T) {
	t.Parallel()

	store := storage.NewInMemoryAnalysisStore()
	r := NewRegistry(&scriptedAnalyzer{}, store, Options{})
	r.persistSleep = func(time.Duration) {}

	p := params("hello world")
	r.persist(p, "not json at all", nil)

	if _, err := store.FindByFingerprint(context.Background(), analysisFingerprint(p)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRegistry_ReplayDoneFrameMatchesLiveFull(t *testing.T) {
	t.Parallel()

	// The analyzer's final text differs from the chunk concatenation
	// (trailing whitespace trimmed upstream). Live subscribers and late
	// joiners must still receive the same fullResponse.
	final := `{"fullTranslation": "Hello world"}`
	az := &scriptedAnalyzer{chunks: []string{final + "\n"}, final: final}
	r := NewRegistry(az, storage.NewInMemoryAnalysisStore(), Options{})
	defer func() { _ = r.Close(context.Background()) }()

	if _, err := r.GetOrCreate("fp-settled", params("hello world")); err != nil {
		t.Fatal(err)
	}
	live := &testConn{}
	if _, err := r.Subscribe("fp-settled", live); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, func() bool {
		_, dones, _ := live.snapshot()
		return len(dones) == 1
	})

	late := &testConn{}
	if _, err := r.Subscribe("fp-settled", late); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, func() bool {
		_, dones, _ := late.snapshot()
		return len(dones) == 1
	})

	_, liveDones, _ := live.snapshot()
	_, lateDones, _ := late.snapshot()
	if liveDones[0] != final {
		t.Errorf("live done frame = %q, want %q", liveDones[0], final)
	}
	if lateDones[0] != liveDones[0] {
		t.Errorf("late joiner done frame = %q, live got %q", lateDones[0], liveDones[0])
	}
}
