package stream

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/pkg/analysis"
)

func seedRecord(t *testing.T, store storage.AnalysisStore, fp string, chunks []analysis.Chunk) analysis.Record {
	t.Helper()
	rec := analysis.Record{
		Fingerprint:    fp,
		Sentence:       "hello world",
		TargetWord:     "hello",
		TargetLanguage: "en",
		NativeLanguage: "fr",
		Result: analysis.Result{
			FullTranslation:    "Bonjour le monde",
			LiteralTranslation: "Bonjour le monde",
			GrammarAnalysis:    "Une salutation simple.",
		},
		Chunks:         chunks,
		AccessCount:    1,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	if err := store.Insert(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestReplayer_LookupBumpsAccessCount(t *testing.T) {
	t.Parallel()

	store := storage.NewInMemoryAnalysisStore()
	seedRecord(t, store, "fp1", nil)
	rp := NewReplayer(store, nil)

	rec, err := rp.Lookup(context.Background(), "fp1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.AccessCount != 2 {
		t.Errorf("returned access count = %d, want 2", rec.AccessCount)
	}

	stored, err := store.FindByFingerprint(context.Background(), "fp1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.AccessCount != 2 {
		t.Errorf("stored access count = %d, want 2", stored.AccessCount)
	}
}

func TestReplayer_LookupMiss(t *testing.T) {
	t.Parallel()

	rp := NewReplayer(storage.NewInMemoryAnalysisStore(), nil)
	if _, err := rp.Lookup(context.Background(), "absent"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReplayer_ReplaysStoredChunkLog(t *testing.T) {
	t.Parallel()

	store := storage.NewInMemoryAnalysisStore()
	chunks := []analysis.Chunk{
		{Text: "Bonjour", Timestamp: 0},
		{Text: " le", Timestamp: 40},
		{Text: " monde", Timestamp: 90},
	}
	rec := seedRecord(t, store, "fp1", chunks)
	rp := NewReplayer(store, nil)

	conn := &testConn{}
	if err := rp.Replay(context.Background(), &rec, conn); err != nil {
		t.Fatal(err)
	}

	got, dones, _ := conn.snapshot()
	if len(got) != len(chunks) {
		t.Fatalf("got %d chunks, want %d", len(got), len(chunks))
	}
	for i, c := range chunks {
		if got[i] != c.Text {
			t.Errorf("chunk[%d] = %q, want %q", i, got[i], c.Text)
		}
	}
	if len(dones) != 1 {
		t.Fatalf("got %d done frames, want 1", len(dones))
	}
	if !strings.Contains(dones[0], "Bonjour le monde") {
		t.Errorf("done frame missing translation: %q", dones[0])
	}
}

func TestReplayer_SynthesizesLegacyRecord(t *testing.T) {
	t.Parallel()

	store := storage.NewInMemoryAnalysisStore()
	rec := seedRecord(t, store, "fp1", nil)
	rp := NewReplayer(store, nil)

	conn := &testConn{}
	if err := rp.Replay(context.Background(), &rec, conn); err != nil {
		t.Fatal(err)
	}

	chunks, dones, _ := conn.snapshot()
	if len(chunks) < 2 {
		t.Fatalf("expected synthesized chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > syntheticChunkLen {
			t.Errorf("chunk[%d] is %d bytes, cap is %d", i, len(c), syntheticChunkLen)
		}
	}
	if strings.Join(chunks, "") != dones[0] {
		t.Error("synthesized chunks do not reassemble into the done frame")
	}
}

func TestReplayer_AbortsOnDeadConnection(t *testing.T) {
	t.Parallel()

	store := storage.NewInMemoryAnalysisStore()
	rec := seedRecord(t, store, "fp1", []analysis.Chunk{{Text: "a"}, {Text: "b"}})
	rp := NewReplayer(store, nil)

	conn := &testConn{}
	conn.close()
	if err := rp.Replay(context.Background(), &rec, conn); err != nil {
		t.Fatal(err)
	}
	_, dones, _ := conn.snapshot()
	if len(dones) != 0 {
		t.Error("done frame delivered to a dead connection")
	}
}

func TestSynthesizeChunks(t *testing.T) {
	t.Parallel()

	t.Run("short text is one chunk", func(t *testing.T) {
		t.Parallel()
		got := SynthesizeChunks("hello")
		if len(got) != 1 || got[0] != "hello" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("breaks at word boundaries", func(t *testing.T) {
		t.Parallel()
		text := strings.Repeat("word ", 60)
		for i, c := range SynthesizeChunks(text) {
			if len(c) > syntheticChunkLen {
				t.Errorf("chunk[%d] is %d bytes", i, len(c))
			}
			if !strings.HasSuffix(c, " ") && i < len(SynthesizeChunks(text))-1 {
				t.Errorf("chunk[%d] split mid-word: %q", i, c)
			}
		}
	})

	t.Run("never splits a rune", func(t *testing.T) {
		t.Parallel()
		text := strings.Repeat("héllo", 50)
		var rebuilt strings.Builder
		for i, c := range SynthesizeChunks(text) {
			if !utf8ValidString(c) {
				t.Errorf("chunk[%d] is not valid UTF-8: %q", i, c)
			}
			rebuilt.WriteString(c)
		}
		if rebuilt.String() != text {
			t.Error("chunks do not reassemble the input")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		if got := SynthesizeChunks(""); got != nil {
			t.Errorf("got %q, want nil", got)
		}
	})
}

func utf8ValidString(s string) bool {
	for _, r := range s {
		if r == '�' {
			return false
		}
	}
	return true
}

func TestReplayDelayClamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cur, next int64
		want      time.Duration
	}{
		{0, 0, minReplayDelay},
		{0, 30, 10 * time.Millisecond},
		{0, 3000, maxReplayDelay},
		{100, 112, minReplayDelay},
	}
	for _, tt := range tests {
		if got := replayDelay(tt.cur, tt.next); got != tt.want {
			t.Errorf("replayDelay(%d, %d) = %v, want %v", tt.cur, tt.next, got, tt.want)
		}
	}
}
