package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/pkg/analysis"
)

const (
	// syntheticChunkLen caps synthesized chunks for records persisted
	// without a chunk log.
	syntheticChunkLen = 100

	// syntheticDelay is the fixed pause between synthesized chunks.
	syntheticDelay = 15 * time.Millisecond
)

// Replayer streams persisted analyses back to a subscriber, reproducing
// the live pacing. It is the cache-hit half of the analysis path.
type Replayer struct {
	store  storage.AnalysisStore
	logger *slog.Logger
}

// NewReplayer creates a Replayer over the analysis store.
func NewReplayer(store storage.AnalysisStore, logger *slog.Logger) *Replayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replayer{store: store, logger: logger.With("component", "stream.replayer")}
}

// Lookup returns the cached record for fp, bumping its access count.
// Returns storage.ErrNotFound on a miss.
func (rp *Replayer) Lookup(ctx context.Context, fp string) (*analysis.Record, error) {
	rec, err := rp.store.FindByFingerprint(ctx, fp)
	if err != nil {
		return nil, err
	}
	if err := rp.store.Touch(ctx, fp); err != nil {
		rp.logger.Warn("access count bump failed", "fingerprint", fp, "error", err)
	}
	rec.AccessCount++
	metricCacheHits.Inc()
	return rec, nil
}

// Replay streams rec's chunk log to conn with live pacing, then the
// terminal frame. Records persisted before chunk logging get synthesized
// chunks with a fixed delay. Aborts silently on a dead connection.
func (rp *Replayer) Replay(ctx context.Context, rec *analysis.Record, conn Conn) error {
	full := renderFull(rec.Result)

	if len(rec.Chunks) == 0 {
		for _, text := range SynthesizeChunks(full) {
			if ctx.Err() != nil || !conn.Open() {
				return ctx.Err()
			}
			if err := conn.SendChunk(text); err != nil {
				return err
			}
			time.Sleep(syntheticDelay)
		}
		return conn.SendDone(full)
	}

	for i, c := range rec.Chunks {
		if ctx.Err() != nil || !conn.Open() {
			return ctx.Err()
		}
		if err := conn.SendChunk(c.Text); err != nil {
			return err
		}
		if i+1 < len(rec.Chunks) {
			time.Sleep(replayDelay(c.Timestamp, rec.Chunks[i+1].Timestamp))
		}
	}
	return conn.SendDone(full)
}

// renderFull rebuilds the full response text from the structured fields.
func renderFull(res analysis.Result) string {
	raw, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return res.FullTranslation
	}
	return string(raw)
}

// SynthesizeChunks splits text into chunks of at most syntheticChunkLen
// bytes, preferring whitespace or punctuation boundaries and never
// splitting a UTF-8 sequence.
func SynthesizeChunks(text string) []string {
	var chunks []string
	for len(text) > syntheticChunkLen {
		cut := 0
		for i := syntheticChunkLen; i > 0; i-- {
			if isChunkBreak(text[i-1]) {
				cut = i
				break
			}
		}
		if cut == 0 {
			cut = syntheticChunkLen
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func isChunkBreak(b byte) bool {
	switch b {
	case ' ', '\n', '\t', '.', ',', '!', '?', ';', ':':
		return true
	}
	return false
}
