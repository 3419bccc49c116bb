package stream

import (
	"context"
	"errors"
	"time"

	"github.com/flemzord/phrasecue/internal/query"
	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/pkg/analysis"
)

// analysisFingerprint derives the cache key for one set of params.
func analysisFingerprint(p analysis.Params) string {
	return query.AnalysisFingerprint(
		p.Sentence, p.TargetWord,
		p.TargetLanguage, p.NativeLanguage,
		p.ContextBefore, p.ContextAfter,
	)
}

const (
	persistAttempts = 3
	persistBackoff  = time.Second
	persistTimeout  = 30 * time.Second
)

// persist parses the accumulated response and inserts the analysis record
// with its chunk log. Attempted up to three times with exponential backoff;
// failure is logged and never surfaced to subscribers, who already have the
// streamed response.
func (r *Registry) persist(params analysis.Params, raw string, chunks []analysis.Chunk) {
	result, err := analysis.ParseResponse(raw)
	if err != nil {
		r.logger.Warn("completed stream did not parse, skipping persistence",
			"error", err)
		return
	}

	now := time.Now()
	rec := analysis.Record{
		Sentence:       params.Sentence,
		TargetWord:     params.TargetWord,
		TargetLanguage: params.TargetLanguage,
		NativeLanguage: params.NativeLanguage,
		ContextBefore:  params.ContextBefore,
		ContextAfter:   params.ContextAfter,
		Result:         result,
		Chunks:         chunks,
		AccessCount:    1,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	rec.Fingerprint = analysisFingerprint(params)

	backoff := persistBackoff
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		err = r.store.Insert(ctx, rec)
		cancel()
		if err == nil || errors.Is(err, storage.ErrDuplicate) {
			return
		}
		r.logger.Warn("analysis persistence failed",
			"fingerprint", rec.Fingerprint,
			"attempt", attempt,
			"error", err)
		if attempt < persistAttempts {
			r.persistSleep(backoff)
			backoff *= 2
		}
	}
	r.logger.Error("analysis not persisted, giving up",
		"fingerprint", rec.Fingerprint,
		"error", err)
}
