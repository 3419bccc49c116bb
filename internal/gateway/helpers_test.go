package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/flemzord/phrasecue/internal/quota"
	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/internal/stream"
	"github.com/flemzord/phrasecue/pkg/analysis"
)

// upstreamAnalysisJSON is a parseable model response split into deltas.
var upstreamAnalysisJSON = []string{
	`{"fullTranslation": "Bonjour le monde",`,
	` "literalTranslation": "Bonjour le monde",`,
	` "grammarAnalysis": "Une salutation simple."}`,
}

type fakeWaker struct {
	calls atomic.Int32
}

func (f *fakeWaker) Wake() { f.calls.Add(1) }

type stubEntitlement struct {
	active map[string]bool
}

func (s *stubEntitlement) HasActiveSubscription(_ context.Context, userID string) (bool, error) {
	return s.active[userID], nil
}

// stubAnalyzer emits fixed chunks then returns their concatenation.
type stubAnalyzer struct {
	chunks []string
	err    error
	calls  atomic.Int32
}

func (a *stubAnalyzer) Stream(_ context.Context, _ analysis.Params, onChunk analysis.ChunkFunc) (string, error) {
	a.calls.Add(1)
	if a.err != nil {
		return "", a.err
	}
	for _, c := range a.chunks {
		onChunk(c)
	}
	return strings.Join(a.chunks, ""), nil
}

type fixture struct {
	gateway  *Gateway
	handler  http.Handler
	segments *storage.InMemorySegmentStore
	jobs     *storage.InMemoryJobStore
	words    *storage.InMemoryWordIndex
	analyses *storage.InMemoryAnalysisStore
	quotas   *storage.InMemoryQuotaStore
	waker    *fakeWaker
	analyzer *stubAnalyzer
	ent      *stubEntitlement
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		segments: storage.NewInMemorySegmentStore(),
		jobs:     storage.NewInMemoryJobStore(),
		words:    storage.NewInMemoryWordIndex(),
		analyses: storage.NewInMemoryAnalysisStore(),
		quotas:   storage.NewInMemoryQuotaStore(),
		waker:    &fakeWaker{},
		analyzer: &stubAnalyzer{chunks: upstreamAnalysisJSON},
		ent:      &stubEntitlement{active: map[string]bool{}},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := stream.NewRegistry(f.analyzer, f.analyses, stream.Options{Logger: logger})
	t.Cleanup(func() { _ = registry.Close(context.Background()) })

	cfg := Config{}
	cfg.defaults()
	g := &Gateway{
		config:   cfg,
		logger:   logger,
		segments: f.segments,
		jobs:     f.jobs,
		words:    f.words,
		limiter:  quota.NewLimiter(f.quotas, logger),
		paywall:  quota.NewPaywall(quota.PaywallConfig{}, f.quotas, f.ent, logger),
		ruleFor: func(string) quota.LimitConfig {
			return quota.LimitConfig{UserLimit: 1000, IPLimit: 1000, WindowMinutes: 60}
		},
		registry: registry,
		replayer: stream.NewReplayer(f.analyses, logger),
		pool:     f.waker,
	}
	f.gateway = g
	f.handler = g.buildRouter()
	return f
}
