package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"unicode/utf8"

	"github.com/flemzord/phrasecue/internal/query"
	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/internal/stream"
	"github.com/flemzord/phrasecue/pkg/analysis"
)

const (
	maxSentenceLen = 1000
	maxWordLen     = 100
	maxContextLen  = 500
)

// supportedLanguages is the ISO 639-1 subset the tutor prompt handles,
// plus the Chinese locale variants.
var supportedLanguages = map[string]bool{
	"ar": true, "de": true, "en": true, "es": true, "fr": true,
	"hi": true, "id": true, "it": true, "ja": true, "ko": true,
	"nl": true, "pl": true, "pt": true, "ru": true, "sv": true,
	"th": true, "tr": true, "vi": true,
	"zh": true, "zh-cn": true, "zh-tw": true, "zh-hk": true,
}

type analyzeResponse struct {
	analysis.Result
	Cached      bool `json:"cached"`
	AccessCount int  `json:"accessCount"`
}

// decodeAnalyzeRequest reads and validates the shared analysis inputs.
func decodeAnalyzeRequest(r *http.Request) (analysis.Params, error) {
	var p analysis.Params
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return p, errors.New("invalid JSON body")
	}
	return p, validateParams(p)
}

func validateParams(p analysis.Params) error {
	switch {
	case p.Sentence == "":
		return errors.New("sentence is required")
	case p.TargetWord == "":
		return errors.New("targetWord is required")
	case p.TargetLanguage == "":
		return errors.New("targetLanguage is required")
	case p.NativeLanguage == "":
		return errors.New("nativeLanguage is required")
	case utf8.RuneCountInString(p.Sentence) > maxSentenceLen:
		return fmt.Errorf("sentence exceeds %d characters", maxSentenceLen)
	case utf8.RuneCountInString(p.TargetWord) > maxWordLen:
		return fmt.Errorf("targetWord exceeds %d characters", maxWordLen)
	case utf8.RuneCountInString(p.ContextBefore) > maxContextLen:
		return fmt.Errorf("contextBefore exceeds %d characters", maxContextLen)
	case utf8.RuneCountInString(p.ContextAfter) > maxContextLen:
		return fmt.Errorf("contextAfter exceeds %d characters", maxContextLen)
	case !supportedLanguages[p.TargetLanguage]:
		return fmt.Errorf("unsupported targetLanguage %q", p.TargetLanguage)
	case !supportedLanguages[p.NativeLanguage]:
		return fmt.Errorf("unsupported nativeLanguage %q", p.NativeLanguage)
	}
	return nil
}

// gate applies the throttle and, for identified users, the paywall. It
// writes the denial response itself and reports whether the request may
// proceed.
func (g *Gateway) gate(w http.ResponseWriter, r *http.Request, p analysis.Params) bool {
	if d := g.limiter.Allow(r.Context(), "analyze", g.ruleFor("analyze"), p.UserID, clientIP(r)); !d.Allowed {
		writeRateLimited(w, http.StatusTooManyRequests, "Too many requests. Please slow down.", d)
		return false
	}
	if p.UserID == "" {
		return true
	}
	d, err := g.paywall.Allow(r.Context(), p.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	paywallHeaders(w, d)
	if !d.Allowed {
		writeRateLimited(w, http.StatusForbidden,
			"Free analysis limit reached. Subscribe for unlimited access.", d)
		return false
	}
	return true
}

func analysisFingerprint(p analysis.Params) string {
	return query.AnalysisFingerprint(
		p.Sentence, p.TargetWord,
		p.TargetLanguage, p.NativeLanguage,
		p.ContextBefore, p.ContextAfter,
	)
}

// handleAnalyze serves POST /analyze, the non-streaming variant. Cache
// misses still go through the registry so a concurrent SSE stream for the
// same fingerprint shares one upstream call.
func (g *Gateway) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	p, err := decodeAnalyzeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !g.gate(w, r, p) {
		return
	}

	fp := analysisFingerprint(p)
	rec, err := g.replayer.Lookup(r.Context(), fp)
	if err == nil {
		writeJSON(w, http.StatusOK, analyzeResponse{
			Result:      rec.Result,
			Cached:      true,
			AccessCount: rec.AccessCount,
		})
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		g.logger.Error("analysis lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	full, err := g.collectStream(r.Context(), fp, p)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Analysis failed. Please try again.")
		return
	}
	result, err := analysis.ParseResponse(full)
	if err != nil {
		g.logger.Error("analysis response did not parse", "error", err)
		writeError(w, http.StatusBadGateway, "Analysis produced an unreadable response.")
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Result: result, Cached: false, AccessCount: 1})
}

// collectStream attaches a buffering subscriber and waits for the terminal
// frame.
func (g *Gateway) collectStream(ctx context.Context, fp string, p analysis.Params) (string, error) {
	if _, err := g.registry.GetOrCreate(fp, p); err != nil {
		return "", err
	}
	conn := newBufferConn(ctx)
	id, err := g.registry.Subscribe(fp, conn)
	if err != nil {
		return "", err
	}
	defer g.registry.Unsubscribe(fp, id)

	select {
	case <-conn.done:
		if conn.errMsg != "" {
			return "", errors.New(conn.errMsg)
		}
		return conn.full, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// bufferConn is a stream.Conn that only cares about the terminal frame.
type bufferConn struct {
	ctx  context.Context
	done chan struct{}

	mu     sync.Mutex
	closed bool
	full   string
	errMsg string
}

var _ stream.Conn = (*bufferConn)(nil)

func newBufferConn(ctx context.Context) *bufferConn {
	return &bufferConn{ctx: ctx, done: make(chan struct{})}
}

func (c *bufferConn) SendChunk(string) error { return nil }

func (c *bufferConn) SendDone(full string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.full = full
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *bufferConn) SendError(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.errMsg = msg
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *bufferConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.ctx.Err() == nil
}
