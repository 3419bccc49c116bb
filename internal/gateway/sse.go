package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/internal/stream"
)

// ssePayload is the wire shape of one SSE data frame.
type ssePayload struct {
	Chunk        string `json:"chunk,omitempty"`
	Done         bool   `json:"done,omitempty"`
	FullResponse string `json:"fullResponse,omitempty"`
	Error        string `json:"error,omitempty"`
}

// sseConn frames stream output as Server-Sent-Events. A terminal frame
// closes done, releasing the handler.
type sseConn struct {
	ctx     context.Context
	w       http.ResponseWriter
	flusher http.Flusher
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

var _ stream.Conn = (*sseConn)(nil)

// newSSEConn writes the SSE preamble headers and returns the connection.
// Returns an error when the ResponseWriter cannot stream.
func newSSEConn(ctx context.Context, w http.ResponseWriter) (*sseConn, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseConn{ctx: ctx, w: w, flusher: flusher, done: make(chan struct{})}, nil
}

func (c *sseConn) send(p ssePayload, terminal bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("sse connection closed")
	}
	if err := c.ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.w, "data: %s\n\n", raw); err != nil {
		return err
	}
	c.flusher.Flush()
	if terminal {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *sseConn) SendChunk(text string) error {
	return c.send(ssePayload{Chunk: text}, false)
}

func (c *sseConn) SendDone(full string) error {
	return c.send(ssePayload{Done: true, FullResponse: full}, true)
}

func (c *sseConn) SendError(msg string) error {
	return c.send(ssePayload{Error: msg}, true)
}

func (c *sseConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.ctx.Err() == nil
}

// handleAnalyzeStream serves POST /analyze/stream. Validation and quota
// failures are plain JSON; once the SSE preamble is written all outcomes
// are frames.
func (g *Gateway) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
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
		conn, cerr := newSSEConn(r.Context(), w)
		if cerr != nil {
			writeError(w, http.StatusInternalServerError, cerr.Error())
			return
		}
		if rerr := g.replayer.Replay(r.Context(), rec, conn); rerr != nil {
			g.logger.Warn("cached replay aborted", "error", rerr)
		}
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		g.logger.Error("analysis lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	if _, err := g.registry.GetOrCreate(fp, p); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Too many analyses in flight. Please retry shortly.")
		return
	}

	conn, err := newSSEConn(r.Context(), w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	id, err := g.registry.Subscribe(fp, conn)
	if err != nil {
		_ = conn.SendError("Analysis is no longer available. Please retry.")
		return
	}

	select {
	case <-conn.done:
	case <-r.Context().Done():
		g.registry.Unsubscribe(fp, id)
	}
}
