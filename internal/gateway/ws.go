package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/internal/stream"
	"github.com/flemzord/phrasecue/pkg/analysis"
)

const wsParamsReadTimeout = 10 * time.Second

// wsConn frames stream output as websocket text messages, one JSON payload
// per message, in the same shape as the SSE frames.
type wsConn struct {
	ctx  context.Context
	conn *websocket.Conn
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

var _ stream.Conn = (*wsConn)(nil)

func newWSConn(ctx context.Context, conn *websocket.Conn) *wsConn {
	return &wsConn{ctx: ctx, conn: conn, done: make(chan struct{})}
}

func (c *wsConn) send(p ssePayload, terminal bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("websocket closed")
	}
	if err := c.ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := c.conn.Write(c.ctx, websocket.MessageText, raw); err != nil {
		return err
	}
	if terminal {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *wsConn) SendChunk(text string) error {
	return c.send(ssePayload{Chunk: text}, false)
}

func (c *wsConn) SendDone(full string) error {
	return c.send(ssePayload{Done: true, FullResponse: full}, true)
}

func (c *wsConn) SendError(msg string) error {
	return c.send(ssePayload{Error: msg}, true)
}

func (c *wsConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.ctx.Err() == nil
}

// handleAnalyzeWS serves GET /analyze/ws. The client sends the analysis
// params as the first text message; the server answers with the same frame
// sequence as the SSE endpoint and closes after the terminal frame.
func (g *Gateway) handleAnalyzeWS(w http.ResponseWriter, r *http.Request) {
	sock, err := websocket.Accept(w, r, nil)
	if err != nil {
		g.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() {
		_ = sock.Close(websocket.StatusInternalError, "unexpected close")
	}()

	readCtx, cancel := context.WithTimeout(r.Context(), wsParamsReadTimeout)
	_, raw, err := sock.Read(readCtx)
	cancel()
	if err != nil {
		_ = sock.Close(websocket.StatusPolicyViolation, "expected analysis params")
		return
	}
	var p analysis.Params
	if err := json.Unmarshal(raw, &p); err != nil {
		_ = sock.Close(websocket.StatusUnsupportedData, "invalid params payload")
		return
	}
	conn := newWSConn(r.Context(), sock)
	if err := validateParams(p); err != nil {
		_ = conn.SendError(err.Error())
		_ = sock.Close(websocket.StatusNormalClosure, "")
		return
	}
	if d := g.limiter.Allow(r.Context(), "analyze", g.ruleFor("analyze"), p.UserID, clientIP(r)); !d.Allowed {
		_ = conn.SendError("Too many requests. Please slow down.")
		_ = sock.Close(websocket.StatusNormalClosure, "")
		return
	}
	if p.UserID != "" {
		d, err := g.paywall.Allow(r.Context(), p.UserID)
		if err == nil && !d.Allowed {
			_ = conn.SendError("Free analysis limit reached. Subscribe for unlimited access.")
			_ = sock.Close(websocket.StatusNormalClosure, "")
			return
		}
	}

	fp := analysisFingerprint(p)
	rec, err := g.replayer.Lookup(r.Context(), fp)
	if err == nil {
		_ = g.replayer.Replay(r.Context(), rec, conn)
		_ = sock.Close(websocket.StatusNormalClosure, "")
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		_ = conn.SendError("storage unavailable")
		return
	}

	if _, err := g.registry.GetOrCreate(fp, p); err != nil {
		_ = conn.SendError("Too many analyses in flight. Please retry shortly.")
		return
	}
	id, err := g.registry.Subscribe(fp, conn)
	if err != nil {
		_ = conn.SendError("Analysis is no longer available. Please retry.")
		return
	}

	select {
	case <-conn.done:
		_ = sock.Close(websocket.StatusNormalClosure, "")
	case <-r.Context().Done():
		g.registry.Unsubscribe(fp, id)
	}
}
