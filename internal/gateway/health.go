package gateway

import (
	"net/http"
	"time"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	ActiveStreams int    `json:"activeStreams"`
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(g.startedAt) / time.Second),
	}
	if g.registry != nil {
		resp.ActiveStreams = g.registry.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}
