package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(g.instrument)

	r.Post("/search", g.handleSearch)

	r.Post("/analyze", g.handleAnalyze)
	r.Post("/analyze/stream", g.handleAnalyzeStream)
	r.Get("/analyze/ws", g.handleAnalyzeWS)

	r.Get("/examples/{word}", g.handleExamples)
	r.Get("/word/{word}", g.handleWord)
	r.Get("/words", g.handleWords)
	r.Get("/stats", g.handleStats)

	r.Get("/health", g.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
