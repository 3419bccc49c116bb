package gateway

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/pkg/clip"
)

type wordResponse struct {
	Word     string            `json:"word"`
	Examples []clip.SegmentRef `json:"examples"`
	Count    int               `json:"count"`
}

type wordsPageResponse struct {
	Words  []string `json:"words"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

// handleExamples serves GET /examples/{word}: the bare reference list.
func (g *Gateway) handleExamples(w http.ResponseWriter, r *http.Request) {
	entry, ok := g.lookupWord(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry.Examples)
}

// handleWord serves GET /word/{word}: the annotated entry.
func (g *Gateway) handleWord(w http.ResponseWriter, r *http.Request) {
	entry, ok := g.lookupWord(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, wordResponse{
		Word:     entry.Word,
		Examples: entry.Examples,
		Count:    len(entry.Examples),
	})
}

func (g *Gateway) lookupWord(w http.ResponseWriter, r *http.Request) (*clip.WordEntry, bool) {
	word := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "word")))
	if word == "" {
		writeError(w, http.StatusBadRequest, "word is required")
		return nil, false
	}
	entry, err := g.words.FindByWord(r.Context(), word)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "word not indexed")
		return nil, false
	}
	if err != nil {
		g.logger.Error("word lookup failed", "word", word, "error", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return nil, false
	}
	return entry, true
}

// handleWords serves GET /words?limit&offset: an alphabetical page.
func (g *Gateway) handleWords(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || limit > g.config.WordsPageLimit {
		limit = g.config.WordsPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	words, err := g.words.ListWords(r.Context(), limit, offset)
	if err != nil {
		g.logger.Error("word list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if words == nil {
		words = []string{}
	}
	writeJSON(w, http.StatusOK, wordsPageResponse{Words: words, Limit: limit, Offset: offset})
}

// handleStats serves GET /stats.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := g.words.Stats(r.Context())
	if err != nil {
		g.logger.Error("stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
