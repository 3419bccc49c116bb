package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flemzord/phrasecue/internal/query"
	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/pkg/clip"
)

type searchRequest struct {
	Query string `json:"query"`
	JobID string `json:"jobId,omitempty"`
}

// segmentResponse is the completed variant, also used for cache hits.
type segmentResponse struct {
	Status    string     `json:"status"`
	JobID     string     `json:"jobId,omitempty"`
	Query     string     `json:"query"`
	VideoID   string     `json:"videoId"`
	VideoURL  string     `json:"videoUrl"`
	StartTime float64    `json:"startTime"`
	EndTime   float64    `json:"endTime"`
	Caption   string     `json:"caption"`
	Captions  []clip.Cue `json:"captions"`
}

type progressResponse struct {
	Status         string `json:"status"`
	JobID          string `json:"jobId"`
	Query          string `json:"query"`
	Message        string `json:"message"`
	CurrentVideoID string `json:"currentVideoId,omitempty"`
}

type failedResponse struct {
	Status string `json:"status"`
	JobID  string `json:"jobId"`
	Query  string `json:"query"`
	Error  string `json:"error"`
}

// handleSearch serves POST /search: cache hit, poll, or fresh enqueue.
func (g *Gateway) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	if d := g.limiter.Allow(r.Context(), "search", g.ruleFor("search"), "", clientIP(r)); !d.Allowed {
		writeRateLimited(w, http.StatusTooManyRequests, "Too many searches. Please slow down.", d)
		return
	}

	canonical, err := query.Canonicalize(req.Query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fp := query.SearchFingerprint(canonical.Text)

	// Cache hit short-circuits the pipeline entirely.
	seg, err := g.segments.FindByFingerprint(r.Context(), fp)
	if err == nil {
		writeJSON(w, http.StatusOK, segmentFound(req.JobID, req.Query, seg))
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		g.logger.Error("segment lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	job, err := g.jobs.FindByFingerprint(r.Context(), fp)
	if errors.Is(err, storage.ErrNotFound) {
		job, err = g.jobs.Create(r.Context(), storage.JobInit{
			Fingerprint: fp,
			Query:       req.Query,
			Canonical:   canonical.Text,
			Kind:        canonical.Kind,
		})
		if errors.Is(err, storage.ErrDuplicate) {
			// Concurrent enqueue: the other request won, poll its job.
			job, err = g.jobs.FindByFingerprint(r.Context(), fp)
		} else if err == nil {
			g.pool.Wake()
		}
	}
	if err != nil {
		g.logger.Error("job lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	writeJSON(w, http.StatusOK, jobResponse(req.Query, job))
}

// jobResponse shapes a job in any state into the search response.
func jobResponse(rawQuery string, job *clip.Job) any {
	switch {
	case job.Status == clip.StatusCompleted && job.Result != nil:
		return segmentFound(job.ID, rawQuery, job.Result)
	case job.Status == clip.StatusFailed:
		return failedResponse{
			Status: string(clip.StatusFailed),
			JobID:  job.ID,
			Query:  rawQuery,
			Error:  job.Error,
		}
	default:
		return progressResponse{
			Status:         string(job.Status),
			JobID:          job.ID,
			Query:          rawQuery,
			Message:        statusMessage(job.Status),
			CurrentVideoID: job.CurrentVideoID,
		}
	}
}

func segmentFound(jobID, rawQuery string, seg *clip.Segment) segmentResponse {
	return segmentResponse{
		Status:    string(clip.StatusCompleted),
		JobID:     jobID,
		Query:     rawQuery,
		VideoID:   seg.VideoID,
		VideoURL:  seg.URL(),
		StartTime: seg.StartTime,
		EndTime:   seg.EndTime,
		Caption:   seg.Caption,
		Captions:  seg.Captions,
	}
}

func statusMessage(s clip.JobStatus) string {
	switch s {
	case clip.StatusQueued:
		return "Waiting for a worker"
	case clip.StatusSearching:
		return "Searching the video catalog"
	case clip.StatusDownloading:
		return "Downloading audio"
	case clip.StatusTranscribing:
		return "Transcribing audio"
	default:
		return ""
	}
}
