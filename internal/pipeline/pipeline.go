package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/phrasecue/internal/captions"
	"github.com/flemzord/phrasecue/internal/match"
	"github.com/flemzord/phrasecue/internal/media"
	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/pkg/clip"
)

// Failure messages surfaced on terminal jobs.
const (
	msgNoVideos = "No videos found for this query"
	msgTimeout  = "Search timed out"
)

// Pipeline drives one job from queued to a terminal state. All state
// transitions are writes to the job store; clients observe progress by
// polling. A Pipeline is safe for concurrent use; each job has a single
// driver goroutine.
type Pipeline struct {
	cfg         Config
	jobs        storage.JobStore
	segments    storage.SegmentStore
	words       storage.WordIndex
	catalog     media.Catalog
	downloader  media.Downloader
	transcriber media.Transcriber
	logger      *slog.Logger
	tracer      trace.Tracer
}

// Deps carries the pipeline's collaborators.
type Deps struct {
	Jobs        storage.JobStore
	Segments    storage.SegmentStore
	Words       storage.WordIndex
	Catalog     media.Catalog
	Downloader  media.Downloader
	Transcriber media.Transcriber
	Logger      *slog.Logger
}

// New creates a Pipeline. Config defaults are applied.
func New(cfg Config, deps Deps) *Pipeline {
	cfg.defaults()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:         cfg,
		jobs:        deps.Jobs,
		segments:    deps.Segments,
		words:       deps.Words,
		catalog:     deps.Catalog,
		downloader:  deps.Downloader,
		transcriber: deps.Transcriber,
		logger:      logger,
		tracer:      otel.Tracer("phrasecue/pipeline"),
	}
}

// Execute runs the job state machine to a terminal state. Errors inside a
// candidate are isolated to that candidate; only exhaustion, timeout, or
// infra faults fail the job.
func (p *Pipeline) Execute(ctx context.Context, job *clip.Job) {
	ctx, span := p.tracer.Start(ctx, "pipeline.execute",
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("job.kind", string(job.Kind)),
		))
	defer span.End()

	started := time.Now()
	logger := p.logger.With("job", job.ID, "query", job.Canonical)

	candidates, err := p.collectCandidates(ctx, job)
	if err != nil {
		p.fail(ctx, job, fmt.Sprintf("Search failed: %v", err))
		return
	}
	if len(candidates) == 0 {
		p.fail(ctx, job, msgNoVideos)
		return
	}
	logger.Info("candidates collected", "count", len(candidates))

	for _, cand := range candidates {
		if time.Since(started) > p.cfg.JobTimeout {
			p.fail(ctx, job, msgTimeout)
			return
		}
		if ctx.Err() != nil {
			p.fail(ctx, job, msgTimeout)
			return
		}

		seg, ok := p.tryCandidate(ctx, job, cand)
		if !ok {
			continue
		}

		if err := p.jobs.SetResult(ctx, job.Fingerprint, *seg); err != nil {
			logger.Error("persist job result", "error", err)
		}
		if err := p.segments.Insert(ctx, *seg); err != nil && !errors.Is(err, storage.ErrDuplicate) {
			logger.Error("persist segment", "error", err)
		}
		if err := p.words.AddSegmentToWords(ctx, match.ExtractWords(seg.Caption), seg.Ref()); err != nil {
			logger.Error("index words", "error", err)
		}

		jobsCompleted.Inc()
		logger.Info("job completed", "video", seg.VideoID,
			"start", seg.StartTime, "end", seg.EndTime,
			"elapsed", time.Since(started))
		return
	}

	p.fail(ctx, job, fmt.Sprintf("No English video found; tried %d videos", len(candidates)))
}

// collectCandidates queries the catalog once per strategy, deduplicating by
// video ID, until MaxCandidates are collected or strategies are exhausted.
func (p *Pipeline) collectCandidates(ctx context.Context, job *clip.Job) ([]media.Candidate, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.search")
	defer span.End()

	if err := p.jobs.SetStatus(ctx, job.Fingerprint, clip.StatusSearching, ""); err != nil {
		return nil, fmt.Errorf("pipeline: set searching: %w", err)
	}

	seen := make(map[string]struct{})
	var candidates []media.Candidate
	var searchErr error

	for _, q := range Strategies(job.Canonical, job.Kind) {
		results, err := p.catalog.Search(ctx, q, p.cfg.ResultsPerStrategy)
		if err != nil {
			// A single failing strategy is not fatal; remember the error in
			// case every strategy fails to produce anything.
			searchErr = err
			p.logger.Warn("catalog search failed", "strategy", q, "error", err)
			continue
		}
		for _, c := range results {
			if _, dup := seen[c.VideoID]; dup {
				continue
			}
			seen[c.VideoID] = struct{}{}
			candidates = append(candidates, c)
			if len(candidates) >= p.cfg.MaxCandidates {
				return candidates, nil
			}
		}
	}

	if len(candidates) == 0 && searchErr != nil {
		return nil, searchErr
	}
	return candidates, nil
}

// tryCandidate evaluates one video. It returns the completed segment, or
// (nil, false) when the candidate is skipped for any reason. Scratch files
// are removed before return regardless of outcome.
func (p *Pipeline) tryCandidate(ctx context.Context, job *clip.Job, cand media.Candidate) (seg *clip.Segment, ok bool) {
	ctx, span := p.tracer.Start(ctx, "pipeline.candidate",
		trace.WithAttributes(attribute.String("video.id", cand.VideoID)))
	defer span.End()

	logger := p.logger.With("job", job.ID, "video", cand.VideoID)

	embeddable, err := p.catalog.IsEmbeddable(ctx, cand.VideoID)
	if err != nil {
		logger.Warn("embeddability check failed", "error", err)
		candidatesSkipped.WithLabelValues("embed_check").Inc()
		return nil, false
	}
	if !embeddable {
		candidatesSkipped.WithLabelValues("not_embeddable").Inc()
		return nil, false
	}

	if err := p.jobs.SetStatus(ctx, job.Fingerprint, clip.StatusDownloading, cand.VideoID); err != nil {
		logger.Error("set downloading", "error", err)
		return nil, false
	}

	audioPath, err := p.downloader.DownloadAudio(ctx, cand.VideoID)
	if err != nil {
		logger.Warn("audio download failed", "error", err)
		candidatesSkipped.WithLabelValues("download").Inc()
		return nil, false
	}
	defer p.cleanupScratch(audioPath)

	if err := p.jobs.SetStatus(ctx, job.Fingerprint, clip.StatusTranscribing, cand.VideoID); err != nil {
		logger.Error("set transcribing", "error", err)
		return nil, false
	}

	res, err := p.transcriber.Transcribe(ctx, audioPath, job.Canonical, job.Kind, p.cfg.ChunkSeconds, p.cfg.MaxChunks)
	if err != nil {
		logger.Warn("transcription failed", "error", err)
		candidatesSkipped.WithLabelValues("transcribe").Inc()
		return nil, false
	}
	defer p.cleanupScratch(res.CaptionPath)

	cues, err := captions.ParseFile(res.CaptionPath)
	if err != nil || len(cues) == 0 {
		logger.Warn("caption parsing failed", "error", err)
		candidatesSkipped.WithLabelValues("parse").Inc()
		return nil, false
	}

	joined := joinCueText(cues)
	if !match.IsLikelyEnglish(joined, p.cfg.English.MinHits, p.cfg.English.MaxNonASCIIRatio) {
		logger.Info("rejected by english gate")
		candidatesSkipped.WithLabelValues("not_english").Inc()
		return nil, false
	}

	m := match.Find(cues, job.Canonical, job.Kind)
	if m < 0 {
		logger.Info("phrase not found in transcript",
			"chunks", res.ChunksProcessed, "early_stopped", res.EarlyStopped)
		candidatesSkipped.WithLabelValues("no_match").Inc()
		return nil, false
	}

	w := match.Boundary(cues, m)
	segment := clip.Segment{
		Fingerprint: job.Fingerprint,
		Query:       job.Query,
		VideoID:     cand.VideoID,
		StartTime:   w.StartTime,
		EndTime:     w.EndTime,
		Caption:     w.Caption,
		Captions:    match.Overlapping(cues, w.StartTime, w.EndTime),
		CreatedAt:   time.Now().UTC(),
	}
	return &segment, true
}

func (p *Pipeline) fail(ctx context.Context, job *clip.Job, msg string) {
	jobsFailed.Inc()
	p.logger.Info("job failed", "job", job.ID, "reason", msg)
	if err := p.jobs.SetError(ctx, job.Fingerprint, msg); err != nil {
		p.logger.Error("persist job failure", "job", job.ID, "error", err)
	}
}

func (p *Pipeline) cleanupScratch(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("scratch cleanup failed", "path", path, "error", err)
	}
}

func joinCueText(cues []clip.Cue) string {
	var size int
	for _, c := range cues {
		size += len(c.Text) + 1
	}
	buf := make([]byte, 0, size)
	for i, c := range cues {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, c.Text...)
	}
	return string(buf)
}
