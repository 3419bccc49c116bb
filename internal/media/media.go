// Package media defines the narrow adapter contracts the pipeline consumes
// from external video and speech tools. Implementations invoke subprocesses
// (yt-dlp, ffmpeg, whisper) and live under modules/media.
package media

import (
	"context"

	"github.com/flemzord/phrasecue/pkg/clip"
)

// Candidate is a video identifier emitted by the catalog for evaluation.
type Candidate struct {
	VideoID string
	Title   string
	URL     string
}

// Catalog searches the public video catalog and answers embeddability.
type Catalog interface {
	// Search returns up to k candidates for the query.
	Search(ctx context.Context, query string, k int) ([]Candidate, error)

	// IsEmbeddable reports whether the video can be embedded by third
	// parties. Non-embeddable videos are skipped by the pipeline.
	IsEmbeddable(ctx context.Context, videoID string) (bool, error)
}

// Downloader extracts a video's audio track to a scratch file.
type Downloader interface {
	// DownloadAudio writes the audio to a scratch path and returns it.
	// The caller owns cleanup of the returned file.
	DownloadAudio(ctx context.Context, videoID string) (string, error)
}

// TranscribeResult describes one chunked transcription run.
type TranscribeResult struct {
	// CaptionPath is the merged WEBVTT file covering all processed chunks.
	CaptionPath string

	// ChunksProcessed is how many fixed-size chunks were transcribed.
	ChunksProcessed int

	// EarlyStopped is true when the phrase was spotted and transcription
	// stopped after one extra chunk instead of exhausting the cap.
	EarlyStopped bool
}

// Transcriber turns audio into timed captions, one fixed-size chunk at a
// time, stopping early once the phrase (or a variation) appears.
type Transcriber interface {
	// Transcribe splits the audio at audioPath into chunkSeconds-long
	// chunks and transcribes at most maxChunks of them. After each chunk
	// the accumulated captions are inspected for phrase using the job's
	// query kind, so the early stop agrees with the final match pass; on
	// a hit, one additional chunk is transcribed and the run stops. The
	// caller owns cleanup of the returned caption file.
	Transcribe(ctx context.Context, audioPath, phrase string, kind clip.QueryKind, chunkSeconds, maxChunks int) (TranscribeResult, error)
}
