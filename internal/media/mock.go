package media

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/flemzord/phrasecue/pkg/clip"
)

// MockCatalog is a test double for Catalog. Results are keyed by query;
// embeddability defaults to true unless the video ID is listed in Blocked.
type MockCatalog struct {
	mu      sync.Mutex
	Results map[string][]Candidate
	Blocked map[string]bool
	queries []string

	// SearchErr, if set, is returned by every Search call.
	SearchErr error
}

var _ Catalog = (*MockCatalog)(nil)

func (m *MockCatalog) Search(_ context.Context, query string, k int) ([]Candidate, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	res := m.Results[query]
	if len(res) > k {
		res = res[:k]
	}
	return res, nil
}

func (m *MockCatalog) IsEmbeddable(_ context.Context, videoID string) (bool, error) {
	return !m.Blocked[videoID], nil
}

// Queries returns every query Search has seen, in order.
func (m *MockCatalog) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// MockDownloader is a test double for Downloader. It writes an empty scratch
// file per video so the pipeline's cleanup paths are exercised.
type MockDownloader struct {
	Dir string

	// Errs maps video IDs to forced download errors.
	Errs map[string]error
}

var _ Downloader = (*MockDownloader)(nil)

func (m *MockDownloader) DownloadAudio(_ context.Context, videoID string) (string, error) {
	if err := m.Errs[videoID]; err != nil {
		return "", err
	}
	path := filepath.Join(m.Dir, videoID+".mp3")
	if err := os.WriteFile(path, []byte{}, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// MockTranscriber is a test double for Transcriber. VTT maps an audio file
// base name (video ID) to the WEBVTT text produced for it.
type MockTranscriber struct {
	Dir string
	VTT map[string]string

	// Chunks and EarlyStop shape the reported TranscribeResult.
	Chunks    int
	EarlyStop bool

	// Errs maps video IDs to forced transcription errors.
	Errs map[string]error

	mu    sync.Mutex
	kinds []clip.QueryKind
}

var _ Transcriber = (*MockTranscriber)(nil)

func (m *MockTranscriber) Transcribe(_ context.Context, audioPath, _ string, kind clip.QueryKind, _, _ int) (TranscribeResult, error) {
	m.mu.Lock()
	m.kinds = append(m.kinds, kind)
	m.mu.Unlock()

	videoID := trimExt(filepath.Base(audioPath))
	if err := m.Errs[videoID]; err != nil {
		return TranscribeResult{}, err
	}

	text, ok := m.VTT[videoID]
	if !ok {
		return TranscribeResult{}, os.ErrNotExist
	}

	path := filepath.Join(m.Dir, videoID+".vtt")
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return TranscribeResult{}, err
	}

	chunks := m.Chunks
	if chunks == 0 {
		chunks = 1
	}
	return TranscribeResult{CaptionPath: path, ChunksProcessed: chunks, EarlyStopped: m.EarlyStop}, nil
}

// Kinds returns the query kind of every Transcribe call, in order.
func (m *MockTranscriber) Kinds() []clip.QueryKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]clip.QueryKind(nil), m.kinds...)
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
