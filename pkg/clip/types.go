// Package clip defines the shared data contract for the clip search pipeline:
// timed caption cues, matched segments, and the job records that track a
// search from enqueue to terminal state.
package clip

import "time"

// Cue is one timed caption entry. Start and Duration are in seconds.
type Cue struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// End returns the cue's end time in seconds.
func (c Cue) End() float64 {
	return c.Start + c.Duration
}

// QueryKind discriminates single-word from multi-word queries.
type QueryKind string

const (
	// KindWord is a single-word query with no internal punctuation.
	KindWord QueryKind = "word"
	// KindSentence is a multi-word or punctuated query.
	KindSentence QueryKind = "sentence"
)

// Segment is a completed search result: the interval of a video that
// contains the queried phrase, expanded to a natural sentence boundary.
// Segments are immutable once stored.
type Segment struct {
	Fingerprint string    `json:"fingerprint"`
	Query       string    `json:"query"`
	VideoID     string    `json:"videoId"`
	StartTime   float64   `json:"startTime"`
	EndTime     float64   `json:"endTime"`
	Caption     string    `json:"caption"`
	Captions    []Cue     `json:"captions"`
	CreatedAt   time.Time `json:"createdAt"`
}

// URL returns the public watch URL for the segment's source video.
func (s Segment) URL() string {
	return "https://www.youtube.com/watch?v=" + s.VideoID
}

// Ref returns the segment's index reference.
func (s Segment) Ref() SegmentRef {
	return SegmentRef{
		VideoID:   s.VideoID,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Caption:   s.Caption,
	}
}

// SegmentRef is the compact reference stored in the word index. Two refs are
// the same occurrence iff (VideoID, StartTime, EndTime) are equal.
type SegmentRef struct {
	VideoID   string  `json:"videoId"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Caption   string  `json:"caption,omitempty"`
}

// Same reports whether two refs point at the same video interval.
func (r SegmentRef) Same(other SegmentRef) bool {
	return r.VideoID == other.VideoID &&
		r.StartTime == other.StartTime &&
		r.EndTime == other.EndTime
}

// JobStatus is the lifecycle state of a search job.
type JobStatus string

const (
	StatusQueued       JobStatus = "queued"
	StatusSearching    JobStatus = "searching"
	StatusDownloading  JobStatus = "downloading"
	StatusTranscribing JobStatus = "transcribing"
	StatusCompleted    JobStatus = "completed"
	StatusFailed       JobStatus = "failed"
)

// Terminal reports whether the status is a terminal state. Terminal jobs
// never transition again.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks one search through the pipeline. Exactly one job exists per
// fingerprint at any time.
type Job struct {
	ID             string    `json:"id"`
	Fingerprint    string    `json:"fingerprint"`
	Query          string    `json:"query"`
	Canonical      string    `json:"canonical"`
	Kind           QueryKind `json:"kind"`
	Status         JobStatus `json:"status"`
	CurrentVideoID string    `json:"currentVideoId,omitempty"`
	Result         *Segment  `json:"result,omitempty"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// WordEntry is one reverse-index row: a word and every stored segment whose
// caption contains it, in insertion order.
type WordEntry struct {
	Word      string       `json:"word"`
	Examples  []SegmentRef `json:"examples"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// IndexStats summarises the word index.
type IndexStats struct {
	TotalWords    int `json:"totalWords"`
	TotalMappings int `json:"totalMappings"`
}
