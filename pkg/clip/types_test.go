package clip

import "testing"

func TestJobStatus_Terminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status JobStatus
		want   bool
	}{
		{StatusQueued, false},
		{StatusSearching, false},
		{StatusDownloading, false},
		{StatusTranscribing, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestSegmentRef_Same(t *testing.T) {
	t.Parallel()

	a := SegmentRef{VideoID: "v1", StartTime: 1.5, EndTime: 4.25, Caption: "hello there"}

	if !a.Same(SegmentRef{VideoID: "v1", StartTime: 1.5, EndTime: 4.25, Caption: "different text"}) {
		t.Error("refs with equal interval should match regardless of caption")
	}
	if a.Same(SegmentRef{VideoID: "v2", StartTime: 1.5, EndTime: 4.25}) {
		t.Error("different video should not match")
	}
	if a.Same(SegmentRef{VideoID: "v1", StartTime: 1.5, EndTime: 5}) {
		t.Error("different end time should not match")
	}
}

func TestSegment_RefAndURL(t *testing.T) {
	t.Parallel()

	s := Segment{VideoID: "abc123", StartTime: 10, EndTime: 14, Caption: "the quick brown fox"}

	ref := s.Ref()
	if ref.VideoID != "abc123" || ref.StartTime != 10 || ref.EndTime != 14 || ref.Caption != s.Caption {
		t.Errorf("Ref() = %+v", ref)
	}
	if got := s.URL(); got != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("URL() = %q", got)
	}
}

func TestCue_End(t *testing.T) {
	t.Parallel()

	c := Cue{Start: 2.5, Duration: 1.25}
	if got := c.End(); got != 3.75 {
		t.Errorf("End() = %v, want 3.75", got)
	}
}
