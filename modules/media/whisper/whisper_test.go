package whisper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/flemzord/phrasecue/internal/captions"
	"github.com/flemzord/phrasecue/pkg/clip"
)

func TestVTTTimestamp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00.000"},
		{1.5, "00:00:01.500"},
		{61.042, "00:01:01.042"},
		{3723.9, "01:02:03.900"},
		{-1, "00:00:00.000"},
	}
	for _, tc := range cases {
		if got := vttTimestamp(tc.seconds); got != tc.want {
			t.Errorf("vttTimestamp(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestWriteVTT_RoundTrips(t *testing.T) {
	t.Parallel()

	cues := []clip.Cue{
		{Text: "well hello world", Start: 12.5, Duration: 3.0},
		{Text: "everyone", Start: 15.5, Duration: 2.5},
	}

	path := filepath.Join(t.TempDir(), "out.vtt")
	if err := writeVTT(path, cues); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := captions.ParseFile(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("cues = %d, want 2", len(got))
	}
	for i, cue := range got {
		if cue.Text != cues[i].Text {
			t.Errorf("cue %d text = %q, want %q", i, cue.Text, cues[i].Text)
		}
		if diff := cue.Start - cues[i].Start; diff < -0.001 || diff > 0.001 {
			t.Errorf("cue %d start = %v, want %v", i, cue.Start, cues[i].Start)
		}
	}
}

func TestWriteVTT_Empty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.vtt")
	if err := writeVTT(path, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "WEBVTT\n\n" {
		t.Errorf("content = %q", data)
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.defaults()
	if cfg.BinaryPath != "whisper" || cfg.FFmpegPath != "ffmpeg" || cfg.Language != "en" {
		t.Errorf("defaults = %+v", cfg)
	}
}
