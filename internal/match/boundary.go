package match

import (
	"strings"

	"github.com/flemzord/phrasecue/pkg/clip"
)

// TrailingPadding is added to a window's end time so the clip does not cut
// off mid-word.
const TrailingPadding = 2.0

// Window is a sentence-bounded interval around a matched cue.
type Window struct {
	StartIndex int
	EndIndex   int
	StartTime  float64
	EndTime    float64
	Caption    string
}

// Boundary expands the match at index m to the surrounding sentence.
// Scanning backward, the sentence starts just after the nearest cue ending
// in terminal punctuation (or at cue 0). Scanning forward, it ends at the
// first cue ending in terminal punctuation (inclusive), or the last cue.
// EndTime carries TrailingPadding.
func Boundary(cues []clip.Cue, m int) Window {
	if m < 0 {
		m = 0
	}
	if m >= len(cues) {
		m = len(cues) - 1
	}

	start := 0
	for i := m - 1; i >= 0; i-- {
		if endsSentence(cues[i].Text) {
			start = i + 1
			break
		}
	}

	end := len(cues) - 1
	for i := m; i < len(cues); i++ {
		if endsSentence(cues[i].Text) {
			end = i
			break
		}
	}

	texts := make([]string, 0, end-start+1)
	for _, c := range cues[start : end+1] {
		texts = append(texts, c.Text)
	}

	return Window{
		StartIndex: start,
		EndIndex:   end,
		StartTime:  cues[start].Start,
		EndTime:    cues[end].Start + cues[end].Duration + TrailingPadding,
		Caption:    strings.TrimSpace(strings.Join(texts, " ")),
	}
}

// Overlapping returns the cues intersecting [start, end).
func Overlapping(cues []clip.Cue, start, end float64) []clip.Cue {
	var out []clip.Cue
	for _, c := range cues {
		if c.Start < end && c.End() > start {
			out = append(out, c)
		}
	}
	return out
}

func endsSentence(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	switch t[len(t)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}
