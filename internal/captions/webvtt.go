// Package captions parses WEBVTT-style timed caption files and stitches
// per-chunk transcriptions back onto a single timeline.
package captions

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/flemzord/phrasecue/pkg/clip"
)

// timingPattern matches a cue timing line. Both HH:MM:SS.mmm and MM:SS.mmm
// forms are accepted on either side of the arrow.
var timingPattern = regexp.MustCompile(
	`^(\d{1,2}:)?(\d{1,2}):(\d{2})[.,](\d{3})\s*-->\s*(\d{1,2}:)?(\d{1,2}):(\d{2})[.,](\d{3})`)

// ParseFile reads and parses a WEBVTT file from disk.
func ParseFile(path string) ([]clip.Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("captions: read %s: %w", path, err)
	}
	return Parse(string(data))
}

// Parse parses WEBVTT text into an ordered cue list. Content before the
// WEBVTT header, NOTE blocks, cue identifiers, and empty cues are skipped.
// Multi-line cue text is joined with single spaces.
func Parse(text string) ([]clip.Cue, error) {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cues []clip.Cue
	seenHeader := false
	inNote := false

	var cur *clip.Cue
	var lines []string

	flush := func() {
		if cur == nil {
			return
		}
		joined := strings.TrimSpace(strings.Join(lines, " "))
		if joined != "" {
			cur.Text = joined
			cues = append(cues, *cur)
		}
		cur = nil
		lines = nil
	}

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if !seenHeader {
			if strings.HasPrefix(trimmed, "WEBVTT") {
				seenHeader = true
			}
			continue
		}

		if trimmed == "" {
			flush()
			inNote = false
			continue
		}
		if inNote {
			continue
		}
		if strings.HasPrefix(trimmed, "NOTE") && cur == nil {
			inNote = true
			continue
		}

		if m := timingPattern.FindStringSubmatch(trimmed); m != nil {
			flush()
			start := toSeconds(m[1], m[2], m[3], m[4])
			end := toSeconds(m[5], m[6], m[7], m[8])
			cur = &clip.Cue{Start: start, Duration: maxf(end-start, 0)}
			continue
		}

		if cur != nil {
			lines = append(lines, trimmed)
		}
		// Anything else (cue identifiers, stray text) is ignored.
	}
	flush()

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("captions: scan: %w", err)
	}
	if !seenHeader {
		return nil, fmt.Errorf("captions: missing WEBVTT header")
	}
	return cues, nil
}

// toSeconds converts split timestamp groups into seconds. The hours group
// includes its trailing colon and may be empty for MM:SS.mmm timestamps.
func toSeconds(hours, minutes, seconds, millis string) float64 {
	h := 0
	if hours != "" {
		h, _ = strconv.Atoi(strings.TrimSuffix(hours, ":"))
	}
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	ms, _ := strconv.Atoi(millis)
	return float64(h)*3600 + float64(m)*60 + float64(s) + float64(ms)/1000
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
