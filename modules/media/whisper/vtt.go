package whisper

import (
	"fmt"
	"os"
	"strings"

	"github.com/flemzord/phrasecue/pkg/clip"
)

// writeVTT renders cues as a WEBVTT file.
func writeVTT(path string, cues []clip.Cue) error {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, c := range cues {
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n",
			vttTimestamp(c.Start), vttTimestamp(c.End()), c.Text)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("whisper: write captions: %w", err)
	}
	return nil
}

// vttTimestamp renders seconds as HH:MM:SS.mmm.
func vttTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	h := millis / 3600000
	m := millis % 3600000 / 60000
	s := millis % 60000 / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
