package quota

import (
	"fmt"
	"strings"
	"time"
)

// FormatRetryAfter renders a wait duration for humans, e.g.
// "2 hours 5 minutes". Sub-minute waits round up to "1 minute" so the
// client never retries early.
func FormatRetryAfter(d time.Duration) string {
	if d <= 0 {
		return "0 minutes"
	}
	minutes := int((d + time.Minute - 1) / time.Minute)
	hours := minutes / 60
	minutes %= 60

	var parts []string
	if hours == 1 {
		parts = append(parts, "1 hour")
	} else if hours > 1 {
		parts = append(parts, fmt.Sprintf("%d hours", hours))
	}
	if minutes == 1 {
		parts = append(parts, "1 minute")
	} else if minutes > 1 || hours == 0 {
		parts = append(parts, fmt.Sprintf("%d minutes", minutes))
	}
	return strings.Join(parts, " ")
}
