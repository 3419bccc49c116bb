package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseResponse extracts the structured Result from raw model output.
// Models frequently wrap JSON in a markdown code fence; the fence is
// stripped before parsing. The first '{' to the last '}' is taken as the
// JSON body so that leading or trailing prose does not break parsing.
func ParseResponse(raw string) (Result, error) {
	body := stripFences(strings.TrimSpace(raw))

	start := strings.IndexByte(body, '{')
	end := strings.LastIndexByte(body, '}')
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("analysis: no JSON object in response")
	}

	var res Result
	if err := json.Unmarshal([]byte(body[start:end+1]), &res); err != nil {
		return Result{}, fmt.Errorf("analysis: parse response: %w", err)
	}
	if res.FullTranslation == "" {
		return Result{}, fmt.Errorf("analysis: response missing fullTranslation")
	}
	return res, nil
}

// stripFences removes a markdown code fence (``` or ```json) wrapping the
// body, if present.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop the language tag on the opening fence line.
		first := strings.TrimSpace(s[:idx])
		if first == "" || !strings.ContainsAny(first, "{}") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
