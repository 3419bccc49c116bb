package match

import (
	"regexp"
	"strings"

	"github.com/flemzord/phrasecue/pkg/clip"
)

// fuzzyWindow is how many consecutive cues are joined when looking for a
// sentence spread across caption segments.
const fuzzyWindow = 3

// Find returns the index of the first cue that matches the canonical query,
// or -1 when nothing matches. Three passes run in order of strictness:
//
//  1. exact — word-boundary match (word) or substring containment (sentence)
//  2. fuzzy — sentence only: every token (with variations) present in a
//     3-cue window starting at the candidate index
//  3. loose — word only: substring containment
func Find(cues []clip.Cue, canonical string, kind clip.QueryKind) int {
	canonical = strings.ToLower(strings.TrimSpace(canonical))
	if canonical == "" || len(cues) == 0 {
		return -1
	}

	// Pass 1: exact.
	if kind == clip.KindWord {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(canonical) + `\b`)
		for i, c := range cues {
			if re.MatchString(strings.ToLower(c.Text)) {
				return i
			}
		}
	} else {
		for i, c := range cues {
			if strings.Contains(strings.ToLower(c.Text), canonical) {
				return i
			}
		}
	}

	// Pass 2: fuzzy sentence match across a cue window.
	if kind == clip.KindSentence {
		tokens := queryTokens(canonical)
		if len(tokens) > 0 {
			for i := range cues {
				end := i + fuzzyWindow
				if end > len(cues) {
					end = len(cues)
				}
				var sb strings.Builder
				for _, c := range cues[i:end] {
					sb.WriteString(strings.ToLower(c.Text))
					sb.WriteByte(' ')
				}
				window := sb.String()

				all := true
				for _, tok := range tokens {
					if !containsVariation(window, tok) {
						all = false
						break
					}
				}
				if all {
					return i
				}
			}
		}
	}

	// Pass 3: loose word substring.
	if kind == clip.KindWord {
		for i, c := range cues {
			if strings.Contains(strings.ToLower(c.Text), canonical) {
				return i
			}
		}
	}

	return -1
}

// queryTokens splits a canonical phrase into matchable tokens, dropping
// punctuation-only fragments.
func queryTokens(canonical string) []string {
	raw := strings.FieldsFunc(canonical, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '\''
	})
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.Trim(t, "'")
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
