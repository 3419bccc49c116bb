package match

import (
	"regexp"
	"strings"
)

// Defaults for the English-language gate. Both are empirical and stay
// configurable because transcripts heavy on proper nouns can fall short of
// the function-word floor.
const (
	DefaultMinFunctionWords = 5
	DefaultMaxNonASCIIRatio = 0.2
)

// functionWords are common English function words counted as isolated
// tokens when deciding whether a transcript is English.
var functionWords = []string{
	"the", "a", "an", "is", "are", "was", "were", "be", "been",
	"to", "of", "and", "in", "on", "at", "for", "with", "that",
	"this", "it", "as", "by", "from", "but", "not", "you", "we",
	"they", "have", "has", "had", "do", "does", "will", "would",
	"can", "could", "what", "which", "their", "there",
}

var tokenPattern = regexp.MustCompile(`[a-z']+`)

// IsLikelyEnglish applies the heuristic gate: at least minHits occurrences
// of common English function words as isolated tokens, and a non-ASCII
// character ratio below maxRatio. Zero-length text never passes.
func IsLikelyEnglish(text string, minHits int, maxRatio float64) bool {
	if text == "" {
		return false
	}

	lower := strings.ToLower(text)
	lookup := make(map[string]struct{}, len(functionWords))
	for _, w := range functionWords {
		lookup[w] = struct{}{}
	}

	hits := 0
	for _, tok := range tokenPattern.FindAllString(lower, -1) {
		if _, ok := lookup[tok]; ok {
			hits++
		}
	}
	if hits < minHits {
		return false
	}

	nonASCII := 0
	total := 0
	for _, r := range text {
		total++
		if r > 127 {
			nonASCII++
		}
	}
	return float64(nonASCII)/float64(total) < maxRatio
}
