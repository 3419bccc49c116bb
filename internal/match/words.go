package match

import "strings"

// wordPunctuation is replaced with spaces before splitting caption text
// into index words.
const wordPunctuation = ".,!?;:'\"()[]{}—–-"

// ExtractWords lowercases caption text, strips punctuation, and returns the
// unique words in first-occurrence order.
func ExtractWords(text string) []string {
	lower := strings.ToLower(text)

	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(wordPunctuation, r) {
			return ' '
		}
		return r
	}, lower)

	seen := make(map[string]struct{})
	var words []string
	for _, w := range strings.Fields(mapped) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return words
}
