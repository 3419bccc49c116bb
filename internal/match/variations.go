// Package match locates a queried phrase inside a caption list and expands
// the hit to a natural sentence boundary. Matching is variation-tolerant:
// common inflections of each token count as hits.
package match

import (
	"regexp"
	"strings"
)

// Variations returns the inflection set for a token, collapsed to unique
// forms. The base form is always included. Matching treats each variation
// as a word-boundary prefix, so suffix-only inflections (plural -s, -ed on
// regular verbs) are covered by the base form already; the rules below add
// the stem-changing forms the prefix match would miss.
func Variations(token string) []string {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return nil
	}

	set := map[string]struct{}{token: {}}
	add := func(v string) {
		if v != "" {
			set[v] = struct{}{}
		}
	}

	add(token + "s")
	add(token + "ed")
	add(token + "ing")

	switch {
	case strings.HasSuffix(token, "e"):
		// dance -> danced, dancing
		add(token + "d")
		add(token[:len(token)-1] + "ing")
	case strings.HasSuffix(token, "t"):
		// act -> action
		add(token + "ion")
	case strings.HasSuffix(token, "y") && len(token) > 2:
		// study -> studies, studied
		add(token[:len(token)-1] + "ies")
		add(token[:len(token)-1] + "ied")
	}

	if strings.HasSuffix(token, "ion") && len(token) > 4 {
		// action -> act, acting
		stem := token[:len(token)-3]
		add(stem)
		add(stem + "ing")
	}

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

// containsVariation reports whether any variation of token occurs in text
// at a word boundary, as a prefix of a word. Text must already be lowercase.
func containsVariation(text, token string) bool {
	for _, v := range Variations(token) {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(v) + `\w*`)
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
