// Package query canonicalises user queries and derives the fingerprints
// that key every cache in the system.
package query

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/flemzord/phrasecue/pkg/clip"
)

// MaxQueryLength bounds the canonical form, in runes.
const MaxQueryLength = 200

// ErrInvalidInput is returned for empty or oversized queries.
var ErrInvalidInput = errors.New("invalid query")

// Canonical is the normalised form of a user query plus its classification.
type Canonical struct {
	Text string
	Kind clip.QueryKind
}

// Canonicalize normalises a raw query: outer whitespace trimmed, lowercased,
// and bounded to MaxQueryLength runes. The kind is sentence when the
// canonical form contains whitespace or terminal punctuation, word
// otherwise. Canonicalize is idempotent.
func Canonicalize(raw string) (Canonical, error) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return Canonical{}, fmt.Errorf("%w: empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxQueryLength {
		return Canonical{}, fmt.Errorf("%w: longer than %d characters", ErrInvalidInput, MaxQueryLength)
	}

	kind := clip.KindWord
	if strings.ContainsFunc(text, isSentenceMarker) {
		kind = clip.KindSentence
	}
	return Canonical{Text: text, Kind: kind}, nil
}

func isSentenceMarker(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(".,!?;:", r)
}
