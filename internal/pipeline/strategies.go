// Package pipeline runs search jobs: a bounded worker pool polls the job
// store and drives each job through search, download, chunked transcription,
// phrase matching, sentence boundary detection, persistence, and word
// indexing.
package pipeline

import (
	"github.com/flemzord/phrasecue/pkg/clip"
)

// Strategies returns the ordered catalog query expansions for a canonical
// query. The order is fixed: quoted educational phrasing first for words,
// exact quoting first for sentences. Ranking beyond this expansion is out
// of scope.
func Strategies(canonical string, kind clip.QueryKind) []string {
	quoted := `"` + canonical + `"`
	if kind == clip.KindWord {
		return []string{
			quoted + " explained",
			canonical + " explained",
			canonical,
			quoted,
		}
	}
	return []string{
		quoted,
		canonical,
		canonical + " example",
		quoted + " explained",
	}
}
