package match

import (
	"slices"
	"testing"

	"github.com/flemzord/phrasecue/pkg/clip"
)

func cueList(texts ...string) []clip.Cue {
	cues := make([]clip.Cue, len(texts))
	for i, t := range texts {
		cues[i] = clip.Cue{Text: t, Start: float64(i) * 3, Duration: 3}
	}
	return cues
}

func TestFind_ExactWord(t *testing.T) {
	t.Parallel()

	cues := cueList("Let us talk about snakes.", "Python is a language.", "It is popular.")

	if got := Find(cues, "python", clip.KindWord); got != 1 {
		t.Errorf("Find = %d, want 1", got)
	}
	// Word-boundary: "pythonic" must not satisfy the exact pass for "python"
	// before an actual boundary hit appears.
	cues2 := cueList("A pythonic style.", "We use python here.")
	if got := Find(cues2, "python", clip.KindWord); got != 1 {
		t.Errorf("Find = %d, want 1 (boundary hit preferred)", got)
	}
}

func TestFind_ExactSentence(t *testing.T) {
	t.Parallel()

	cues := cueList("intro", "so as I was saying, practice makes perfect, right?", "outro")
	if got := Find(cues, "practice makes perfect", clip.KindSentence); got != 1 {
		t.Errorf("Find = %d, want 1", got)
	}
}

func TestFind_FuzzySentenceAcrossCues(t *testing.T) {
	t.Parallel()

	cues := cueList(
		"nothing here",
		"also nothing",
		"she was dancing all",
		"night at the party",
	)
	// "dance all night" has no exact containment but every token (with
	// variations) appears in the 3-cue window starting at index 1.
	if got := Find(cues, "dance all night", clip.KindSentence); got != 1 {
		t.Errorf("Find = %d, want 1", got)
	}
}

func TestFind_LooseWordSubstring(t *testing.T) {
	t.Parallel()

	// No word-boundary hit anywhere, but a substring hit exists.
	cues := cueList("unrelated", "the micropython board arrived")
	if got := Find(cues, "python", clip.KindWord); got != 1 {
		t.Errorf("Find = %d, want 1", got)
	}
}

func TestFind_NoMatch(t *testing.T) {
	t.Parallel()

	cues := cueList("nothing", "to see")
	if got := Find(cues, "python", clip.KindWord); got != -1 {
		t.Errorf("Find = %d, want -1", got)
	}
	if got := Find(nil, "python", clip.KindWord); got != -1 {
		t.Errorf("Find on empty = %d, want -1", got)
	}
}

func TestBoundary(t *testing.T) {
	t.Parallel()

	cues := cueList(
		"First sentence ends here.", // 0: terminal
		"Python is a high-level",    // 1
		"programming language.",     // 2: terminal
		"Another sentence.",         // 3
	)

	w := Boundary(cues, 1)
	if w.StartIndex != 1 || w.EndIndex != 2 {
		t.Fatalf("window = [%d,%d], want [1,2]", w.StartIndex, w.EndIndex)
	}
	if w.StartTime != 3 {
		t.Errorf("StartTime = %v, want 3", w.StartTime)
	}
	// End cue starts at 6, runs 3 seconds, plus 2 s padding.
	if w.EndTime != 11 {
		t.Errorf("EndTime = %v, want 11", w.EndTime)
	}
	if w.Caption != "Python is a high-level programming language." {
		t.Errorf("Caption = %q", w.Caption)
	}
}

func TestBoundary_NoPunctuation(t *testing.T) {
	t.Parallel()

	cues := cueList("no punctuation", "anywhere at all", "in this transcript")
	w := Boundary(cues, 1)
	if w.StartIndex != 0 || w.EndIndex != 2 {
		t.Errorf("window = [%d,%d], want [0,2]", w.StartIndex, w.EndIndex)
	}
}

func TestBoundary_ContainsMatch(t *testing.T) {
	t.Parallel()

	cues := cueList("One.", "two", "three.", "Four.")
	for m := range cues {
		w := Boundary(cues, m)
		matched := cues[m]
		if matched.Start < w.StartTime || matched.End() > w.EndTime {
			t.Errorf("m=%d: window [%v,%v] does not contain cue [%v,%v]",
				m, w.StartTime, w.EndTime, matched.Start, matched.End())
		}
	}
}

func TestOverlapping(t *testing.T) {
	t.Parallel()

	cues := cueList("a", "b", "c", "d") // starts 0,3,6,9; duration 3
	got := Overlapping(cues, 3, 9)
	if len(got) != 2 || got[0].Text != "b" || got[1].Text != "c" {
		t.Errorf("Overlapping = %+v", got)
	}
}

func TestVariations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		want  []string
	}{
		{"dance", []string{"danced", "dancing"}},
		{"act", []string{"action"}},
		{"action", []string{"act", "acting"}},
		{"study", []string{"studies", "studied"}},
	}
	for _, tt := range tests {
		got := Variations(tt.token)
		if !slices.Contains(got, tt.token) {
			t.Errorf("Variations(%q) missing base form", tt.token)
		}
		for _, w := range tt.want {
			if !slices.Contains(got, w) {
				t.Errorf("Variations(%q) = %v, missing %q", tt.token, got, w)
			}
		}
	}
}

func TestIsLikelyEnglish(t *testing.T) {
	t.Parallel()

	english := "This is a test of the gate and it should pass with the usual words."
	if !IsLikelyEnglish(english, DefaultMinFunctionWords, DefaultMaxNonASCIIRatio) {
		t.Error("english text rejected")
	}

	french := "Ceci est un texte français sans mots-outils anglais du tout vraiment."
	if IsLikelyEnglish(french, DefaultMinFunctionWords, DefaultMaxNonASCIIRatio) {
		t.Error("french text accepted")
	}

	japanese := "これは日本語のテキストです。" + "the is a of and in"
	if IsLikelyEnglish(japanese, DefaultMinFunctionWords, DefaultMaxNonASCIIRatio) {
		t.Error("mostly non-ASCII text accepted")
	}

	if IsLikelyEnglish("", DefaultMinFunctionWords, DefaultMaxNonASCIIRatio) {
		t.Error("empty text accepted")
	}
}

func TestExtractWords(t *testing.T) {
	t.Parallel()

	got := ExtractWords("Python is a high-level programming language. Python!")
	want := []string{"python", "is", "a", "high", "level", "programming", "language"}
	if !slices.Equal(got, want) {
		t.Errorf("ExtractWords = %v, want %v", got, want)
	}
}
