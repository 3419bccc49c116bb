package analysis

import (
	"strings"
	"testing"
)

func TestParseResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "bare json",
			raw:  `{"fullTranslation": "Hello world", "literalTranslation": "world hello"}`,
			want: "Hello world",
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"fullTranslation\": \"Good morning\"}\n```",
			want: "Good morning",
		},
		{
			name: "fence without language tag",
			raw:  "```\n{\"fullTranslation\": \"Hi\"}\n```",
			want: "Hi",
		},
		{
			name: "surrounding prose",
			raw:  "Here is the analysis:\n{\"fullTranslation\": \"Thanks\"}\nLet me know if you need more.",
			want: "Thanks",
		},
		{
			name:    "no json object",
			raw:     "I cannot analyse that sentence.",
			wantErr: true,
		},
		{
			name:    "missing fullTranslation",
			raw:     `{"literalTranslation": "only literal"}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			raw:     `{"fullTranslation": "unterminated`,
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := ParseResponse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", res)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.FullTranslation != tt.want {
				t.Errorf("fullTranslation = %q, want %q", res.FullTranslation, tt.want)
			}
		})
	}
}

func TestParseResponse_StructuredFields(t *testing.T) {
	t.Parallel()

	raw := `{
		"fullTranslation": "I ate an apple.",
		"grammarAnalysis": "simple past tense",
		"breakdown": [{"word": "ate", "meaning": "past of eat", "partOfSpeech": "verb"}],
		"idioms": [{"phrase": "an apple a day", "meaning": "regular habits keep you healthy"}],
		"difficultyNotes": "irregular verb"
	}`

	res, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Breakdown) != 1 || res.Breakdown[0].Word != "ate" {
		t.Errorf("breakdown = %+v", res.Breakdown)
	}
	if len(res.Idioms) != 1 || res.Idioms[0].Phrase != "an apple a day" {
		t.Errorf("idioms = %+v", res.Idioms)
	}
	if res.DifficultyNotes != "irregular verb" {
		t.Errorf("difficultyNotes = %q", res.DifficultyNotes)
	}
}

func TestPrompt_IncludesOptionalFields(t *testing.T) {
	t.Parallel()

	p := Params{
		Sentence:       "Er hat den Zug verpasst.",
		TargetWord:     "verpasst",
		TargetLanguage: "German",
		NativeLanguage: "English",
		ContextBefore:  "Wir warteten am Bahnhof.",
	}
	out := Prompt(p)

	for _, want := range []string{"German", "English", "Er hat den Zug verpasst.", `"verpasst"`, "Wir warteten am Bahnhof."} {
		if !strings.Contains(out, want) {
			t.Errorf("prompt missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Following context") {
		t.Errorf("prompt mentions absent context:\n%s", out)
	}
}
