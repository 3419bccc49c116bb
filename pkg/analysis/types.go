// Package analysis defines the shared data contract for sentence analysis:
// request parameters, the cached record, and the streamed chunk log.
package analysis

import "time"

// Params are the inputs to one sentence analysis. The fingerprint is
// computed over the canonicalised tuple (sentence, target word, target
// language, native language, before context, after context) in that order.
type Params struct {
	Sentence       string  `json:"sentence"`
	TargetWord     string  `json:"targetWord"`
	TargetLanguage string  `json:"targetLanguage"`
	NativeLanguage string  `json:"nativeLanguage"`
	ContextBefore  string  `json:"contextBefore,omitempty"`
	ContextAfter   string  `json:"contextAfter,omitempty"`
	VideoTimestamp float64 `json:"videoTimestamp,omitempty"`
	UserID         string  `json:"userId,omitempty"`
}

// Chunk is one incremental piece of streamed model output. Timestamp is
// milliseconds since the stream started, preserving upstream pacing for
// later replay.
type Chunk struct {
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// BreakdownItem explains one word or phrase of the analysed sentence.
type BreakdownItem struct {
	Word         string `json:"word"`
	Reading      string `json:"reading,omitempty"`
	Meaning      string `json:"meaning"`
	PartOfSpeech string `json:"partOfSpeech,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// Idiom describes an idiomatic expression found in the sentence.
type Idiom struct {
	Phrase     string `json:"phrase"`
	Meaning    string `json:"meaning"`
	Literal    string `json:"literal,omitempty"`
	UsageNotes string `json:"usageNotes,omitempty"`
}

// Result holds the structured fields parsed from a completed analysis.
type Result struct {
	FullTranslation    string          `json:"fullTranslation"`
	LiteralTranslation string          `json:"literalTranslation"`
	GrammarAnalysis    string          `json:"grammarAnalysis"`
	Breakdown          []BreakdownItem `json:"breakdown"`
	Idioms             []Idiom         `json:"idioms"`
	DifficultyNotes    string          `json:"difficultyNotes,omitempty"`
}

// Record is a persisted analysis. The body is immutable after insert;
// AccessCount and LastAccessedAt advance monotonically on each cache hit.
type Record struct {
	Fingerprint    string    `json:"fingerprint"`
	Sentence       string    `json:"sentence"`
	TargetWord     string    `json:"targetWord"`
	TargetLanguage string    `json:"targetLanguage"`
	NativeLanguage string    `json:"nativeLanguage"`
	ContextBefore  string    `json:"contextBefore,omitempty"`
	ContextAfter   string    `json:"contextAfter,omitempty"`
	Result         Result    `json:"result"`
	Chunks         []Chunk   `json:"chunks,omitempty"`
	AccessCount    int       `json:"accessCount"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
}
