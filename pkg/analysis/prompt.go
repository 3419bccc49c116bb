package analysis

import (
	"fmt"
	"strings"
)

// SystemPrompt frames the model as a language tutor and pins the output
// contract to a single JSON object.
const SystemPrompt = `You are an expert language tutor. You analyse one sentence at a time for a learner and respond with a single JSON object, no prose before or after it, using exactly these keys:
{
  "fullTranslation": "natural translation of the whole sentence",
  "literalTranslation": "word-for-word translation preserving source order",
  "grammarAnalysis": "explanation of the sentence structure",
  "breakdown": [{"word": "", "reading": "", "meaning": "", "partOfSpeech": "", "notes": ""}],
  "idioms": [{"phrase": "", "meaning": "", "literal": "", "usageNotes": ""}],
  "difficultyNotes": "optional notes on what makes this sentence hard"
}
Omit empty optional fields. Write all explanations in the learner's native language.`

// Prompt renders the user message for one analysis request.
func Prompt(p Params) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyse this %s sentence for a %s speaker.\n\n", p.TargetLanguage, p.NativeLanguage)
	fmt.Fprintf(&b, "Sentence: %s\n", p.Sentence)
	if p.TargetWord != "" {
		fmt.Fprintf(&b, "Pay particular attention to the word or phrase: %q\n", p.TargetWord)
	}
	if p.ContextBefore != "" {
		fmt.Fprintf(&b, "Preceding context: %s\n", p.ContextBefore)
	}
	if p.ContextAfter != "" {
		fmt.Fprintf(&b, "Following context: %s\n", p.ContextAfter)
	}
	return b.String()
}
