package language

import (
	"strings"

	"github.com/amtly/amtly/internal/confidence"
)

var explainWords = []string{
	"explain", "erkläre", "erklären", "analyse", "analyze",
	"what is", "was ist", "tell me", "sag mir", "describe", "beschreib",
}

var translateWords = []string{
	"translate", "übersetze", "übersetz", "translation", "übersetzung",
	"in english", "auf englisch", "in german", "auf deutsch",
}

// Intent holds what the user wants done with content.
type Intent struct {
	Explain   bool `json:"explain"`
	Translate bool `json:"translate"`
}

// DetectIntent derives the explanation and translation flags. When neither
// is requested, explanation is assumed.
func DetectIntent(text string) Intent {
	lower := strings.ToLower(text)
	in := Intent{
		Explain:   containsAny(lower, explainWords),
		Translate: containsAny(lower, translateWords),
	}
	if !in.Explain && !in.Translate {
		in.Explain = true
	}
	return in
}

// Utterance is one user message with its derived attributes. It lives for a
// single request.
type Utterance struct {
	Text        string           `json:"text"`
	Language    Language         `json:"language"`
	Confidence  confidence.Level `json:"confidence"`
	Institution bool             `json:"institution_request"`
	Intent      Intent           `json:"intent"`
}

// Analyze resolves language and intent for text in one step.
func (r *Resolver) Analyze(text string, override Language) Utterance {
	res := r.Resolve(text, override)
	return Utterance{
		Text:        text,
		Language:    res.Language,
		Confidence:  res.Confidence,
		Institution: res.Institution,
		Intent:      DetectIntent(text),
	}
}
