// Package language decides which language a reply should be written in and
// recognises requests to write to German authorities.
package language

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"

	"github.com/amtly/amtly/internal/confidence"
)

// Language is an ISO 639-1 code.
type Language string

const (
	English Language = "en"
	German  Language = "de"
)

// Valid reports whether l is one of the languages replies can be written in.
func (l Language) Valid() bool {
	return l == English || l == German
}

// Name returns the human-readable language name.
func (l Language) Name() string {
	switch l {
	case English:
		return "English"
	case German:
		return "Deutsch"
	default:
		return strings.ToUpper(string(l))
	}
}

// Reason records which rule produced a resolution.
type Reason string

const (
	ReasonEmpty       Reason = "empty_text"
	ReasonInstitution Reason = "institution_request"
	ReasonPhrase      Reason = "explicit_phrase"
	ReasonOverride    Reason = "explicit_override"
	ReasonKeywords    Reason = "keyword_detection"
	ReasonStatistical Reason = "statistical_detection"
	ReasonFallback    Reason = "fallback"
)

// Resolution is the outcome of resolving the reply language.
type Resolution struct {
	Language    Language         `json:"language"`
	Confidence  confidence.Level `json:"confidence"`
	Reason      Reason           `json:"reason"`
	Institution bool             `json:"institution_request"`
}

// shortTextRunes is the cleaned length below which keyword counting is
// preferred over statistical detection.
const shortTextRunes = 20

// longTextRunes is the cleaned length above which statistical detection is
// considered highly confident.
const longTextRunes = 50

var switchPhrases = []struct {
	phrases []string
	lang    Language
}{
	{[]string{"in english", "auf englisch", "translate to english"}, English},
	{[]string{"auf deutsch", "in german", "translate to german"}, German},
}

var (
	formTokenRe   = regexp.MustCompile(`(?i)\b(form|HA|WBA|UF|KDU|VM|EK)\b`)
	digitsRe      = regexp.MustCompile(`\d+`)
	punctuationRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	spacesRe      = regexp.MustCompile(`\s+`)
)

var statisticalLanguages = map[whatlanggo.Lang]Language{
	whatlanggo.Eng: English,
	whatlanggo.Deu: German,
}

// Resolver resolves reply languages. It holds no mutable state and is safe
// for concurrent use.
type Resolver struct {
	fallback  Language
	supported map[Language]bool
}

// NewResolver creates a Resolver. An invalid fallback defaults to English;
// an empty supported list means English and German.
func NewResolver(fallback Language, supported []Language) *Resolver {
	if !fallback.Valid() {
		fallback = English
	}
	set := make(map[Language]bool)
	for _, l := range supported {
		if l.Valid() {
			set[l] = true
		}
	}
	if len(set) == 0 {
		set[English] = true
		set[German] = true
	}
	set[fallback] = true
	return &Resolver{fallback: fallback, supported: set}
}

// Default returns the configured fallback language.
func (r *Resolver) Default() Language { return r.fallback }

// Resolve determines the reply language for text. Institution requests
// always resolve to German. After that an explicit switch phrase in the text
// wins, then override when it names a supported language, then detection.
func (r *Resolver) Resolve(text string, override Language) Resolution {
	if IsInstitutionRequest(text) {
		return Resolution{Language: German, Confidence: confidence.High, Reason: ReasonInstitution, Institution: true}
	}

	if lang, ok := r.switchPhrase(text); ok {
		return Resolution{Language: lang, Confidence: confidence.High, Reason: ReasonPhrase}
	}

	if r.supported[override] {
		return Resolution{Language: override, Confidence: confidence.High, Reason: ReasonOverride}
	}

	if strings.TrimSpace(text) == "" {
		return Resolution{Language: r.fallback, Confidence: confidence.Low, Reason: ReasonEmpty}
	}

	return r.Detect(text)
}

// Detect runs keyword or statistical detection on text without considering
// switch phrases or institution requests.
func (r *Resolver) Detect(text string) Resolution {
	cleaned := Clean(text)
	n := utf8.RuneCountInString(cleaned)
	if n < shortTextRunes {
		return r.fromKeywords(cleaned)
	}

	info := whatlanggo.Detect(cleaned)
	lang, ok := statisticalLanguages[info.Lang]
	if !ok || !r.supported[lang] {
		return r.fromKeywords(cleaned)
	}
	level := confidence.Medium
	if n > longTextRunes {
		level = confidence.High
	}
	return Resolution{Language: lang, Confidence: level, Reason: ReasonStatistical}
}

func (r *Resolver) switchPhrase(text string) (Language, bool) {
	lower := strings.ToLower(text)
	for _, sp := range switchPhrases {
		if !r.supported[sp.lang] {
			continue
		}
		for _, p := range sp.phrases {
			if strings.Contains(lower, p) {
				return sp.lang, true
			}
		}
	}
	return "", false
}

var germanKeywords = toSet(
	"bürgergeld", "antrag", "jobcenter", "formular", "hilfe", "dokument",
	"beantragen", "ausfüllen", "frage", "abschnitt", "bescheid", "behörde",
	"das", "die", "der", "ist", "und", "mit", "von", "zu", "auf", "für",
	"was", "wie", "wo", "wann", "warum", "welche", "können", "möchte",
	"bitte", "danke", "hallo", "übersetzen", "erklären", "ich", "bin",
)

var englishKeywords = toSet(
	"help", "form", "application", "document", "translate", "email",
	"write", "explain", "question", "section", "unemployment", "benefit",
	"the", "and", "is", "to", "of", "in", "for", "with", "on", "at",
	"what", "how", "where", "when", "why", "which", "can", "would",
	"please", "thank", "hello", "i", "am", "have", "will",
)

// fromKeywords counts distinct indicator words on each side. German wins
// only with a strictly higher ratio; zero hits fall back to the default.
func (r *Resolver) fromKeywords(cleaned string) Resolution {
	words := strings.Fields(strings.ToLower(cleaned))
	de := countDistinct(words, germanKeywords)
	en := countDistinct(words, englishKeywords)
	total := max(len(words), 1)

	deRatio := float64(de) / float64(total)
	enRatio := float64(en) / float64(total)

	switch {
	case deRatio > enRatio && de >= 1 && r.supported[German]:
		return Resolution{Language: German, Confidence: hitLevel(de), Reason: ReasonKeywords}
	case en >= 1 && r.supported[English]:
		return Resolution{Language: English, Confidence: hitLevel(en), Reason: ReasonKeywords}
	default:
		return Resolution{Language: r.fallback, Confidence: confidence.Low, Reason: ReasonFallback}
	}
}

func hitLevel(hits int) confidence.Level {
	if hits >= 3 {
		return confidence.High
	}
	return confidence.Medium
}

// Clean strips form-code tokens, digits and punctuation and collapses
// whitespace, leaving text suitable for language detection.
func Clean(text string) string {
	s := formTokenRe.ReplaceAllString(text, "")
	s = digitsRe.ReplaceAllString(s, "")
	s = punctuationRe.ReplaceAllString(s, " ")
	s = spacesRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func countDistinct(words []string, set map[string]bool) int {
	seen := make(map[string]bool)
	for _, w := range words {
		if set[w] && !seen[w] {
			seen[w] = true
		}
	}
	return len(seen)
}

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// Directive returns the instruction placed first in every system prompt,
// telling the completion service which language to answer in.
func Directive(lang Language, level confidence.Level) string {
	strong := level == confidence.High
	if lang == German {
		if strong {
			return "WICHTIG: Der Benutzer schreibt auf Deutsch. Antworte NUR auf Deutsch."
		}
		return "Der Benutzer schreibt wahrscheinlich auf Deutsch. Antworte bitte auf Deutsch."
	}
	if strong {
		return "IMPORTANT: The user is writing in English. Respond ONLY in English."
	}
	return "The user appears to be writing in English. Please respond in English."
}
