package router

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// generalPatterns mark knowledge questions that must not be answered as
// form-filling help, even when a form is named. Groups are checked in order.
var generalPatterns = struct {
	amount, definition, eligibility, timing, process []string
}{
	amount: []string{
		"how much", "wie viel", "wieviel", "how many", "wie viele",
		"what is the amount", "was ist der betrag", "what amount", "welcher betrag",
	},
	definition: []string{
		"what is", "was ist", "what are", "was sind",
		"define", "definiere", "definition",
		"explain", "erklär", "erkläre", "erklären",
		"tell me about", "erzähle mir", "information about", "informationen über",
	},
	eligibility: []string{
		"am i eligible", "bin ich berechtigt", "habe ich anspruch",
		"do i qualify", "kann ich bekommen", "bekomme ich",
		"entitled to", "berechtigt zu",
	},
	timing: []string{
		"when do i get", "wann bekomme ich", "wann erhalte ich",
		"when is", "wann ist", "how long", "wie lange",
	},
	process: []string{
		"what happens", "was passiert", "how does", "wie funktioniert",
	},
}

// isFactualQuestion reports amount, eligibility, timing and process
// questions. Definition-style openers ("tell me about the KDU form") are
// left to the form locator so form overviews still route to the form path.
func isFactualQuestion(text string) bool {
	lower := strings.ToLower(text)
	for _, group := range [][]string{
		generalPatterns.amount,
		generalPatterns.eligibility,
		generalPatterns.timing,
		generalPatterns.process,
	} {
		if containsAny(lower, group) {
			return true
		}
	}
	return false
}

var (
	specificForms = []string{"wba", "ha", "vm", "kdu", "ek", "hauptantrag", "weiterbewilligung", "wep"}

	formIdentifiers = []string{
		"form", "formular", "formulär", "antrag",
		"field", "feld", "section", "abschnitt",
		"zeile", "box", "teil", "bereich",
	}

	formActions = []string{
		"fill out", "ausfüllen", "fill in", "eintragen",
		"how to fill", "wie ausfüllen", "wie fülle ich",
		"complete the form", "vervollständigen",
		"help with form", "hilfe bei formular", "hilfe beim formular",
		"what does this field", "was bedeutet dieses feld",
		"where do i write", "wo schreibe ich", "wo trage ich ein",
		"what do i put", "was trage ich ein", "which box", "welches feld",
	}
)

// IsFormQuestion is the simple form-filling detector. Any general-question
// pattern rules the text out before form names or filling verbs are
// considered. Otherwise it needs a form name plus an identifier or action,
// or an identifier plus an action.
func IsFormQuestion(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return false
	}

	for _, group := range [][]string{
		generalPatterns.amount,
		generalPatterns.definition,
		generalPatterns.eligibility,
		generalPatterns.timing,
		generalPatterns.process,
	} {
		if containsAny(lower, group) {
			return false
		}
	}

	hasForm := containsFormName(lower, specificForms)
	hasIdentifier := containsAny(lower, formIdentifiers)
	hasAction := containsAny(lower, formActions)

	return (hasForm && (hasIdentifier || hasAction)) || (hasIdentifier && hasAction)
}

var (
	simpleCommands = []string{
		"translate", "übersetze", "übersetz",
		"explain", "erkläre", "erklär",
		"summarize", "zusammenfassen", "summary",
		"analyse", "analyze", "analysiere",
		"read", "lies", "lesen",
		"what is this", "was ist das",
		"tell me", "sag mir",
	}

	simplePhrases = []string{
		"translate this", "translate it",
		"explain this", "explain it",
		"summarize this", "summarize it",
		"what is this", "what's this",
		"übersetze das", "erkläre das",
		"was ist das", "analysiere das",
	}

	shortCommandWords = []string{"translate", "übersetze", "explain", "erkläre", "summary"}
)

// IsSimpleFileCommand reports whether text is only an instruction about an
// uploaded document ("translate", "explain this") rather than a question
// that needs retrieval.
func IsSimpleFileCommand(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return false
	}
	for _, cmd := range simpleCommands {
		if lower == cmd || lower == cmd+"." {
			return true
		}
	}
	for _, p := range simplePhrases {
		if lower == p {
			return true
		}
	}
	return utf8.RuneCountInString(lower) < 15 && containsAny(lower, shortCommandWords)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// containsFormName matches codes of up to three letters as whole words, so
// "ha" does not hit "what", and longer names as substrings.
func containsFormName(text string, names []string) bool {
	words := make(map[string]bool)
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[f] = true
	}
	for _, n := range names {
		if (len(n) <= 3 && words[n]) || (len(n) > 3 && strings.Contains(text, n)) {
			return true
		}
	}
	return false
}
