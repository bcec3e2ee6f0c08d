package chat

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxTitleRunes = 50

// topicTitles is scanned in order; the first keyword found names the chat.
var topicTitles = []struct {
	keyword string
	title   string
}{
	{"bürgergeld", "Bürgergeld Help"},
	{"arbeitslosengeld", "Unemployment Benefits"},
	{"jobcenter", "Jobcenter Questions"},
	{"sozialamt", "Social Services"},
	{"krankenkasse", "Health Insurance"},
	{"miete", "Housing Costs"},
	{"wohnung", "Housing Help"},
	{"antrag", "Application Help"},
	{"formular", "Form Help"},
	{"hauptantrag", "Main Application"},
	{"weiterbewilligung", "Renewal Application"},
	{"wba", "WBA Form"},
	{"vm", "VM Form"},
	{"kdu", "KDU Form"},
	{"ha", "HA Form"},
	{"ek", "EK Form"},
	{"email", "Email Writing"},
	{"brief", "Letter Writing"},
	{"schreiben", "Writing Help"},
	{"übersetzen", "Translation"},
	{"translate", "Translation"},
	{"document", "Document Help"},
	{"dokument", "Document Help"},
	{"form", "Form Help"},
	{"application", "Application Help"},
	{"benefits", "Benefits Info"},
	{"eligibility", "Eligibility Check"},
	{"payment", "Payment Info"},
	{"housing", "Housing Help"},
	{"unemployment", "Unemployment Help"},
}

var questionTitles = []struct {
	phrases []string
	title   string
}{
	{[]string{"how much", "wie viel", "wieviel"}, "Amount Questions"},
	{[]string{"what is", "was ist"}, "Info Request"},
	{[]string{"how to", "wie kann ich", "wie mache ich"}, "How-to Guide"},
	{[]string{"when", "wann"}, "Timing Questions"},
	{[]string{"where", "wo"}, "Location Help"},
	{[]string{"eligible", "berechtigt", "anspruch"}, "Eligibility Check"},
	{[]string{"help", "hilfe"}, "General Help"},
	{[]string{"explain", "erklären", "erkläre"}, "Explanation Request"},
}

var titleStopWords = regexp.MustCompile(`\b(ich|mir|mich|der|die|das|ein|eine|ist|sind|can|i|the|a|an|is|are|do|does|how|what|when|where|why|help|hilfe|please|bitte)\b`)

// SmartTitle names a chat after its first user message: a topic keyword,
// then a question pattern, then the first long word. Titles are at most 50
// runes.
func SmartTitle(message string) string {
	msg := strings.ToLower(strings.TrimSpace(message))

	for _, t := range topicTitles {
		if hasKeyword(msg, t.keyword) {
			return t.title
		}
	}
	for _, q := range questionTitles {
		for _, p := range q.phrases {
			if hasKeyword(msg, p) {
				return q.title
			}
		}
	}

	for _, w := range strings.Fields(titleStopWords.ReplaceAllString(msg, "")) {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if utf8.RuneCountInString(w) > 3 {
			return capTitle(capitalize(w) + " Help")
		}
	}
	return "New Chat"
}

// hasKeyword matches keywords of three runes or fewer as whole words, so
// "ha" does not name a chat asking "what", and longer ones anywhere.
func hasKeyword(text, kw string) bool {
	if utf8.RuneCountInString(kw) > 3 {
		return strings.Contains(text, kw)
	}
	for _, w := range strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) {
		if w == kw {
			return true
		}
	}
	return false
}

func capitalize(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	return string(unicode.ToUpper(r)) + w[size:]
}

func capTitle(title string) string {
	if utf8.RuneCountInString(title) <= maxTitleRunes {
		return title
	}
	return string([]rune(title)[:maxTitleRunes])
}
