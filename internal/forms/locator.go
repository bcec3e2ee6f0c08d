package forms

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/amtly/amtly/internal/confidence"
)

// keyword maps a text fragment to a form code.
type keyword struct {
	text string
	code string
}

// formKeywords is scanned in order; the first hit wins.
var formKeywords = []keyword{
	{"ha", "HA"},
	{"hauptantrag", "HA"},
	{"vm", "VM"},
	{"vermögen", "VM"},
	{"vermoegen", "VM"},
	{"asset", "VM"},
	{"kdu", "KDU"},
	{"unterkunft", "KDU"},
	{"housing", "KDU"},
	{"wep", "WEP"},
	{"weitere person", "WEP"},
	{"additional person", "WEP"},
	{"wba", "WBA"},
	{"weiterbewilligung", "WBA"},
	{"renewal", "WBA"},
}

// topicKeywords infer a form when no form keyword is present.
var topicKeywords = []struct {
	words []string
	code  string
}{
	{[]string{"bank", "iban", "konto", "account"}, "HA"},
	{[]string{"vermögen", "asset", "savings", "spareinlage"}, "VM"},
	{[]string{"miete", "rent", "wohnung", "housing", "heizung"}, "KDU"},
	{[]string{"partner", "spouse", "ehepartner", "kind", "child"}, "WEP"},
	{[]string{"renewal", "weiterbewilligung", "verlängerung", "extend"}, "WBA"},
}

// extractor pulls a value out of a regexp submatch.
type extractor func(match []string) string

type pattern struct {
	re      *regexp.Regexp
	extract extractor
}

func firstGroup(m []string) string      { return m[1] }
func firstGroupUpper(m []string) string { return strings.ToUpper(m[1]) }

// fieldPatterns are tried in order against lowercased text. The final bare
// number pattern accepts any standalone number as a field reference.
var fieldPatterns = []pattern{
	{regexp.MustCompile(`field\s+(\d+)`), firstGroup},
	{regexp.MustCompile(`feld\s+(\d+)`), firstGroup},
	{regexp.MustCompile(`question\s+(\d+)`), firstGroup},
	{regexp.MustCompile(`frage\s+(\d+)`), firstGroup},
	{regexp.MustCompile(`zeile\s+(\d+)`), firstGroup},
	{regexp.MustCompile(`line\s+(\d+)`), firstGroup},
	{regexp.MustCompile(`number\s+(\d+)`), firstGroup},
	{regexp.MustCompile(`nummer\s+(\d+)`), firstGroup},
	{regexp.MustCompile(`#(\d+)`), firstGroup},
	{regexp.MustCompile(`\b(\d+)\b`), firstGroup},
}

var sectionPatterns = []pattern{
	{regexp.MustCompile(`section\s+([a-h])\b`), firstGroupUpper},
	{regexp.MustCompile(`abschnitt\s+([a-h])\b`), firstGroupUpper},
	{regexp.MustCompile(`teil\s+([a-h])\b`), firstGroupUpper},
	{regexp.MustCompile(`part\s+([a-h])\b`), firstGroupUpper},
}

// Locate scans text for a form code, a field number and a section letter.
// The three detections are independent and merged into one Location.
func Locate(text string) Location {
	lower := strings.ToLower(text)
	var loc Location

	for _, kw := range formKeywords {
		if containsWord(lower, kw.text) {
			loc.FormCode = kw.code
			loc.Confidence = confidence.High
			break
		}
	}

	loc.Field = firstMatch(fieldPatterns, lower)
	loc.Section = firstMatch(sectionPatterns, lower)

	if loc.FormCode == "" {
	topics:
		for _, t := range topicKeywords {
			for _, w := range t.words {
				if containsWord(lower, w) {
					loc.FormCode = t.code
					loc.Confidence = confidence.Medium
					break topics
				}
			}
		}
	}

	if loc.FormCode == "" {
		loc.Confidence = confidence.Low
	}
	return loc
}

// historyCodes are the form and annex codes recognised in earlier
// assistant turns.
var historyCodes = []string{"HA", "WBA", "VM", "KDU", "WEP", "WEH", "KI"}

// MentionedCode returns the first form code from historyCodes appearing as a
// standalone, case-sensitive token in text.
func MentionedCode(text string) string {
	for _, code := range historyCodes {
		if containsWord(text, code) {
			return code
		}
	}
	return ""
}

func firstMatch(patterns []pattern, text string) string {
	for _, p := range patterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			return p.extract(m)
		}
	}
	return ""
}

// containsWord reports whether kw occurs in text starting at a word
// boundary. Keywords of three characters or fewer must also end at one, so
// short codes like "ha" do not match inside "what".
func containsWord(text, kw string) bool {
	short := utf8.RuneCountInString(kw) <= 3
	for offset := 0; offset <= len(text)-len(kw); {
		i := strings.Index(text[offset:], kw)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(kw)
		if isBoundaryBefore(text, start) && (!short || isBoundaryAfter(text, end)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func isBoundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func isBoundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
