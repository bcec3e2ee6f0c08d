package language

import "strings"

var institutions = []string{
	"jobcenter",
	"arbeitsagentur", "agentur für arbeit", "bundesagentur",
	"sozialamt",
	"bürgeramt",
	"krankenkasse",
	"finanzamt",
	"ausländerbehörde",
	"einwohnermeldeamt",
	"jugendamt",
	"familienkasse",
	"rentenversicherung",
	"berufsgenossenschaft",
	"arbeitsamt",
	"verwaltung",
	"rathaus",
}

var communicationWords = []string{
	"email", "e-mail", "mail",
	"brief", "letter", "anschreiben",
	"nachricht", "message",
	"write", "schreib", "schreibe", "schreiben",
	"send", "sende", "senden",
	"compose", "verfassen",
	"contact", "kontaktieren",
	"reply", "antworten",
	"respond", "reagieren",
}

var directionWords = []string{" to ", " an ", " an das ", " an die ", " ans ", " for ", " für "}

// InstitutionSignals breaks the institution-request detector into its parts.
type InstitutionSignals struct {
	Institution   bool
	Communication bool
	Direction     bool
}

// Request reports whether the signals amount to a request to write to an
// authority. Direction strengthens the signal but is not required.
func (s InstitutionSignals) Request() bool {
	return s.Institution && s.Communication
}

// DetectInstitution evaluates every institution-request signal in text.
func DetectInstitution(text string) InstitutionSignals {
	lower := strings.ToLower(text)
	return InstitutionSignals{
		Institution:   containsAny(lower, institutions),
		Communication: containsAny(lower, communicationWords),
		Direction:     containsAny(" "+lower+" ", directionWords),
	}
}

// IsInstitutionRequest reports whether text asks to compose correspondence
// to a German authority: it names an institution and a communication action.
// The detector is intentionally broad, so "explain this jobcenter letter"
// also matches.
func IsInstitutionRequest(text string) bool {
	if text == "" {
		return false
	}
	return DetectInstitution(text).Request()
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
