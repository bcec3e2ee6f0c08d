package synth

import (
	"strings"

	"github.com/amtly/amtly/internal/language"
)

// FormHeader describes what a form answer is about.
type FormHeader struct {
	Code       string
	FieldLabel string
	Section    string
	Required   bool
	Critical   bool
}

// String renders the header line, e.g. "📝 **HA Form Help - IBAN ⚠️ CRITICAL**".
func (h FormHeader) String() string {
	var b strings.Builder
	b.WriteString("📝 **")
	if h.Code != "" {
		b.WriteString(h.Code)
		b.WriteString(" ")
	}
	b.WriteString("Form Help")
	switch {
	case h.FieldLabel != "":
		b.WriteString(" - ")
		b.WriteString(h.FieldLabel)
		switch {
		case h.Critical:
			b.WriteString(" ⚠️ CRITICAL")
		case h.Required:
			b.WriteString(" (required)")
		}
	case h.Section != "":
		b.WriteString(" - Section ")
		b.WriteString(h.Section)
	}
	b.WriteString("**")
	return b.String()
}

// WithHeader prefixes answer with the form header.
func WithHeader(h FormHeader, answer string) string {
	return h.String() + "\n\n" + answer
}

// WithExample appends the field example unless the answer already
// quotes it.
func WithExample(answer, example string, lang language.Language) string {
	if example == "" || strings.Contains(answer, example) {
		return answer
	}
	label := "Example"
	if lang == language.German {
		label = "Beispiel"
	}
	return answer + "\n\n💡 **" + label + ":** " + example
}

// DocumentPrefix introduces an uploaded-document analysis.
const DocumentPrefix = "📄 **Document Analysis:**"

// WithSources appends a sources line to answer when sources is non-empty.
func WithSources(answer string, sources []string, lang language.Language) string {
	if len(sources) == 0 {
		return answer
	}
	label := "Sources"
	if lang == language.German {
		label = "Quellen"
	}
	return answer + "\n\n📖 **" + label + ":** " + strings.Join(sources, ", ")
}
