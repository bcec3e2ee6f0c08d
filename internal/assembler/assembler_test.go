package assembler

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amtly/amtly/internal/confidence"
	"github.com/amtly/amtly/internal/knowledge"
	"github.com/amtly/amtly/internal/language"
)

func TestTruncateRuneSafe(t *testing.T) {
	s := "Grüße aus Köln"
	for n := 0; n <= utf8.RuneCountInString(s)+1; n++ {
		got := Truncate(s, n)
		assert.True(t, utf8.ValidString(got), "n=%d produced invalid UTF-8", n)
		if n > 0 && n <= utf8.RuneCountInString(s) {
			assert.Equal(t, n, utf8.RuneCountInString(got))
		}
	}
	assert.Equal(t, "Grü", Truncate(s, 3))
	assert.Equal(t, "🙂🙂", Truncate("🙂🙂🙂", 2))
}

func TestEllipsize(t *testing.T) {
	assert.Equal(t, "short", Ellipsize("short", 10))
	assert.Equal(t, "äöü...", Ellipsize("äöüß", 3))
}

func TestAssembleBlockOrder(t *testing.T) {
	a := New(Limits{})
	p := a.Assemble(Input{
		Language:   language.English,
		Confidence: confidence.High,
		Message:    "  What about field 20?  ",
		History: []Turn{
			{Role: RoleUser, Content: "Tell me about the KDU form"},
			{Role: RoleAssistant, Content: "📝 **KDU Form Help**"},
		},
		Structured: []knowledge.Fragment{{Text: "Form: KDU"}},
		Semantic:   []knowledge.Fragment{{Text: "Rent is covered", Source: "KDU_guide"}},
		Document:   "Bescheid vom 01.01.2025",
	})

	assert.Equal(t, "  What about field 20?  ", p.User, "user message must be unmodified")

	markers := []string{
		"IMPORTANT: The user is writing in English",
		"You are Amtly",
		"IMPORTANT FOR FOLLOW-UPS",
		"=== FORM CONTEXT ===",
		"=== OFFICIAL DOCUMENTS ===",
		"=== UPLOADED DOCUMENT ===",
		"=== RECENT CONVERSATION ===",
	}
	last := -1
	for _, m := range markers {
		i := strings.Index(p.System, m)
		require.GreaterOrEqual(t, i, 0, "missing %q", m)
		assert.Greater(t, i, last, "%q out of order", m)
		last = i
	}
	assert.True(t, strings.HasPrefix(p.System, "IMPORTANT: The user is writing in English"))
}

func TestAssembleOmitsEmptyBlocks(t *testing.T) {
	p := New(Limits{}).Assemble(Input{
		Language: language.German,
		Message:  "Hallo",
		History:  []Turn{{Role: RoleUser, Content: "Hallo"}},
	})
	assert.NotContains(t, p.System, "===")
	assert.NotContains(t, p.System, "FOLGEFRAGEN", "follow-up directive needs more than one turn")
	assert.Contains(t, p.System, "Antworte")

	two := New(Limits{}).Assemble(Input{
		Language: language.German,
		Message:  "Und Feld 18?",
		History:  []Turn{{Role: RoleUser, Content: "Feld 17 HA"}, {Role: RoleAssistant, Content: "Das ist die IBAN."}},
	})
	assert.Contains(t, two.System, "===")
}

func TestAssembleEmailPersona(t *testing.T) {
	p := New(Limits{}).Assemble(Input{
		Language:    language.German,
		Confidence:  confidence.High,
		EmailIntent: true,
		Message:     "Write an email to Jobcenter",
	})
	assert.Contains(t, p.System, "Kundennummer")
	assert.Contains(t, p.System, "Sehr geehrte Damen und Herren")
	assert.Contains(t, p.System, "NUR auf Deutsch")
}

func TestAssembleFormPersonas(t *testing.T) {
	a := New(Limits{})
	for persona, want := range map[Persona]string{
		PersonaFormField:    "this form field",
		PersonaFormSection:  "this section",
		PersonaFormOverview: "Explain this form",
		PersonaFormGeneric:  "ask for clarification",
	} {
		p := a.Assemble(Input{Language: language.English, Persona: persona})
		assert.Contains(t, p.System, want)
	}
}

func TestConversationTruncation(t *testing.T) {
	history := make([]Turn, 10)
	for i := range history {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		history[i] = Turn{Role: role, Content: fmt.Sprintf("turn%02d ", i) + strings.Repeat("ß", 240)}
	}

	p := New(Limits{}).Assemble(Input{Language: language.English, History: history})
	_, convo, found := strings.Cut(p.System, "=== RECENT CONVERSATION ===\n")
	require.True(t, found)

	lines := strings.Split(convo, "\n")
	require.Len(t, lines, 6)
	for i := 0; i < 4; i++ {
		assert.NotContains(t, convo, fmt.Sprintf("turn%02d", i))
	}
	for i, line := range lines {
		assert.True(t, utf8.ValidString(line))
		_, content, _ := strings.Cut(line, ": ")
		assert.Contains(t, content, fmt.Sprintf("turn%02d", i+4))
		if i < 4 {
			assert.True(t, strings.HasSuffix(content, "..."), "older turn %d should be truncated", i)
			assert.Equal(t, 150, utf8.RuneCountInString(strings.TrimSuffix(content, "...")))
		} else {
			assert.Equal(t, history[i+4].Content, content, "final turns are kept in full")
		}
	}
	assert.True(t, strings.HasPrefix(lines[0], "User: "))
	assert.True(t, strings.HasPrefix(lines[1], "Assistant: "))
}

func TestAssembleDocumentCap(t *testing.T) {
	a := New(Limits{DocumentChars: 10})
	p := a.Assemble(Input{Language: language.English, Document: strings.Repeat("ä", 50)})
	assert.Contains(t, p.System, "=== UPLOADED DOCUMENT ===\n"+strings.Repeat("ä", 10))
	assert.NotContains(t, p.System, strings.Repeat("ä", 11))
}

func TestAssembleAnalysis(t *testing.T) {
	a := New(Limits{AnalysisChars: 5})
	p := a.AssembleAnalysis(Input{
		Language: language.English,
		Intent:   language.Intent{Translate: true},
		Message:  "translate",
		Document: "Sehr geehrte Frau Müller",
	})
	assert.Equal(t, "Analyze this document:\n\nSehr ", p.User)
	assert.Contains(t, p.System, "Translate ONLY")
	assert.NotContains(t, p.System, "=== UPLOADED DOCUMENT ===")

	p = a.AssembleAnalysis(Input{Language: language.German, Intent: language.Intent{Explain: true, Translate: true}, Document: "x"})
	assert.Contains(t, p.System, "Erkläre UND übersetze")
}

func TestWindow(t *testing.T) {
	h := []Turn{{Content: "1"}, {Content: "2"}, {Content: "3"}}
	assert.Len(t, Window(h, 2), 2)
	assert.Equal(t, "2", Window(h, 2)[0].Content)
	assert.Len(t, Window(h, 10), 3)
}
