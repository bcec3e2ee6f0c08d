// Package assembler builds the bounded system prompt sent with each user
// message from language, persona, retrieved context and recent history.
package assembler

import (
	"strings"
	"time"

	"github.com/amtly/amtly/internal/confidence"
	"github.com/amtly/amtly/internal/knowledge"
	"github.com/amtly/amtly/internal/language"
)

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation, oldest first.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Persona selects the base instructions.
type Persona int

const (
	PersonaGeneral Persona = iota
	PersonaFallback
	PersonaFormField
	PersonaFormSection
	PersonaFormOverview
	PersonaFormGeneric
	PersonaDocument
)

// Limits bound the size of the assembled prompt.
type Limits struct {
	// HistoryWindow is the number of most recent turns included.
	HistoryWindow int
	// RecentCap is the rune cap for the final two turns.
	RecentCap int
	// OlderCap is the rune cap for earlier turns inside the window.
	OlderCap int
	// DocumentChars caps uploaded-document context.
	DocumentChars int
	// AnalysisChars caps the document text sent for analysis.
	AnalysisChars int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		HistoryWindow: 6,
		RecentCap:     300,
		OlderCap:      150,
		DocumentChars: 4000,
		AnalysisChars: 3000,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.HistoryWindow <= 0 {
		l.HistoryWindow = d.HistoryWindow
	}
	if l.RecentCap <= 0 {
		l.RecentCap = d.RecentCap
	}
	if l.OlderCap <= 0 {
		l.OlderCap = d.OlderCap
	}
	if l.DocumentChars <= 0 {
		l.DocumentChars = d.DocumentChars
	}
	if l.AnalysisChars <= 0 {
		l.AnalysisChars = d.AnalysisChars
	}
	return l
}

// Input is everything known about one turn when building its prompt.
type Input struct {
	Language    language.Language
	Confidence  confidence.Level
	EmailIntent bool
	Persona     Persona
	// Intent steers the document persona between explaining and translating.
	Intent     language.Intent
	Message    string
	History    []Turn
	Structured []knowledge.Fragment
	Semantic   []knowledge.Fragment
	Document   string
}

// AssembledPrompt is the payload for one completion call.
type AssembledPrompt struct {
	System string
	User   string
}

// Assembler builds prompts. It is stateless and safe for concurrent use.
type Assembler struct {
	limits Limits
}

// New creates an Assembler; zero limits take their defaults.
func New(limits Limits) *Assembler {
	return &Assembler{limits: limits.withDefaults()}
}

// Limits returns the effective limits.
func (a *Assembler) Limits() Limits { return a.limits }

// Assemble builds the system prompt in a fixed block order: language
// directive, persona, follow-up directive, form context, official
// documents, uploaded document, recent conversation. Empty blocks are
// omitted and the conversation needs more than one turn. The user message
// is passed through unchanged.
func (a *Assembler) Assemble(in Input) AssembledPrompt {
	lang := in.Language
	if !lang.Valid() {
		lang = language.English
	}

	blocks := []string{
		language.Directive(lang, in.Confidence),
		a.persona(in, lang),
	}
	followUp := len(in.History) > 1
	if followUp {
		blocks = append(blocks, followUpDirective.in(lang))
	}
	blocks = append(blocks,
		block(blockHeaders.structured.in(lang), knowledge.Join(in.Structured)),
		block(blockHeaders.documents.in(lang), knowledge.Join(in.Semantic)),
		block(blockHeaders.upload.in(lang), Truncate(strings.TrimSpace(in.Document), a.limits.DocumentChars)),
	)
	if followUp {
		blocks = append(blocks, block(blockHeaders.conversation.in(lang), a.conversation(in.History)))
	}

	return AssembledPrompt{System: joinBlocks(blocks), User: in.Message}
}

// AssembleAnalysis builds the prompt for analysing an uploaded document.
// The user message carries the document text cut to AnalysisChars.
func (a *Assembler) AssembleAnalysis(in Input) AssembledPrompt {
	in.Persona = PersonaDocument
	doc := Truncate(strings.TrimSpace(in.Document), a.limits.AnalysisChars)
	in.Document = ""
	p := a.Assemble(in)
	p.User = analysisRequest.in(in.Language) + doc
	return p
}

func (a *Assembler) persona(in Input, lang language.Language) string {
	if in.EmailIntent {
		return emailPersona
	}
	switch in.Persona {
	case PersonaFallback:
		return fallbackPersona.in(lang)
	case PersonaFormField, PersonaFormSection, PersonaFormOverview, PersonaFormGeneric:
		return formTasks[in.Persona].in(lang)
	case PersonaDocument:
		var task localized
		switch {
		case in.Intent.Explain && in.Intent.Translate:
			task = documentTasks.both
		case in.Intent.Translate:
			task = documentTasks.translate
		default:
			task = documentTasks.explain
		}
		return documentIntro.in(lang) + task.in(lang)
	default:
		return generalPersona.in(lang)
	}
}

// conversation renders the last HistoryWindow turns. The final two are cut
// at RecentCap runes and earlier ones at OlderCap.
func (a *Assembler) conversation(history []Turn) string {
	recent := Window(history, a.limits.HistoryWindow)
	if len(recent) == 0 {
		return ""
	}
	lines := make([]string, 0, len(recent))
	for i, t := range recent {
		limit := a.limits.OlderCap
		if i >= len(recent)-2 {
			limit = a.limits.RecentCap
		}
		role := "User"
		if t.Role == RoleAssistant {
			role = "Assistant"
		}
		lines = append(lines, role+": "+Ellipsize(t.Content, limit))
	}
	return strings.Join(lines, "\n")
}

// Window returns the last n turns of history.
func Window(history []Turn, n int) []Turn {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func block(header, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return header + "\n" + body
}

func joinBlocks(blocks []string) string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b != "" {
			out = append(out, b)
		}
	}
	return strings.Join(out, "\n\n")
}
