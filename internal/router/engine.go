package router

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/amtly/amtly/internal/assembler"
	"github.com/amtly/amtly/internal/confidence"
	"github.com/amtly/amtly/internal/forms"
	"github.com/amtly/amtly/internal/knowledge"
	"github.com/amtly/amtly/internal/language"
	"github.com/amtly/amtly/internal/synth"
)

// ErrEmptyMessage is returned by Respond for blank input.
var ErrEmptyMessage = errors.New("router: empty message")

// TargetDocument marks answers produced by analysing an uploaded document.
const TargetDocument Target = "uploaded-document"

// MessageType tags a stored assistant message.
type MessageType string

const (
	MessageChat     MessageType = "chat"
	MessageForm     MessageType = "form"
	MessageDocument MessageType = "document"
)

// Request is one user turn.
type Request struct {
	Message string
	// Language is an explicit reply language chosen by the client.
	Language language.Language
	// History holds prior turns, oldest first.
	History []assembler.Turn
	// Document is the extracted text of a previously uploaded file.
	Document string
}

// FormMeta describes the field a form answer is about.
type FormMeta struct {
	FieldLabel string            `json:"field_label,omitempty"`
	Required   forms.Requirement `json:"required"`
	Critical   bool              `json:"critical"`
}

// Response is the answer to one turn.
type Response struct {
	Answer     string            `json:"answer"`
	Language   language.Language `json:"language"`
	Confidence confidence.Level  `json:"confidence,omitempty"`
	Decision   Decision          `json:"decision"`
	// Route is the source that produced the answer. It differs from
	// Decision.Target after a fallback.
	Route       Target      `json:"route"`
	MessageType MessageType `json:"message_type"`
	Sources     []string    `json:"sources"`
	FormCode    string      `json:"form_code,omitempty"`
	Field       string      `json:"field,omitempty"`
	Section     string      `json:"section,omitempty"`
	Form        *FormMeta   `json:"form,omitempty"`
	Degraded    bool        `json:"degraded,omitempty"`
}

// Engine runs a turn: resolve language, decide the route, gather context,
// assemble the prompt and synthesize the answer. Failures degrade from the
// form catalog to document search to a plain prompt to a canned apology.
type Engine struct {
	resolver  *language.Resolver
	forms     *knowledge.FormAdapter
	search    *knowledge.SearchAdapter
	assembler *assembler.Assembler
	synth     *synth.Synthesizer
	logger    *zap.Logger
}

// NewEngine wires an Engine. search may be nil when no document index is
// available; a nil logger discards output.
func NewEngine(
	resolver *language.Resolver,
	formAdapter *knowledge.FormAdapter,
	search *knowledge.SearchAdapter,
	asm *assembler.Assembler,
	syn *synth.Synthesizer,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		resolver:  resolver,
		forms:     formAdapter,
		search:    search,
		assembler: asm,
		synth:     syn,
		logger:    logger,
	}
}

// Catalog returns the form catalog behind the engine.
func (e *Engine) Catalog() *forms.Catalog { return e.forms.Catalog() }

// Respond answers one turn. It only fails for an empty message; adapter and
// completion failures end in a best-effort answer in the resolved language.
func (e *Engine) Respond(ctx context.Context, req Request) (Response, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return Response{}, ErrEmptyMessage
	}

	u := e.resolver.Analyze(text, req.Language)

	if strings.TrimSpace(req.Document) != "" && IsSimpleFileCommand(text) {
		return e.analyzeDocument(ctx, u, req), nil
	}

	d := Decide(u, req.History)
	if d.GermanOnly {
		u.Language = language.German
		u.Confidence = confidence.High
	}
	e.logger.Debug("routed",
		zap.String("target", string(d.Target)),
		zap.String("reason", string(d.Reason)),
		zap.String("form", d.FormCode),
		zap.String("field", d.Field),
		zap.String("section", d.Section),
		zap.String("language", string(u.Language)))

	if d.Target == TargetForm {
		if resp, ok := e.answerForm(ctx, u, d, req); ok {
			return resp, nil
		}
	}
	if resp, ok := e.answerSearch(ctx, u, d, req); ok {
		return resp, nil
	}
	if resp, ok := e.answerFallback(ctx, u, d, req); ok {
		return resp, nil
	}

	e.logger.Warn("all answer sources failed", zap.String("target", string(d.Target)))
	resp := e.base(u, d, TargetFallback, MessageChat)
	resp.Answer = synth.Apology(u.Language)
	resp.Degraded = true
	return resp, nil
}

func (e *Engine) base(u language.Utterance, d Decision, route Target, mt MessageType) Response {
	return Response{
		Language:    u.Language,
		Confidence:  u.Confidence,
		Decision:    d,
		Route:       route,
		MessageType: mt,
		Sources:     []string{},
		Degraded:    d.Target != route && route != TargetDocument,
	}
}

func (e *Engine) answerForm(ctx context.Context, u language.Utterance, d Decision, req Request) (Response, bool) {
	if e.forms == nil {
		return Response{}, false
	}

	var (
		fc      *knowledge.FormContext
		persona assembler.Persona
		err     error
	)
	switch d.Scope() {
	case ScopeField:
		fc, err = e.forms.Field(ctx, d.FormCode, d.Field, u.Text)
		persona = assembler.PersonaFormField
	case ScopeSection:
		fc, err = e.forms.Section(ctx, d.FormCode, d.Section, u.Text)
		persona = assembler.PersonaFormSection
	case ScopeOverview:
		fc, err = e.forms.Overview(ctx, d.FormCode, u.Text)
		persona = assembler.PersonaFormOverview
	default:
		fc = e.forms.Generic()
		persona = assembler.PersonaFormGeneric
	}
	if err != nil {
		e.logger.Warn("form lookup missed, falling back to search",
			zap.String("form", d.FormCode),
			zap.String("field", d.Field),
			zap.String("section", d.Section),
			zap.Error(err))
		return Response{}, false
	}

	prompt := e.assembler.Assemble(assembler.Input{
		Language:    u.Language,
		Confidence:  u.Confidence,
		EmailIntent: u.Institution,
		Persona:     persona,
		Message:     u.Text,
		History:     req.History,
		Structured:  []knowledge.Fragment{fc.Fragment},
		Document:    req.Document,
	})
	answer, err := e.synth.Complete(ctx, prompt)
	if err != nil {
		e.logger.Warn("form answer failed, falling back to search", zap.Error(err))
		return Response{}, false
	}

	resp := e.base(u, d, TargetForm, MessageForm)
	resp.FormCode = d.FormCode
	header := synth.FormHeader{Code: d.FormCode}
	switch {
	case fc.Field != nil:
		resp.Field = fc.Field.ID
		resp.Form = &FormMeta{FieldLabel: fc.Field.Label, Required: fc.Field.Required, Critical: fc.Field.Critical}
		header.FieldLabel = fc.Field.Label
		header.Required = fc.Field.Required != forms.Optional
		header.Critical = fc.Field.Critical
		answer = synth.WithExample(answer, fc.Field.Example, u.Language)
	case fc.Section != nil:
		resp.Section = fc.Section.Code
		header.Section = fc.Section.Code
	}
	resp.Answer = synth.WithHeader(header, answer)
	return resp, true
}

func (e *Engine) answerSearch(ctx context.Context, u language.Utterance, d Decision, req Request) (Response, bool) {
	frags, err := e.search.Search(ctx, u.Text, 0)
	if err != nil {
		e.logger.Warn("document search unavailable", zap.Error(err))
		frags = nil
	}

	prompt := e.assembler.Assemble(assembler.Input{
		Language:    u.Language,
		Confidence:  u.Confidence,
		EmailIntent: u.Institution,
		Persona:     assembler.PersonaGeneral,
		Message:     u.Text,
		History:     req.History,
		Semantic:    frags,
		Document:    req.Document,
	})
	answer, err := e.synth.Complete(ctx, prompt)
	if err != nil {
		e.logger.Warn("search answer failed, falling back to plain prompt", zap.Error(err))
		return Response{}, false
	}

	resp := e.base(u, d, TargetSemantic, MessageChat)
	if sources := knowledge.Sources(frags); len(sources) > 0 {
		resp.Sources = sources
	}
	resp.Answer = synth.WithSources(answer, resp.Sources, u.Language)
	return resp, true
}

func (e *Engine) answerFallback(ctx context.Context, u language.Utterance, d Decision, req Request) (Response, bool) {
	prompt := e.assembler.Assemble(assembler.Input{
		Language:    u.Language,
		Confidence:  u.Confidence,
		EmailIntent: u.Institution,
		Persona:     assembler.PersonaFallback,
		Message:     u.Text,
		History:     req.History,
	})
	answer, err := e.synth.Complete(ctx, prompt)
	if err != nil {
		e.logger.Warn("fallback answer failed", zap.Error(err))
		return Response{}, false
	}
	resp := e.base(u, d, TargetFallback, MessageChat)
	resp.Answer = answer
	return resp, true
}

func (e *Engine) analyzeDocument(ctx context.Context, u language.Utterance, req Request) Response {
	d := Decision{Target: TargetDocument, Reason: ReasonDefault}
	resp := e.base(u, d, TargetDocument, MessageDocument)

	prompt := e.assembler.AssembleAnalysis(assembler.Input{
		Language:   u.Language,
		Confidence: u.Confidence,
		Intent:     u.Intent,
		Message:    u.Text,
		History:    req.History,
		Document:   req.Document,
	})
	answer, err := e.synth.Complete(ctx, prompt)
	if err != nil {
		e.logger.Warn("document analysis failed", zap.Error(err))
		resp.Answer = synth.Apology(u.Language)
		resp.Degraded = true
		return resp
	}
	resp.Answer = synth.DocumentPrefix + "\n\n" + answer
	return resp
}
