// Package router decides which knowledge source answers a user message and
// runs the turn from language resolution to the final answer.
package router

import (
	"github.com/amtly/amtly/internal/assembler"
	"github.com/amtly/amtly/internal/confidence"
	"github.com/amtly/amtly/internal/forms"
	"github.com/amtly/amtly/internal/language"
)

// Target is the knowledge source chosen for a message.
type Target string

const (
	TargetForm     Target = "structured-form"
	TargetSemantic Target = "semantic-search"
	TargetFallback Target = "generic-fallback"
)

// Scope is the granularity of a form answer.
type Scope string

const (
	ScopeNone     Scope = ""
	ScopeField    Scope = "field"
	ScopeSection  Scope = "section"
	ScopeOverview Scope = "overview"
	ScopeGeneric  Scope = "generic"
)

// Reason records which branch of Decide fired.
type Reason string

const (
	ReasonGeneralQuestion Reason = "general_question"
	ReasonFormDetected    Reason = "form_detected"
	ReasonHistory         Reason = "form_from_history"
	ReasonFormQuestion    Reason = "form_question"
	ReasonInstitution     Reason = "institution_email"
	ReasonDefault         Reason = "default"
)

// Decision is the routing outcome for one message. It is computed fresh per
// message and never stored.
type Decision struct {
	Target     Target           `json:"target"`
	FormCode   string           `json:"form_code,omitempty"`
	Field      string           `json:"field,omitempty"`
	Section    string           `json:"section,omitempty"`
	Confidence confidence.Level `json:"confidence,omitempty"`
	// GermanOnly forces a German answer for letters to authorities.
	GermanOnly bool   `json:"german_only,omitempty"`
	Reason     Reason `json:"reason"`
}

// Scope picks the form answer granularity from what was detected. Only
// meaningful for TargetForm.
func (d Decision) Scope() Scope {
	switch {
	case d.Target != TargetForm:
		return ScopeNone
	case d.FormCode != "" && d.Field != "":
		return ScopeField
	case d.FormCode != "" && d.Section != "":
		return ScopeSection
	case d.FormCode != "":
		return ScopeOverview
	default:
		return ScopeGeneric
	}
}

// historyScanTurns is how many trailing turns are searched for a form code
// when a message names a field or section but no form.
const historyScanTurns = 3

// Decide routes a message. It is a pure function of its inputs:
//
//  1. factual questions ("how much", "am I eligible", ...) never go to the
//     form path
//  2. a form detected with high or medium confidence routes to FORM
//  3. a field or section without a form continues the form named in one of
//     the last assistant turns
//  4. an institution email routes to search with a German answer
//  5. any other form-filling question routes to FORM without a form code,
//     which lists the known forms
//  6. everything else routes to search
func Decide(u language.Utterance, history []assembler.Turn) Decision {
	general := isFactualQuestion(u.Text)

	if !general {
		loc := forms.Locate(u.Text)
		if loc.HasForm() && loc.Confidence.AtLeast(confidence.Medium) {
			return Decision{
				Target:     TargetForm,
				FormCode:   loc.FormCode,
				Field:      loc.Field,
				Section:    loc.Section,
				Confidence: loc.Confidence,
				Reason:     ReasonFormDetected,
			}
		}
		if loc.HasTarget() && len(history) > 0 {
			if code := codeFromHistory(history); code != "" {
				return Decision{
					Target:     TargetForm,
					FormCode:   code,
					Field:      loc.Field,
					Section:    loc.Section,
					Confidence: confidence.Medium,
					Reason:     ReasonHistory,
				}
			}
		}
	}

	if u.Institution {
		return Decision{Target: TargetSemantic, GermanOnly: true, Confidence: confidence.High, Reason: ReasonInstitution}
	}
	if general {
		return Decision{Target: TargetSemantic, Reason: ReasonGeneralQuestion}
	}
	if IsFormQuestion(u.Text) {
		return Decision{Target: TargetForm, Confidence: confidence.Low, Reason: ReasonFormQuestion}
	}
	return Decision{Target: TargetSemantic, Reason: ReasonDefault}
}

// codeFromHistory returns the first form code found in the assistant turns
// among the last few, newest first.
func codeFromHistory(history []assembler.Turn) string {
	recent := assembler.Window(history, historyScanTurns)
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Role != assembler.RoleAssistant {
			continue
		}
		if code := forms.MentionedCode(recent[i].Content); code != "" {
			return code
		}
	}
	return ""
}
