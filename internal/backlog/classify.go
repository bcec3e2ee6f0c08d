package backlog

import (
	"regexp"
	"strings"

	"github.com/amtly/amtly/internal/router"
	"github.com/amtly/amtly/internal/synth"
)

// Classify reports whether a response left a gap, and why. Only degraded
// turns count: a plain conversational fallback is not a gap. Questions about
// an uploaded document are private to the chat and never recorded.
func Classify(resp router.Response) (Reason, bool) {
	if !resp.Degraded || resp.MessageType == router.MessageDocument {
		return "", false
	}
	switch {
	case resp.Answer == synth.Apology(resp.Language):
		return ReasonUnanswered, true
	case resp.Decision.Target == router.TargetForm:
		return ReasonFormMiss, true
	default:
		return ReasonNoSources, true
	}
}

var (
	spaceRun      = regexp.MustCompile(`\s+`)
	trailingPunct = regexp.MustCompile(`[\s?!.,;:]+$`)
)

// Normalize folds case, whitespace and trailing punctuation so repeats of
// a question collapse into one gap.
func Normalize(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	q = spaceRun.ReplaceAllString(q, " ")
	return trailingPunct.ReplaceAllString(q, "")
}
