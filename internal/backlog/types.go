// Package backlog collects the questions the assistant could not answer
// from its sources, so editors can fill the gaps in the catalog or the
// document index.
package backlog

import (
	"errors"
	"time"
)

// ErrNotFound is returned for an unknown gap id.
var ErrNotFound = errors.New("backlog: gap not found")

// Status represents the lifecycle stage of a knowledge gap.
type Status string

const (
	StatusOpen     Status = "open"
	StatusAnswered Status = "answered"
	StatusRetired  Status = "retired"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusAnswered, StatusRetired:
		return true
	}
	return false
}

// Reason says why a turn counts as a gap.
type Reason string

const (
	// ReasonFormMiss: a form question the catalog could not answer.
	ReasonFormMiss Reason = "form_miss"
	// ReasonNoSources: no indexed document covered the question.
	ReasonNoSources Reason = "no_sources"
	// ReasonUnanswered: every answer source failed.
	ReasonUnanswered Reason = "unanswered"
)

// Gap is a recurring question without a grounded answer. Repeats of the
// same question are counted, not stored twice.
type Gap struct {
	ID          string     `json:"id"`
	Question    string     `json:"question"`
	Language    string     `json:"language,omitempty"`
	FormCode    string     `json:"form_code,omitempty"`
	Reason      Reason     `json:"reason"`
	ChatID      string     `json:"chat_id,omitempty"`
	Occurrences int        `json:"occurrences"`
	Status      Status     `json:"status"`
	Answer      string     `json:"answer,omitempty"`
	AnsweredBy  string     `json:"answered_by,omitempty"`
	AnsweredAt  *time.Time `json:"answered_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ListFilter controls which gaps to return.
type ListFilter struct {
	Status   Status
	Reason   Reason
	FormCode string
	Limit    int
	Offset   int
}
