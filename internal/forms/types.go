package forms

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/amtly/amtly/internal/confidence"
)

// Requirement is the tri-state "required" flag of a form field.
type Requirement int

const (
	Optional Requirement = iota
	Required
	Conditional
)

func (r Requirement) String() string {
	switch r {
	case Required:
		return "true"
	case Conditional:
		return "conditional"
	default:
		return "false"
	}
}

// UnmarshalYAML accepts a YAML boolean or the string "conditional".
func (r *Requirement) UnmarshalYAML(node *yaml.Node) error {
	switch strings.ToLower(node.Value) {
	case "true", "yes":
		*r = Required
	case "false", "no", "":
		*r = Optional
	case "conditional":
		*r = Conditional
	default:
		return fmt.Errorf("forms: invalid required value %q at line %d", node.Value, node.Line)
	}
	return nil
}

// MarshalJSON encodes Required/Optional as booleans and Conditional as a string.
func (r Requirement) MarshalJSON() ([]byte, error) {
	switch r {
	case Required:
		return []byte("true"), nil
	case Conditional:
		return json.Marshal("conditional")
	default:
		return []byte("false"), nil
	}
}

// UnmarshalJSON accepts a JSON boolean or the string "conditional".
func (r *Requirement) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*r = Required
		} else {
			*r = Optional
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("forms: invalid required value %s", data)
	}
	switch strings.ToLower(s) {
	case "true":
		*r = Required
	case "false", "":
		*r = Optional
	case "conditional":
		*r = Conditional
	default:
		return fmt.Errorf("forms: invalid required value %q", s)
	}
	return nil
}

// Trigger maps an answer given in a field to the additional forms it requires.
type Trigger struct {
	Answer   string   `yaml:"answer" json:"answer"`
	Requires []string `yaml:"requires" json:"requires"`
}

// Field is a single numbered field, or an inclusive range of fields, of a form.
type Field struct {
	ID          string      `yaml:"id" json:"id"`
	Label       string      `yaml:"label" json:"label"`
	Description string      `yaml:"description" json:"description,omitempty"`
	Required    Requirement `yaml:"required" json:"required"`
	Critical    bool        `yaml:"critical" json:"critical,omitempty"`
	Format      string      `yaml:"format" json:"format,omitempty"`
	Example     string      `yaml:"example" json:"example,omitempty"`
	Examples    []string    `yaml:"examples" json:"examples,omitempty"`
	Tips        []string    `yaml:"tips" json:"tips,omitempty"`
	Mistakes    []string    `yaml:"mistakes" json:"mistakes,omitempty"`
	Options     []string    `yaml:"options" json:"options,omitempty"`
	Triggers    []Trigger   `yaml:"triggers" json:"triggers,omitempty"`
	Details     []string    `yaml:"details" json:"details,omitempty"`
}

// Range returns the inclusive numeric bounds of the field id. A single
// number yields start == end. ok is false when the id is not numeric.
func (f *Field) Range() (start, end int, ok bool) {
	id := strings.TrimSpace(f.ID)
	if lo, hi, found := strings.Cut(id, "-"); found {
		a, err1 := strconv.Atoi(strings.TrimSpace(lo))
		b, err2 := strconv.Atoi(strings.TrimSpace(hi))
		if err1 != nil || err2 != nil || a > b {
			return 0, 0, false
		}
		return a, b, true
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0, 0, false
	}
	return n, n, true
}

// Contains reports whether field number n falls inside the field id.
func (f *Field) Contains(n int) bool {
	start, end, ok := f.Range()
	return ok && start <= n && n <= end
}

// Section groups fields under a letter code.
type Section struct {
	Code              string   `yaml:"code" json:"code"`
	Name              string   `yaml:"name" json:"name"`
	Description       string   `yaml:"description" json:"description,omitempty"`
	Notes             []string `yaml:"notes" json:"notes,omitempty"`
	Checklist         bool     `yaml:"checklist" json:"checklist,omitempty"`
	Items             []string `yaml:"items" json:"items,omitempty"`
	RequiredDocuments []string `yaml:"required_documents" json:"required_documents,omitempty"`
	Fields            []Field  `yaml:"fields" json:"fields,omitempty"`
}

// Schema is the structured description of one form.
type Schema struct {
	Code              string    `yaml:"code" json:"code"`
	Name              string    `yaml:"name" json:"name"`
	Purpose           string    `yaml:"purpose" json:"purpose"`
	TotalPages        int       `yaml:"total_pages" json:"total_pages"`
	TotalFields       int       `yaml:"total_fields" json:"total_fields"`
	CriticalNotes     []string  `yaml:"critical_notes" json:"critical_notes,omitempty"`
	Notes             []string  `yaml:"notes" json:"notes,omitempty"`
	Tips              []string  `yaml:"tips" json:"tips,omitempty"`
	RequiredDocuments []string  `yaml:"required_documents" json:"required_documents,omitempty"`
	Sections          []Section `yaml:"sections" json:"sections"`
}

// FormTrigger lists the additional forms required by answers to a field.
type FormTrigger struct {
	Form  string    `yaml:"form" json:"form"`
	Field string    `yaml:"field" json:"field"`
	When  []Trigger `yaml:"when" json:"when"`
}

// DocumentRequirements holds documents required for every application and
// those required only in certain situations.
type DocumentRequirements struct {
	Always      []string            `yaml:"always" json:"always"`
	Conditional map[string][]string `yaml:"conditional" json:"conditional"`
}

// Location is the result of scanning free text for a form reference.
// Confidence applies to FormCode only; Field and Section are either found
// or empty.
type Location struct {
	FormCode   string           `json:"form_code,omitempty"`
	Field      string           `json:"field,omitempty"`
	Section    string           `json:"section,omitempty"`
	Confidence confidence.Level `json:"confidence,omitempty"`
}

// HasForm reports whether a form code was detected.
func (l Location) HasForm() bool { return l.FormCode != "" }

// HasTarget reports whether a field or a section was detected.
func (l Location) HasTarget() bool { return l.Field != "" || l.Section != "" }
