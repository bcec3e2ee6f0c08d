package forms

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed forms.yaml
var embeddedForms []byte

var (
	ErrFormNotFound    = errors.New("form not found")
	ErrSectionNotFound = errors.New("section not found")
	ErrFieldNotFound   = errors.New("field not found")
)

// Catalog is the read-only knowledge graph of all known forms. It is built
// once at startup and may be shared between goroutines without locking.
type Catalog struct {
	forms          []*Schema
	byCode         map[string]*Schema
	triggers       []FormTrigger
	commonMistakes map[string][]string
	documents      DocumentRequirements
}

type catalogFile struct {
	Forms             []*Schema            `yaml:"forms"`
	Triggers          []FormTrigger        `yaml:"triggers"`
	CommonMistakes    map[string][]string  `yaml:"common_mistakes"`
	RequiredDocuments DocumentRequirements `yaml:"required_documents"`
}

// Load parses the form knowledge compiled into the binary.
func Load() (*Catalog, error) {
	return Parse(embeddedForms)
}

// Parse builds a Catalog from YAML data.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("forms: parse catalog: %w", err)
	}
	if len(f.Forms) == 0 {
		return nil, errors.New("forms: catalog contains no forms")
	}

	c := &Catalog{
		forms:          f.Forms,
		byCode:         make(map[string]*Schema, len(f.Forms)),
		triggers:       f.Triggers,
		commonMistakes: f.CommonMistakes,
		documents:      f.RequiredDocuments,
	}
	for _, s := range f.Forms {
		code := strings.ToUpper(s.Code)
		if code == "" {
			return nil, fmt.Errorf("forms: schema %q has no code", s.Name)
		}
		if _, dup := c.byCode[code]; dup {
			return nil, fmt.Errorf("forms: duplicate form code %q", code)
		}
		s.Code = code
		c.byCode[code] = s
	}
	return c, nil
}

// Codes returns all form codes in catalog order.
func (c *Catalog) Codes() []string {
	codes := make([]string, len(c.forms))
	for i, s := range c.forms {
		codes[i] = s.Code
	}
	return codes
}

// Forms returns all schemas in catalog order.
func (c *Catalog) Forms() []*Schema {
	out := make([]*Schema, len(c.forms))
	copy(out, c.forms)
	return out
}

// Has reports whether code names a known form.
func (c *Catalog) Has(code string) bool {
	_, ok := c.byCode[strings.ToUpper(code)]
	return ok
}

// Form returns the schema for a form code.
func (c *Catalog) Form(code string) (*Schema, error) {
	s, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFormNotFound, code)
	}
	return s, nil
}

// Section returns one section of a form by its letter code.
func (c *Catalog) Section(code, section string) (*Section, error) {
	s, err := c.Form(code)
	if err != nil {
		return nil, err
	}
	want := strings.ToUpper(strings.TrimSpace(section))
	for i := range s.Sections {
		if s.Sections[i].Code == want {
			return &s.Sections[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s section %s", ErrSectionNotFound, s.Code, section)
}

// Field resolves a field id within a form. An exact id match wins; otherwise
// range ids such as "41-45" are tested by integer containment.
func (c *Catalog) Field(code, field string) (*Field, *Section, error) {
	s, err := c.Form(code)
	if err != nil {
		return nil, nil, err
	}
	id := strings.TrimSpace(field)

	for si := range s.Sections {
		sec := &s.Sections[si]
		for fi := range sec.Fields {
			if sec.Fields[fi].ID == id {
				return &sec.Fields[fi], sec, nil
			}
		}
	}

	n, convErr := strconv.Atoi(id)
	if convErr == nil {
		for si := range s.Sections {
			sec := &s.Sections[si]
			for fi := range sec.Fields {
				f := &sec.Fields[fi]
				if strings.Contains(f.ID, "-") && f.Contains(n) {
					return f, sec, nil
				}
			}
		}
	}
	return nil, nil, fmt.Errorf("%w: %s field %s", ErrFieldNotFound, s.Code, field)
}

// Triggers returns the answer triggers for a field: those declared on the
// field itself followed by catalog-wide triggers for the same field.
func (c *Catalog) Triggers(code, field string) []Trigger {
	var out []Trigger
	if f, _, err := c.Field(code, field); err == nil {
		out = append(out, f.Triggers...)
	}
	code = strings.ToUpper(code)
	for _, t := range c.triggers {
		if t.Form == code && t.Field == field {
			out = append(out, t.When...)
		}
	}
	return out
}

// RequiredForms returns the additional forms triggered by answering a field
// with the given value. Matching is case-insensitive on the answer text.
func (c *Catalog) RequiredForms(code, field, answer string) []string {
	answer = strings.ToLower(strings.TrimSpace(answer))
	var out []string
	for _, t := range c.Triggers(code, field) {
		if strings.ToLower(t.Answer) == answer {
			out = append(out, t.Requires...)
		}
	}
	return out
}

// CommonMistakes returns mistakes that apply to every form followed by those
// specific to code.
func (c *Catalog) CommonMistakes(code string) []string {
	out := append([]string(nil), c.commonMistakes["all_forms"]...)
	return append(out, c.commonMistakes[strings.ToUpper(code)]...)
}

// RequiredDocuments returns the documents always required followed by those
// listed on the form itself, without duplicates.
func (c *Catalog) RequiredDocuments(code string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(docs []string) {
		for _, d := range docs {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	add(c.documents.Always)
	if s, err := c.Form(code); err == nil {
		add(s.RequiredDocuments)
		for _, sec := range s.Sections {
			add(sec.RequiredDocuments)
		}
	}
	return out
}

// ConditionalDocuments returns situation-dependent documents keyed by
// situation, with keys in sorted order.
func (c *Catalog) ConditionalDocuments() ([]string, map[string][]string) {
	keys := make([]string, 0, len(c.documents.Conditional))
	for k := range c.documents.Conditional {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, c.documents.Conditional
}
