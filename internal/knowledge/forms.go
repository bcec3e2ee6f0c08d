package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/amtly/amtly/internal/confidence"
	"github.com/amtly/amtly/internal/forms"
)

// Supplement defaults for form answers.
const (
	DefaultSupplementK     = 2
	DefaultSupplementChars = 500
)

// FormAdapter builds context from the form catalog, optionally enriched with
// a few matches from the document index scoped to the form.
type FormAdapter struct {
	catalog *forms.Catalog
	search  *SearchAdapter
	k       int
	chars   int
}

// FormAdapterOption configures a FormAdapter.
type FormAdapterOption func(*FormAdapter)

// WithSupplement enables supplementary document search for form answers.
func WithSupplement(s *SearchAdapter, k, chars int) FormAdapterOption {
	return func(a *FormAdapter) {
		a.search = s
		if k > 0 {
			a.k = k
		}
		if chars > 0 {
			a.chars = chars
		}
	}
}

// NewFormAdapter creates a FormAdapter over catalog.
func NewFormAdapter(catalog *forms.Catalog, opts ...FormAdapterOption) *FormAdapter {
	a := &FormAdapter{catalog: catalog, k: DefaultSupplementK, chars: DefaultSupplementChars}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Catalog returns the underlying form catalog.
func (a *FormAdapter) Catalog() *forms.Catalog { return a.catalog }

// FormContext is the structured context for one form question.
type FormContext struct {
	Fragment Fragment
	Schema   *forms.Schema
	Section  *forms.Section
	Field    *forms.Field
}

// Field looks up one field and renders its guidance. A field id inside a
// range key resolves to the range. Unknown forms or fields return the
// catalog's lookup errors.
func (a *FormAdapter) Field(ctx context.Context, code, field, question string) (*FormContext, error) {
	schema, err := a.catalog.Form(code)
	if err != nil {
		return nil, err
	}
	f, sec, err := a.catalog.Field(code, field)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Form: %s (%s)\n", schema.Name, schema.Code)
	fmt.Fprintf(&b, "Section %s: %s\n", sec.Code, sec.Name)
	fmt.Fprintf(&b, "Field %s: %s\n", f.ID, f.Label)
	if f.Description != "" {
		fmt.Fprintf(&b, "Purpose: %s\n", f.Description)
	}
	fmt.Fprintf(&b, "Required: %s\n", f.Required)
	if f.Critical {
		b.WriteString("CRITICAL: mistakes in this field delay or block the application.\n")
	}
	if f.Format != "" {
		fmt.Fprintf(&b, "Format: %s\n", f.Format)
	}
	writeList(&b, "Guidance", f.Tips)
	writeList(&b, "Details", f.Details)
	writeList(&b, "Common mistakes to avoid", f.Mistakes)
	if f.Example != "" {
		fmt.Fprintf(&b, "\nExample: %s\n", f.Example)
	}
	writeList(&b, "Examples", f.Examples)
	writeList(&b, "Options", f.Options)

	triggers := a.catalog.Triggers(schema.Code, f.ID)
	if len(triggers) > 0 {
		b.WriteString("\nImportant:\n")
		for _, t := range triggers {
			for _, req := range t.Requires {
				fmt.Fprintf(&b, "• If you select '%s': %s\n", t.Answer, req)
			}
		}
	}
	a.writeSupplement(ctx, &b, schema.Code, question)

	return &FormContext{
		Fragment: Fragment{Text: strings.TrimSpace(b.String()), Relevance: confidence.High},
		Schema:   schema,
		Section:  sec,
		Field:    f,
	}, nil
}

// Section renders a section with the labels of its fields.
func (a *FormAdapter) Section(ctx context.Context, code, section, question string) (*FormContext, error) {
	schema, err := a.catalog.Form(code)
	if err != nil {
		return nil, err
	}
	sec, err := a.catalog.Section(code, section)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Form: %s (%s)\n", schema.Name, schema.Code)
	fmt.Fprintf(&b, "Section %s: %s\n", sec.Code, sec.Name)
	if sec.Description != "" {
		fmt.Fprintf(&b, "%s\n", sec.Description)
	}
	if len(sec.Fields) > 0 {
		b.WriteString("\nFields in this section:\n")
		for _, f := range sec.Fields {
			marker := ""
			switch {
			case f.Critical:
				marker = " (critical)"
			case f.Required == forms.Required:
				marker = " (required)"
			}
			fmt.Fprintf(&b, "• Field %s: %s%s\n", f.ID, f.Label, marker)
		}
	}
	writeList(&b, "Items", sec.Items)
	writeList(&b, "Notes", sec.Notes)
	writeList(&b, "Required documents", sec.RequiredDocuments)
	a.writeSupplement(ctx, &b, schema.Code, question)

	return &FormContext{
		Fragment: Fragment{Text: strings.TrimSpace(b.String()), Relevance: confidence.High},
		Schema:   schema,
		Section:  sec,
	}, nil
}

// Overview renders the whole form: purpose, sections, required documents
// and critical notes.
func (a *FormAdapter) Overview(ctx context.Context, code, question string) (*FormContext, error) {
	schema, err := a.catalog.Form(code)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Form: %s (%s)\n", schema.Name, schema.Code)
	fmt.Fprintf(&b, "Purpose: %s\n", schema.Purpose)
	if schema.TotalPages > 0 {
		fmt.Fprintf(&b, "Total pages: %d\n", schema.TotalPages)
	}
	if len(schema.Sections) > 0 {
		b.WriteString("\nSections:\n")
		for _, sec := range schema.Sections {
			fmt.Fprintf(&b, "• Section %s: %s\n", sec.Code, sec.Name)
		}
	}
	writeList(&b, "Required documents", a.catalog.RequiredDocuments(schema.Code))
	writeList(&b, "Important notes", schema.CriticalNotes)
	writeList(&b, "Tips", schema.Tips)
	writeList(&b, "Common mistakes", a.catalog.CommonMistakes(schema.Code))
	a.writeSupplement(ctx, &b, schema.Code, question)

	return &FormContext{
		Fragment: Fragment{Text: strings.TrimSpace(b.String()), Relevance: confidence.High},
		Schema:   schema,
	}, nil
}

// Generic lists every known form, for form questions that name none.
func (a *FormAdapter) Generic() *FormContext {
	var b strings.Builder
	b.WriteString("Available forms:\n")
	for _, s := range a.catalog.Forms() {
		fmt.Fprintf(&b, "• %s: %s - %s\n", s.Code, s.Name, s.Purpose)
	}
	return &FormContext{
		Fragment: Fragment{Text: strings.TrimSpace(b.String()), Relevance: confidence.Low},
	}
}

// writeSupplement appends up to k document matches for "<code> form:
// <question>", each cut to chars runes. Search failures add nothing.
func (a *FormAdapter) writeSupplement(ctx context.Context, b *strings.Builder, code, question string) {
	if a.search == nil || strings.TrimSpace(question) == "" {
		return
	}
	frags, err := a.search.Search(ctx, code+" form: "+question, a.k)
	if err != nil || len(frags) == 0 {
		return
	}
	b.WriteString("\nOfficial documentation reference:\n")
	for i, f := range frags {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(truncateRunes(f.Text, a.chars))
	}
	b.WriteString("\n")
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "• %s\n", it)
	}
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
