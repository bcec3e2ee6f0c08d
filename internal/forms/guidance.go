package forms

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	ibanPattern = regexp.MustCompile(`^DE\d{20}$`)
	datePattern = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
)

// ValidateIBAN checks the shape of a German IBAN: DE followed by 20 digits.
// Spaces are ignored and letters are upper-cased. No checksum is computed.
func ValidateIBAN(iban string) bool {
	iban = strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	return ibanPattern.MatchString(iban)
}

// ValidateDate checks the German DD.MM.YYYY date layout.
func ValidateDate(date string) bool {
	return datePattern.MatchString(strings.TrimSpace(date))
}

// ChecklistItem summarises one section of a form for completion tracking.
type ChecklistItem struct {
	Section        string `json:"section"`
	Name           string `json:"name"`
	RequiredFields int    `json:"required_fields"`
	TotalFields    int    `json:"total_fields"`
	AllRequired    bool   `json:"all_required"`
}

// CompletionChecklist returns one item per section of the form. Conditional
// fields count as required.
func (c *Catalog) CompletionChecklist(code string) ([]ChecklistItem, error) {
	s, err := c.Form(code)
	if err != nil {
		return nil, err
	}
	items := make([]ChecklistItem, 0, len(s.Sections))
	for _, sec := range s.Sections {
		required := 0
		for _, f := range sec.Fields {
			if f.Required != Optional {
				required++
			}
		}
		items = append(items, ChecklistItem{
			Section:        sec.Code,
			Name:           sec.Name,
			RequiredFields: required,
			TotalFields:    len(sec.Fields),
			AllRequired:    required == len(sec.Fields),
		})
	}
	return items, nil
}

// Situation describes an applicant's circumstances for form suggestions.
type Situation struct {
	FirstTime       bool `json:"first_time"`
	Renewal         bool `json:"renewal"`
	HasPartner      bool `json:"has_partner"`
	HasChildren     bool `json:"has_children"`
	ChildrenUnder15 bool `json:"children_under_15"`
	HasHousingCosts bool `json:"has_housing_costs"`
	Separated       bool `json:"separated"`
	Pregnant        bool `json:"pregnant"`
	Married         bool `json:"married"`
	ExpensiveDiet   bool `json:"expensive_diet"`
}

// SuggestForms lists the form and annex codes needed for a situation, in a
// stable order and without duplicates.
func SuggestForms(s Situation) []string {
	var out []string
	switch {
	case s.FirstTime:
		out = append(out, "HA")
	case s.Renewal:
		out = append(out, "WBA")
	}
	out = append(out, "VM", "EK")
	if s.HasHousingCosts {
		out = append(out, "KDU")
	}
	if s.HasPartner || s.HasChildren {
		out = append(out, "WEP")
	}
	if s.HasChildren && s.ChildrenUnder15 {
		out = append(out, "KI")
	}
	if s.Separated {
		out = append(out, "UH1")
	}
	if s.Pregnant && !s.Married {
		out = append(out, "UH2")
	}
	if s.ExpensiveDiet {
		out = append(out, "MEB")
	}
	return out
}

// Summary renders a short Markdown description of a form.
func (c *Catalog) Summary(code string) (string, error) {
	s, err := c.Form(code)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s (%s)**\n\n", s.Name, s.Code)
	fmt.Fprintf(&b, "Purpose: %s\n", s.Purpose)
	fmt.Fprintf(&b, "Total pages: %d\n", s.TotalPages)

	if len(s.Sections) > 0 {
		b.WriteString("\n**Sections:**\n")
		for _, sec := range s.Sections {
			fmt.Fprintf(&b, "- Section %s: %s (%d fields)\n", sec.Code, sec.Name, len(sec.Fields))
		}
	}

	if docs := s.RequiredDocuments; len(docs) > 0 {
		b.WriteString("\n**Required documents:**\n")
		for _, d := range docs[:min(5, len(docs))] {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		if len(docs) > 5 {
			fmt.Fprintf(&b, "- ... and %d more\n", len(docs)-5)
		}
	}
	return b.String(), nil
}
