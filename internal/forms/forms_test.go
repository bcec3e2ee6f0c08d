package forms

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amtly/amtly/internal/confidence"
)

func loadCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load()
	require.NoError(t, err)
	return c
}

func TestLoad(t *testing.T) {
	c := loadCatalog(t)
	assert.Equal(t, []string{"HA", "VM", "KDU", "WEP", "WBA"}, c.Codes())

	ha, err := c.Form("ha")
	require.NoError(t, err)
	assert.Equal(t, "Hauptantrag Bürgergeld", ha.Name)
	assert.NotEmpty(t, ha.Sections)

	_, err = c.Form("XYZ")
	assert.ErrorIs(t, err, ErrFormNotFound)
}

func TestFieldExactMatch(t *testing.T) {
	c := loadCatalog(t)

	f, sec, err := c.Field("HA", "17")
	require.NoError(t, err)
	assert.Equal(t, "IBAN", f.Label)
	assert.Equal(t, "DE89370400440532013000", f.Example)
	assert.Equal(t, Conditional, f.Required)
	assert.Equal(t, "A", sec.Code)
}

func TestFieldRangeContainment(t *testing.T) {
	c := loadCatalog(t)

	f, _, err := c.Field("HA", "43")
	require.NoError(t, err)
	assert.Equal(t, "41-45", f.ID)

	f, _, err = c.Field("HA", "46")
	require.NoError(t, err)
	assert.Equal(t, "46", f.ID, "46 lies outside 41-45")

	_, _, err = c.Field("HA", "999")
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestEveryRangeResolvesNumerically(t *testing.T) {
	c := loadCatalog(t)

	for _, s := range c.Forms() {
		for _, sec := range s.Sections {
			for _, field := range sec.Fields {
				if !strings.Contains(field.ID, "-") {
					continue
				}
				start, end, ok := field.Range()
				require.True(t, ok, "%s field %s", s.Code, field.ID)
				for n := start; n <= end; n++ {
					got, _, err := c.Field(s.Code, strconv.Itoa(n))
					require.NoError(t, err, "%s field %d", s.Code, n)
					if got.ID != strconv.Itoa(n) {
						assert.Equal(t, field.ID, got.ID, "%s field %d", s.Code, n)
					}
				}
				if got, _, err := c.Field(s.Code, strconv.Itoa(end+1)); err == nil {
					assert.NotEqual(t, field.ID, got.ID, "%s field %d", s.Code, end+1)
				}
			}
		}
	}
}

func TestRangeUsesIntegerComparison(t *testing.T) {
	f := Field{ID: "9-12"}
	assert.True(t, f.Contains(10), "lexicographically \"10\" < \"9\"")
	assert.True(t, f.Contains(9))
	assert.False(t, f.Contains(13))
	assert.False(t, f.Contains(8))

	bad := Field{ID: "a-b"}
	assert.False(t, bad.Contains(1))
}

func TestSection(t *testing.T) {
	c := loadCatalog(t)

	sec, err := c.Section("KDU", "c")
	require.NoError(t, err)
	assert.Equal(t, "C", sec.Code)

	_, err = c.Section("KDU", "Z")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestRequirementJSON(t *testing.T) {
	data, err := json.Marshal([]Requirement{Required, Optional, Conditional})
	require.NoError(t, err)
	assert.JSONEq(t, `[true,false,"conditional"]`, string(data))

	var back []Requirement
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []Requirement{Required, Optional, Conditional}, back)

	var r Requirement
	assert.Error(t, json.Unmarshal([]byte(`"maybe"`), &r))
	assert.Error(t, json.Unmarshal([]byte(`3`), &r))
}

func TestFieldJSONRoundTrip(t *testing.T) {
	c := loadCatalog(t)
	f, _, err := c.Field("HA", "17")
	require.NoError(t, err)

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"required":"conditional"`)

	var back Field
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Conditional, back.Required)
	assert.Equal(t, f.Label, back.Label)
}

func TestParseRejectsBadRequirement(t *testing.T) {
	_, err := Parse([]byte(`
forms:
- code: X
  name: X
  sections:
  - code: A
    fields:
    - id: "1"
      label: L
      required: maybe
`))
	assert.Error(t, err)
}

func TestTriggers(t *testing.T) {
	c := loadCatalog(t)

	got := c.RequiredForms("HA", "54", "ja")
	assert.Equal(t, []string{"Must complete Anlage EKS"}, got)

	triggers := c.Triggers("HA", "82")
	require.NotEmpty(t, triggers)
	last := triggers[len(triggers)-1]
	assert.Equal(t, "housing_costs", last.Answer)
	assert.Equal(t, []string{"Anlage KDU"}, last.Requires)
}

func TestRequiredDocuments(t *testing.T) {
	c := loadCatalog(t)

	docs := c.RequiredDocuments("HA")
	assert.Contains(t, docs, "ID/passport copy (main applicant)")
	assert.Contains(t, docs, "Lease contract (if renting)")

	seen := map[string]bool{}
	for _, d := range docs {
		assert.False(t, seen[d], "duplicate %q", d)
		seen[d] = true
	}
}

func TestCommonMistakes(t *testing.T) {
	c := loadCatalog(t)
	m := c.CommonMistakes("KDU")
	assert.Contains(t, m, "Not signing the form")
	assert.Contains(t, m, "Including heating in Nebenkosten")
}

func TestValidateIBAN(t *testing.T) {
	assert.True(t, ValidateIBAN("DE89370400440532013000"))
	assert.True(t, ValidateIBAN("de89 3704 0044 0532 0130 00"))
	assert.False(t, ValidateIBAN("DE8937040044053201300"))
	assert.False(t, ValidateIBAN("AT611904300234573201"))
}

func TestValidateDate(t *testing.T) {
	assert.True(t, ValidateDate("15.03.1985"))
	assert.False(t, ValidateDate("1985-03-15"))
	assert.False(t, ValidateDate("3/15/1985"))
}

func TestCompletionChecklist(t *testing.T) {
	c := loadCatalog(t)
	items, err := c.CompletionChecklist("HA")
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.Equal(t, "A", items[0].Section)
	assert.Equal(t, 25, items[0].TotalFields)
}

func TestSuggestForms(t *testing.T) {
	got := SuggestForms(Situation{FirstTime: true, HasChildren: true, ChildrenUnder15: true, Pregnant: true})
	assert.Equal(t, []string{"HA", "VM", "EK", "WEP", "KI", "UH2"}, got)

	got = SuggestForms(Situation{Renewal: true, HasHousingCosts: true})
	assert.Equal(t, []string{"WBA", "VM", "EK", "KDU"}, got)
}

func TestSummary(t *testing.T) {
	c := loadCatalog(t)
	s, err := c.Summary("HA")
	require.NoError(t, err)
	assert.Contains(t, s, "**Hauptantrag Bürgergeld (HA)**")
	assert.Contains(t, s, "- Section A:")
	assert.Contains(t, s, "more")
}

func TestLocate(t *testing.T) {
	tests := []struct {
		text string
		want Location
	}{
		{"feld 17 HA", Location{FormCode: "HA", Field: "17", Confidence: confidence.High}},
		{"Was muss ich in Abschnitt C vom Hauptantrag eintragen?", Location{FormCode: "HA", Section: "C", Confidence: confidence.High}},
		{"Tell me about the KDU form", Location{FormCode: "KDU", Confidence: confidence.High}},
		{"what about field 20?", Location{Field: "20", Confidence: confidence.Low}},
		{"Where do I put my IBAN?", Location{FormCode: "HA", Confidence: confidence.Medium}},
		{"my rent went up", Location{FormCode: "KDU", Confidence: confidence.Medium}},
		{"how much money do I get", Location{Confidence: confidence.Low}},
		{"question #12 on the renewal", Location{FormCode: "WBA", Field: "12", Confidence: confidence.High}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Locate(tt.text))
		})
	}
}

func TestLocateFirstKeywordWins(t *testing.T) {
	// "vm" precedes "kdu" in the keyword table.
	loc := Locate("kdu and vm")
	assert.Equal(t, "VM", loc.FormCode)
}

func TestLocateBareNumberFallback(t *testing.T) {
	loc := Locate("I moved on 12 May")
	assert.Equal(t, "12", loc.Field)
}

func TestMentionedCode(t *testing.T) {
	assert.Equal(t, "KDU", MentionedCode("📝 **KDU Form Help - Overview**"))
	assert.Equal(t, "", MentionedCode("Kindergeld is paid monthly"))
	assert.Equal(t, "", MentionedCode("What about this?"))
}
