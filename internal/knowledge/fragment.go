// Package knowledge adapts the structured form catalog and the document
// search index into uniform context fragments.
package knowledge

import (
	"path/filepath"
	"strings"

	"github.com/amtly/amtly/internal/confidence"
)

// Fragment is one piece of retrieved context.
type Fragment struct {
	Text      string           `json:"text"`
	Source    string           `json:"source,omitempty"`
	Relevance confidence.Level `json:"relevance,omitempty"`
	Score     float32          `json:"score,omitempty"`
}

// Join concatenates the text of fragments separated by blank lines,
// skipping empty ones.
func Join(frags []Fragment) string {
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		if t := strings.TrimSpace(f.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Sources returns the distinct source labels of frags in first-seen order.
func Sources(frags []Fragment) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range frags {
		if f.Source == "" || seen[f.Source] {
			continue
		}
		seen[f.Source] = true
		out = append(out, f.Source)
	}
	return out
}

var sourceExtensions = []string{".pdf", ".txt", ".md"}

// CleanSource turns a raw document source into a display label. The
// directory and file extension are stripped. Labels that end up empty, a
// bare wildcard, "unknown" or a single character are rejected.
func CleanSource(raw string) (string, bool) {
	label := strings.TrimSpace(raw)
	if label == "" {
		return "", false
	}
	label = filepath.Base(filepath.ToSlash(label))
	for _, ext := range sourceExtensions {
		label = strings.ReplaceAll(label, ext, "")
	}
	label = strings.TrimSpace(label)
	switch {
	case label == "", label == "*", label == ".", strings.EqualFold(label, "unknown"):
		return "", false
	case len([]rune(label)) <= 1:
		return "", false
	}
	return label, true
}

// relevanceFor maps a cosine similarity to a coarse relevance tier.
func relevanceFor(score float32) confidence.Level {
	switch {
	case score >= 0.8:
		return confidence.High
	case score >= 0.6:
		return confidence.Medium
	default:
		return confidence.Low
	}
}
