package vectordb

import (
	"fmt"
	"strings"
)

// FormatResults renders search results as human-readable text.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d result(s):\n\n", len(results))

	for i, r := range results {
		md := r.Document.Metadata
		fmt.Fprintf(&sb, "--- Result %d (similarity: %.4f) ---\n", i+1, r.Similarity)

		if md.Source != "" {
			location := md.Source
			if md.Page > 0 {
				location += fmt.Sprintf(" p.%d", md.Page)
			}
			fmt.Fprintf(&sb, "Source: %s\n", location)
		}
		if md.FormCode != "" {
			fmt.Fprintf(&sb, "Form: %s\n", md.FormCode)
		}
		if md.Language != "" {
			fmt.Fprintf(&sb, "Language: %s\n", md.Language)
		}

		sb.WriteString("\n")
		sb.WriteString(r.Document.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
