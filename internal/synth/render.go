package synth

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Drafted letters usually come back as fenced blocks; highlighting gives
// them a styled box in the web client.
var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

// RenderHTML converts a Markdown answer to HTML for web clients. Raw HTML
// in the answer is omitted from the output.
func RenderHTML(answer string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(answer), &buf); err != nil {
		return "", fmt.Errorf("synth: render markdown: %w", err)
	}
	return buf.String(), nil
}
