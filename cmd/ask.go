package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amtly/amtly/internal/language"
	"github.com/amtly/amtly/internal/router"
	"github.com/amtly/amtly/internal/synth"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question from the terminal",
	Long: `Routes one question through the same engine as the chat server and
prints the answer. No history is kept between invocations.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("lang", "", "reply language (en or de); detected when empty")
	askCmd.Flags().String("document", "", "file whose text is used as document context")
	askCmd.Flags().Bool("html", false, "print the answer rendered as HTML")
	askCmd.Flags().Bool("json", false, "print the full response as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	lang, _ := cmd.Flags().GetString("lang")
	docPath, _ := cmd.Flags().GetString("document")
	asHTML, _ := cmd.Flags().GetBool("html")
	asJSON, _ := cmd.Flags().GetBool("json")

	if lang != "" && !language.Language(lang).Valid() {
		return fmt.Errorf("unsupported language %q: use en or de", lang)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	req := router.Request{
		Message:  strings.Join(args, " "),
		Language: language.Language(lang),
	}
	if docPath != "" {
		text, err := createExtractorFromConfig(cfg).Extract(ctx, docPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", docPath, err)
		}
		req.Document = text
	}

	resp, err := a.engine.Respond(ctx, req)
	if err != nil {
		return err
	}

	switch {
	case asJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case asHTML:
		html, err := synth.RenderHTML(resp.Answer)
		if err != nil {
			return err
		}
		fmt.Println(html)
	default:
		fmt.Println(resp.Answer)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "\nroute=%s target=%s reason=%q language=%s degraded=%t\n",
			resp.Route, resp.Decision.Target, resp.Decision.Reason, resp.Language, resp.Degraded)
	}
	return nil
}
