package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amtly/amtly/internal/vectordb"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantically search the indexed official documents",
	Long:  `Searches the document index with a natural language query and prints the matching chunks with their sources.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", 5, "maximum number of results")
	searchCmd.Flags().String("kind", "", "filter by kind: official, guide, upload")
	searchCmd.Flags().String("form", "", "filter by form code, e.g. HA")
	searchCmd.Flags().String("lang", "", "filter by document language")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	queryText := strings.Join(args, " ")

	limit, _ := cmd.Flags().GetInt("limit")
	kind, _ := cmd.Flags().GetString("kind")
	form, _ := cmd.Flags().GetString("form")
	lang, _ := cmd.Flags().GetString("lang")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, loaded, err := openVectorStore(ctx, cfg)
	if err != nil {
		return err
	}
	if !loaded || store.Count() == 0 {
		fmt.Println("Document index is empty. Run `amtly ingest <dir>` first.")
		return nil
	}

	filter := searchFilter(kind, form, lang)

	results, err := store.Search(ctx, queryText, limit, filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if jsonOutput {
		return printSearchResultsJSON(results)
	}
	printSearchResultsTable(results)
	return nil
}

// searchFilter builds a filter from the optional flag values, or nil when
// none is set.
func searchFilter(kind, form, lang string) *vectordb.SearchFilter {
	if kind == "" && form == "" && lang == "" {
		return nil
	}
	f := &vectordb.SearchFilter{}
	if kind != "" {
		k := vectordb.DocumentKind(kind)
		f.Kind = &k
	}
	if form != "" {
		code := strings.ToUpper(form)
		f.FormCode = &code
	}
	if lang != "" {
		f.Language = &lang
	}
	return f
}

type searchResultJSON struct {
	Rank       int     `json:"rank"`
	Similarity float64 `json:"similarity"`
	Source     string  `json:"source"`
	Page       int     `json:"page,omitempty"`
	Kind       string  `json:"kind"`
	FormCode   string  `json:"form_code,omitempty"`
	Language   string  `json:"language,omitempty"`
	Content    string  `json:"content"`
}

func printSearchResultsJSON(results []vectordb.SearchResult) error {
	out := make([]searchResultJSON, 0, len(results))
	for i, r := range results {
		md := r.Document.Metadata
		out = append(out, searchResultJSON{
			Rank:       i + 1,
			Similarity: float64(r.Similarity),
			Source:     md.Source,
			Page:       md.Page,
			Kind:       string(md.Kind),
			FormCode:   md.FormCode,
			Language:   md.Language,
			Content:    truncate(r.Document.Content, 300),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printSearchResultsTable(results []vectordb.SearchResult) {
	fmt.Printf("Found %d results:\n\n", len(results))
	for i, r := range results {
		md := r.Document.Metadata
		location := md.Source
		if md.Page > 0 {
			location = fmt.Sprintf("%s p.%d", location, md.Page)
		}
		form := ""
		if md.FormCode != "" {
			form = fmt.Sprintf(" (%s)", md.FormCode)
		}

		fmt.Printf("  %d. [%.1f%%] %s%s\n", i+1, r.Similarity*100, location, form)
		fmt.Printf("     Kind: %s\n", md.Kind)
		fmt.Printf("     %s\n\n", truncate(strings.Join(strings.Fields(r.Document.Content), " "), 160))
	}
}
