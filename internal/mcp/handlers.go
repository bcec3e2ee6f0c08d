package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/amtly/amtly/internal/forms"
	"github.com/amtly/amtly/internal/language"
	"github.com/amtly/amtly/internal/router"
	"github.com/amtly/amtly/internal/vectordb"
)

// handleAsk runs one routed turn without history.
func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	resp, err := s.engine.Respond(ctx, router.Request{
		Message:  question,
		Language: language.Language(request.GetString("language", "")),
	})
	if err != nil {
		if errors.Is(err, router.ErrEmptyMessage) {
			return mcp.NewToolResultError("question must not be empty"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("answering failed: %v", err)), nil
	}
	s.logger.Debug("mcp ask", zap.String("route", string(resp.Route)), zap.Bool("degraded", resp.Degraded))

	return mcp.NewToolResultText(resp.Answer), nil
}

// handleLookupFormField returns the catalog entry for one form field.
func (s *Server) handleLookupFormField(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("form")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: form"), nil
	}
	field, err := request.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: field"), nil
	}

	catalog := s.engine.Catalog()
	f, sec, err := catalog.Field(code, field)
	switch {
	case errors.Is(err, forms.ErrFormNotFound):
		return mcp.NewToolResultError(fmt.Sprintf(
			"Unknown form %q. Known forms: %s", code, strings.Join(catalog.Codes(), ", "),
		)), nil
	case errors.Is(err, forms.ErrFieldNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("Form %s has no field %s.", strings.ToUpper(code), field)), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatField(strings.ToUpper(code), sec, f)), nil
}

// handleSearchDocuments performs semantic search over the document index.
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	if s.store == nil {
		return mcp.NewToolResultError("No document index is loaded. Run `amtly ingest <dir>` first."), nil
	}

	limit := request.GetInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}

	var filter *vectordb.SearchFilter
	if kind := request.GetString("kind", ""); kind != "" {
		k := vectordb.DocumentKind(kind)
		filter = &vectordb.SearchFilter{Kind: &k}
	}
	if code := strings.ToUpper(request.GetString("form", "")); code != "" {
		if filter == nil {
			filter = &vectordb.SearchFilter{}
		}
		filter.FormCode = &code
	}

	results, err := s.store.Search(ctx, query, limit, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No results found. The documents may not be indexed yet. Run `amtly ingest <dir>` to index them."), nil
	}

	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

// handleListForms lists forms or summarises one.
func (s *Server) handleListForms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	catalog := s.engine.Catalog()

	if code := request.GetString("form", ""); code != "" {
		summary, err := catalog.Summary(code)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf(
				"Unknown form %q. Known forms: %s", code, strings.Join(catalog.Codes(), ", "),
			)), nil
		}
		return mcp.NewToolResultText(summary), nil
	}

	var sb strings.Builder
	for _, f := range catalog.Forms() {
		fmt.Fprintf(&sb, "- %s: %s (%d pages)\n", f.Code, f.Name, f.TotalPages)
		if f.Purpose != "" {
			fmt.Fprintf(&sb, "  %s\n", f.Purpose)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleSuggestForms maps a situation to the forms it needs.
func (s *Server) handleSuggestForms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	codes := forms.SuggestForms(forms.Situation{
		FirstTime:       request.GetBool("first_time", false),
		Renewal:         request.GetBool("renewal", false),
		HasPartner:      request.GetBool("has_partner", false),
		HasChildren:     request.GetBool("has_children", false),
		ChildrenUnder15: request.GetBool("children_under_15", false),
		HasHousingCosts: request.GetBool("has_housing_costs", false),
		Separated:       request.GetBool("separated", false),
		Pregnant:        request.GetBool("pregnant", false),
		Married:         request.GetBool("married", false),
		ExpensiveDiet:   request.GetBool("expensive_diet", false),
	})

	var sb strings.Builder
	sb.WriteString("Forms to submit:\n")
	for _, c := range codes {
		sb.WriteString("- " + c)
		if f, err := s.engine.Catalog().Form(c); err == nil {
			sb.WriteString(": " + f.Name)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func formatField(code string, sec *forms.Section, f *forms.Field) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s field %s: %s\n", code, f.ID, f.Label)
	fmt.Fprintf(&sb, "Section %s: %s\n", sec.Code, sec.Name)
	fmt.Fprintf(&sb, "Required: %s\n", f.Required)
	if f.Critical {
		sb.WriteString("CRITICAL: errors here commonly delay the application\n")
	}
	if f.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", f.Description)
	}
	if f.Format != "" {
		fmt.Fprintf(&sb, "Format: %s\n", f.Format)
	}
	if f.Example != "" {
		fmt.Fprintf(&sb, "Example: %s\n", f.Example)
	}
	writeList(&sb, "Options", f.Options)
	writeList(&sb, "Tips", f.Tips)
	writeList(&sb, "Common mistakes", f.Mistakes)
	for _, t := range f.Triggers {
		fmt.Fprintf(&sb, "If you answer %q you also need: %s\n", t.Answer, strings.Join(t.Requires, ", "))
	}
	return sb.String()
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(sb, "- %s\n", it)
	}
}

// formatSearchResults converts search results into a text format suited to
// MCP clients.
func formatSearchResults(results []vectordb.SearchResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n", len(results)))

	for i, r := range results {
		md := r.Document.Metadata
		sb.WriteString(fmt.Sprintf("\n--- Result %d ---\n", i+1))

		if md.Source != "" {
			location := md.Source
			if md.Page > 0 {
				location += fmt.Sprintf(" p.%d", md.Page)
			}
			sb.WriteString(fmt.Sprintf("Source: %s\n", location))
		}
		if md.Kind != "" {
			sb.WriteString(fmt.Sprintf("Kind: %s\n", md.Kind))
		}
		if md.FormCode != "" {
			sb.WriteString(fmt.Sprintf("Form: %s\n", md.FormCode))
		}
		if md.Language != "" {
			sb.WriteString(fmt.Sprintf("Language: %s\n", md.Language))
		}
		sb.WriteString(fmt.Sprintf("Similarity: %.1f%%\n", r.Similarity*100))

		sb.WriteString("\n")
		sb.WriteString(r.Document.Content)
		sb.WriteString("\n")
	}

	return sb.String()
}
