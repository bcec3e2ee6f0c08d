package mcp

import "github.com/mark3labs/mcp-go/mcp"

// askTool defines the ask_amtly MCP tool.
var askTool = mcp.NewTool("ask_amtly",
	mcp.WithDescription("Ask a question about German social benefits (Bürgergeld, Jobcenter forms) and get a routed answer with sources."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The question, in English or German"),
	),
	mcp.WithString("language",
		mcp.Description("Reply language; detected from the question when omitted"),
		mcp.Enum("en", "de"),
	),
)

// lookupFormFieldTool defines the lookup_form_field MCP tool.
var lookupFormFieldTool = mcp.NewTool("lookup_form_field",
	mcp.WithDescription("Look up one numbered field of a Jobcenter form: label, whether it is required, format, example, tips and common mistakes."),
	mcp.WithString("form",
		mcp.Required(),
		mcp.Description("Form code, e.g. HA, VM, KDU, WEP, WBA"),
	),
	mcp.WithString("field",
		mcp.Required(),
		mcp.Description("Field number, e.g. 17"),
	),
)

// searchDocumentsTool defines the search_documents MCP tool.
var searchDocumentsTool = mcp.NewTool("search_documents",
	mcp.WithDescription("Search the indexed official documents and guides semantically."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
	mcp.WithString("kind",
		mcp.Description("Filter results by document kind"),
		mcp.Enum("official", "guide", "upload"),
	),
	mcp.WithString("form",
		mcp.Description("Only return chunks associated with this form code"),
	),
)

// listFormsTool defines the list_forms MCP tool.
var listFormsTool = mcp.NewTool("list_forms",
	mcp.WithDescription("List the supported Jobcenter forms, or summarise one form when a code is given."),
	mcp.WithString("form",
		mcp.Description("Form code to summarise"),
	),
)

// suggestFormsTool defines the suggest_forms MCP tool.
var suggestFormsTool = mcp.NewTool("suggest_forms",
	mcp.WithDescription("Suggest which forms and annexes an applicant needs for their situation."),
	mcp.WithBoolean("first_time", mcp.Description("First application")),
	mcp.WithBoolean("renewal", mcp.Description("Continuation of an existing approval")),
	mcp.WithBoolean("has_partner", mcp.Description("Lives with a partner")),
	mcp.WithBoolean("has_children", mcp.Description("Children in the household")),
	mcp.WithBoolean("children_under_15", mcp.Description("At least one child is under 15")),
	mcp.WithBoolean("has_housing_costs", mcp.Description("Pays rent or other housing costs")),
	mcp.WithBoolean("separated", mcp.Description("Separated from a partner with maintenance claims")),
	mcp.WithBoolean("pregnant", mcp.Description("Pregnant")),
	mcp.WithBoolean("married", mcp.Description("Married")),
	mcp.WithBoolean("expensive_diet", mcp.Description("Needs a medically required diet")),
)
