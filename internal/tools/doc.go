package tools

import (
	"context"

	"github.com/HendryAvila/agent-memory/internal/docs"
	"github.com/HendryAvila/agent-memory/internal/result"
	"github.com/mark3labs/mcp-go/mcp"
)

func sectionTypeValues() []string {
	out := make([]string, len(docs.SectionTypes))
	for i, t := range docs.SectionTypes {
		out[i] = string(t)
	}
	return out
}

// --- doc_store_section ---

// StoreSectionTool handles the doc_store_section MCP tool.
type StoreSectionTool struct {
	composer *docs.Composer
}

// NewStoreSectionTool creates a StoreSectionTool.
func NewStoreSectionTool(c *docs.Composer) *StoreSectionTool { return &StoreSectionTool{composer: c} }

// Definition returns the MCP tool definition for doc_store_section.
func (t *StoreSectionTool) Definition() mcp.Tool {
	return mcp.NewTool("doc_store_section",
		mcp.WithDescription(
			"Store a documentation section. There is one section per type; storing again replaces it. "+
				"Sections are assembled into AGENT.md by doc_generate_agent_md.",
		),
		mcp.WithString("section_type",
			mcp.Required(),
			mcp.Description("Section type"),
			mcp.Enum(sectionTypeValues()...),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Section content in Markdown"),
		),
		mcp.WithString("title",
			mcp.Description("Section title (default: the type's heading)"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags"),
		),
	)
}

// Handle processes the doc_store_section tool call.
func (t *StoreSectionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sec, created, err := t.composer.StoreSection(ctx,
		req.GetString("section_type", ""),
		req.GetString("title", ""),
		req.GetString("content", ""),
		listArg(req, "tags"),
	)
	if err != nil {
		return result.Error(err), nil
	}
	status := result.StatusUpdated
	if created {
		status = result.StatusCreated
	}
	return result.JSON(status, result.Fields{"section_type": sec.Type, "title": sec.Title}), nil
}

// --- doc_get_section ---

// GetSectionTool handles the doc_get_section MCP tool.
type GetSectionTool struct {
	composer *docs.Composer
}

// NewGetSectionTool creates a GetSectionTool.
func NewGetSectionTool(c *docs.Composer) *GetSectionTool { return &GetSectionTool{composer: c} }

// Definition returns the MCP tool definition for doc_get_section.
func (t *GetSectionTool) Definition() mcp.Tool {
	return mcp.NewTool("doc_get_section",
		mcp.WithDescription("Get the stored documentation section of one type."),
		mcp.WithString("section_type",
			mcp.Required(),
			mcp.Description("Section type"),
			mcp.Enum(sectionTypeValues()...),
		),
	)
}

// Handle processes the doc_get_section tool call.
func (t *GetSectionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sec, err := t.composer.GetSection(ctx, req.GetString("section_type", ""))
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{"section": sec}), nil
}

// --- doc_search ---

// DocSearchTool handles the doc_search MCP tool.
type DocSearchTool struct {
	composer *docs.Composer
}

// NewDocSearchTool creates a DocSearchTool.
func NewDocSearchTool(c *docs.Composer) *DocSearchTool { return &DocSearchTool{composer: c} }

// Definition returns the MCP tool definition for doc_search.
func (t *DocSearchTool) Definition() mcp.Tool {
	return mcp.NewTool("doc_search",
		mcp.WithDescription("Search documentation sections by semantic similarity."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithNumber("n_results",
			mcp.Description("Max results (default: 10)"),
		),
	)
}

// Handle processes the doc_search tool call.
func (t *DocSearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hits, err := t.composer.Search(ctx, req.GetString("query", ""), intArg(req, "n_results", 10))
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{"results": hits, "count": len(hits)}), nil
}

// --- doc_generate_agent_md ---

// GenerateAgentMDTool handles the doc_generate_agent_md MCP tool.
type GenerateAgentMDTool struct {
	composer *docs.Composer
	dir      string
}

// NewGenerateAgentMDTool creates a GenerateAgentMDTool. Relative paths are
// resolved against projectDir.
func NewGenerateAgentMDTool(c *docs.Composer, projectDir string) *GenerateAgentMDTool {
	return &GenerateAgentMDTool{composer: c, dir: projectDir}
}

// Definition returns the MCP tool definition for doc_generate_agent_md.
func (t *GenerateAgentMDTool) Definition() mcp.Tool {
	return mcp.NewTool("doc_generate_agent_md",
		mcp.WithDescription(
			"Assemble every stored section into an AGENT.md document in a fixed order. "+
				"Without output_path the document is only returned.",
		),
		mcp.WithString("output_path",
			mcp.Description("File to write, relative to the project directory, e.g. AGENT.md"),
		),
	)
}

// Handle processes the doc_generate_agent_md tool call.
func (t *GenerateAgentMDTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := resolvePath(t.dir, req.GetString("output_path", ""))
	doc, err := t.composer.GenerateAgentMD(ctx, path)
	if err != nil {
		return result.Error(err), nil
	}
	fields := result.Fields{"content": doc}
	if path != "" {
		fields["path"] = path
	}
	return result.JSON(result.StatusSuccess, fields), nil
}

// --- doc_import_agent_md ---

// ImportAgentMDTool handles the doc_import_agent_md MCP tool.
type ImportAgentMDTool struct {
	composer *docs.Composer
	dir      string
}

// NewImportAgentMDTool creates an ImportAgentMDTool. Relative paths are
// resolved against projectDir.
func NewImportAgentMDTool(c *docs.Composer, projectDir string) *ImportAgentMDTool {
	return &ImportAgentMDTool{composer: c, dir: projectDir}
}

// Definition returns the MCP tool definition for doc_import_agent_md.
func (t *ImportAgentMDTool) Definition() mcp.Tool {
	return mcp.NewTool("doc_import_agent_md",
		mcp.WithDescription(
			"Import an AGENT.md into stored sections. Files generated by doc_generate_agent_md are read back "+
				"exactly; other Markdown is split on ## headings and each section's type is guessed.",
		),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("File to import, relative to the project directory"),
		),
	)
}

// Handle processes the doc_import_agent_md tool call.
func (t *ImportAgentMDTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := resolvePath(t.dir, req.GetString("file_path", ""))
	if path == "" {
		return result.Invalid("'file_path' is required"), nil
	}
	res, err := t.composer.ImportAgentMD(ctx, path)
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{"import": res, "count": len(res.Sections)}), nil
}
