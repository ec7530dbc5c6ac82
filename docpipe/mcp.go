package docpipe

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/docqa/kit"
)

// RegisterMCP registers docpipe tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerFormatsTool(srv)
	p.registerNormalizeTool(srv)
}

// --- formats ---

func (p *Pipeline) registerFormatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docqa_formats",
		Description: "List file extensions with a dedicated extractor. Any other extension is read as plain text.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{"formats": SupportedFormats()}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- normalize ---

type normalizeReq struct {
	Pages    []string `json:"pages"`
	MaxChars int      `json:"max_chars"`
}

func (p *Pipeline) registerNormalizeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docqa_normalize",
		Description: "Join page texts with PAGE markers and truncate to max_chars.",
		InputSchema: kit.InputSchema(map[string]any{
			"pages":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Page texts in order"},
			"max_chars": map[string]any{"type": "integer", "description": "Length bound (default: pipeline setting)"},
		}, []string{"pages"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*normalizeReq)
		maxChars := r.MaxChars
		if maxChars <= 0 {
			maxChars = p.cfg.MaxChars
		}
		return map[string]any{"text": Normalize(r.Pages, maxChars)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeArgs[normalizeReq])
}
