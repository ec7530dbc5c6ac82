package assistant

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/docqa/kit"
)

// RegisterMCP registers the question-answering tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerAskTool(srv)
	s.registerImproveTool(srv)
	s.registerDocumentsTool(srv)
}

// logCalls logs each tool call with its outcome and latency.
func logCalls(logger *slog.Logger, tool string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			log := logger.With("tool", tool, "transport", kit.GetTransport(ctx), "elapsed_ms", time.Since(start).Milliseconds())
			if err != nil {
				log.Warn("assistant.mcp.error", "error", err)
			} else {
				log.Info("assistant.mcp.ok")
			}
			return resp, err
		}
	}
}

// withSession copies the request's session id into the context.
func withSession(sessionID func(any) string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			return next(kit.WithSessionID(ctx, sessionID(req)), req)
		}
	}
}

// --- ask ---

func (s *Service) registerAskTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docqa_ask",
		Description: "Answer a question from the documents uploaded to a session.",
		InputSchema: kit.InputSchema(map[string]any{
			"session_id": map[string]any{"type": "string", "description": "Session that holds the uploaded documents"},
			"question":   map[string]any{"type": "string", "description": "Question to answer"},
			"role":       map[string]any{"type": "string", "description": "Role of the person asking"},
			"mode":       map[string]any{"type": "string", "enum": []string{"short", "extended", "full"}, "description": "Answer length"},
		}, []string{"session_id", "question", "role", "mode"}),
	}

	type askReq struct {
		SessionID string `json:"session_id"`
		Question  string `json:"question"`
		Role      string `json:"role"`
		Mode      string `json:"mode"`
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*askReq)
		return s.Chat(ctx, ChatRequest{SessionID: r.SessionID, Message: r.Question, Role: r.Role, Mode: r.Mode})
	}

	mw := kit.Chain(logCalls(s.logger, tool.Name), withSession(func(req any) string { return req.(*askReq).SessionID }))
	kit.RegisterMCPTool(srv, tool, mw(endpoint), kit.DecodeArgs[askReq])
}

// --- improve ---

func (s *Service) registerImproveTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docqa_improve_prompt",
		Description: "Rewrite a document review prompt to be clearer and more specific.",
		InputSchema: kit.InputSchema(map[string]any{
			"prompt": map[string]any{"type": "string", "description": "Prompt to improve"},
			"role":   map[string]any{"type": "string", "description": "Role of the prompt author"},
		}, []string{"prompt", "role"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return s.ImprovePrompt(ctx, *req.(*ImproveRequest))
	}

	kit.RegisterMCPTool(srv, tool, logCalls(s.logger, tool.Name)(endpoint), kit.DecodeArgs[ImproveRequest])
}

// --- documents ---

type documentsReq struct {
	SessionID string `json:"session_id"`
}

func (s *Service) registerDocumentsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docqa_documents",
		Description: "List the documents of a session with their format and page count.",
		InputSchema: kit.InputSchema(map[string]any{
			"session_id": map[string]any{"type": "string", "description": "Session id"},
		}, []string{"session_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		docs, err := s.Documents(ctx, req.(*documentsReq).SessionID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"documents": docs}, nil
	}

	mw := kit.Chain(logCalls(s.logger, tool.Name), withSession(func(req any) string { return req.(*documentsReq).SessionID }))
	kit.RegisterMCPTool(srv, tool, mw(endpoint), kit.DecodeArgs[documentsReq])
}
