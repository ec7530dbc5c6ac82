package kit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type echoReq struct {
	Word string `json:"word"`
}

func connect(t *testing.T, srv *mcp.Server) *mcp.ClientSession {
	t.Helper()
	impl := &mcp.Implementation{Name: "kit-test", Version: "0.1.0"}
	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	session, err := mcp.NewClient(impl, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func TestRegisterMCPTool_RoundTrip(t *testing.T) {
	// WHAT: A registered endpoint receives decoded args and the mcp transport tag.
	// WHY: Every package exposes its tools through this adapter.
	srv := mcp.NewServer(&mcp.Implementation{Name: "kit-test", Version: "0.1.0"}, nil)

	var transport string
	endpoint := func(ctx context.Context, req any) (any, error) {
		transport = GetTransport(ctx)
		r := req.(*echoReq)
		return map[string]string{"echo": strings.ToUpper(r.Word)}, nil
	}
	tool := &mcp.Tool{
		Name:        "echo",
		Description: "Echo a word in upper case.",
		InputSchema: InputSchema(map[string]any{
			"word": map[string]any{"type": "string"},
		}, []string{"word"}),
	}
	RegisterMCPTool(srv, tool, endpoint, DecodeArgs[echoReq])

	session := connect(t, srv)
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "echo",
		Arguments: map[string]any{"word": "hello"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %+v", res.Content)
	}
	text := res.Content[0].(*mcp.TextContent).Text
	if text != `{"echo":"HELLO"}` {
		t.Fatalf("result: got %s", text)
	}
	if transport != "mcp" {
		t.Fatalf("transport: got %q, want mcp", transport)
	}
}

func TestRegisterMCPTool_EndpointError(t *testing.T) {
	srv := mcp.NewServer(&mcp.Implementation{Name: "kit-test", Version: "0.1.0"}, nil)
	endpoint := func(_ context.Context, _ any) (any, error) {
		return nil, errors.New("boom")
	}
	tool := &mcp.Tool{Name: "fail", InputSchema: InputSchema(map[string]any{}, nil)}
	RegisterMCPTool(srv, tool, endpoint, DecodeArgs[echoReq])

	session := connect(t, srv)
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "fail",
		Arguments: map[string]any{},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected IsError")
	}
	if text := res.Content[0].(*mcp.TextContent).Text; !strings.Contains(text, "boom") {
		t.Fatalf("expected tool error containing boom, got %q", text)
	}
}
