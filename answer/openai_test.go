package answer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hazyhaar/docqa/docpipe"
)

// fakeProvider records the last request and answers with body.
func fakeProvider(t *testing.T, status int, body string) (*httptest.Server, *openai.ChatCompletionRequest, *http.Header) {
	t.Helper()
	var got openai.ChatCompletionRequest
	var hdr http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		hdr = r.Header.Clone()
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got, &hdr
}

func testClient(baseURL string) *Client {
	return NewClient(Config{APIKey: "sk-test", BaseURL: baseURL, Model: "gpt-test"}, nil)
}

func TestClient_Ask(t *testing.T) {
	srv, got, hdr := fakeProvider(t, http.StatusOK, `{"choices":[{"message":{"content":"  The term is 12 months.  "}}]}`)
	c := testClient(srv.URL)

	answer, err := c.Ask(context.Background(), Request{
		Role:      "buyer",
		Mode:      ModeExtended,
		Question:  "What is the term?",
		Documents: []docpipe.ParsedDocument{{Name: "c.pdf", Text: "=== PAGE 1 ===\n12 months"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if answer != "The term is 12 months." {
		t.Errorf("answer = %q", answer)
	}
	if hdr.Get("Authorization") != "Bearer sk-test" {
		t.Errorf("Authorization = %q", hdr.Get("Authorization"))
	}
	if got.Model != "gpt-test" || got.Temperature != 0.2 {
		t.Errorf("model/temperature = %q/%v", got.Model, got.Temperature)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("messages = %+v", got.Messages)
	}
	if got.Messages[0].Role != openai.ChatMessageRoleSystem || got.Messages[1].Role != openai.ChatMessageRoleUser {
		t.Errorf("roles = %q, %q", got.Messages[0].Role, got.Messages[1].Role)
	}
	if !strings.Contains(got.Messages[0].Content, "User role: buyer.") {
		t.Errorf("system = %q", got.Messages[0].Content)
	}
	if want := "Document: c.pdf\n=== PAGE 1 ===\n12 months\n\nQuestion: What is the term?"; got.Messages[1].Content != want {
		t.Errorf("user = %q", got.Messages[1].Content)
	}
}

func TestClient_ImprovePrompt(t *testing.T) {
	srv, got, _ := fakeProvider(t, http.StatusOK, `{"choices":[{"message":{"content":"better prompt"}}]}`)
	c := testClient(srv.URL)

	out, err := c.ImprovePrompt(context.Background(), "auditor", "check it")
	if err != nil {
		t.Fatal(err)
	}
	if out != "better prompt" {
		t.Errorf("out = %q", out)
	}
	if got.Temperature != 0.3 {
		t.Errorf("temperature = %v", got.Temperature)
	}
	if got.Messages[1].Content != "Role: auditor\nPrompt: check it" {
		t.Errorf("user = %q", got.Messages[1].Content)
	}
}

func TestClient_ZeroTemperatureSent(t *testing.T) {
	// WHAT: a configured temperature of 0 reaches the provider as a near-zero value.
	// WHY: an omitted temperature falls back to the provider default, usually 1.
	srv, got, _ := fakeProvider(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "m", AskTemperature: Temperature(0)}, nil)

	if _, err := c.Ask(context.Background(), Request{Role: "r", Mode: ModeShort, Question: "q"}); err != nil {
		t.Fatal(err)
	}
	if got.Temperature <= 0 || got.Temperature > 1e-6 {
		t.Errorf("temperature = %v, want a near-zero positive value", got.Temperature)
	}
}

func TestClient_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`},
		{"not json", http.StatusOK, `<html>`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := fakeProvider(t, tt.status, tt.body)
			_, err := testClient(srv.URL).Ask(context.Background(), Request{Role: "r", Mode: ModeShort, Question: "q"})
			if !errors.Is(err, ErrUpstream) {
				t.Fatalf("expected ErrUpstream, got %v", err)
			}
			if errors.Is(err, ErrConfiguration) {
				t.Fatal("upstream failure must not look like a configuration error")
			}
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := testClient(url).ImprovePrompt(context.Background(), "r", "p")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "m", Timeout: 50 * time.Millisecond}, nil)
	_, err := c.Ask(context.Background(), Request{Role: "r", Mode: ModeShort, Question: "q"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestClient_ResponseTooLarge(t *testing.T) {
	big := `{"choices":[{"message":{"content":"` + strings.Repeat("x", 2048) + `"}}]}`
	srv, _, _ := fakeProvider(t, http.StatusOK, big)

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "m", MaxResponseBytes: 1024}, nil)
	if _, err := c.Ask(context.Background(), Request{Role: "r", Mode: ModeShort, Question: "q"}); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}
