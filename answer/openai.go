package answer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hazyhaar/docqa/horosafe"
)

// Client calls an OpenAI-compatible chat-completions endpoint. One attempt
// per call, no retry.
type Client struct {
	cfg Config
	api *openai.Client
	log *slog.Logger
}

// NewClient builds a live client. cfg is expected to be validated; New does
// that.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &limitTransport{base: http.DefaultTransport, max: cfg.MaxResponseBytes},
	}
	return &Client{
		cfg: cfg,
		api: openai.NewClientWithConfig(oc),
		log: logger,
	}
}

func (c *Client) Model() string { return c.cfg.Model }

// Ask sends the document context and question with the mode's system prompt.
func (c *Client) Ask(ctx context.Context, req Request) (string, error) {
	rid := uuid.New().String()
	c.log.Info("answer.ask.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"role", req.Role,
		"mode", req.Mode,
		"documents", len(req.Documents),
		"question_len", len(req.Question),
	)
	return c.complete(ctx, rid, "ask", askMessages(req), *c.cfg.AskTemperature)
}

// ImprovePrompt asks the model to rewrite prompt for role.
func (c *Client) ImprovePrompt(ctx context.Context, role, prompt string) (string, error) {
	rid := uuid.New().String()
	c.log.Info("answer.improve.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"role", role,
		"prompt_len", len(prompt),
	)
	return c.complete(ctx, rid, "improve", improveMessages(role, prompt), *c.cfg.ImproveTemperature)
}

func (c *Client) complete(ctx context.Context, rid, op string, msgs []openai.ChatCompletionMessage, temp float64) (string, error) {
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: wireTemperature(temp),
	})
	if err != nil {
		c.log.Error("answer."+op+".http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		c.log.Error("answer."+op+".no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("%w: no choices in response", ErrUpstream)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.log.Info("answer."+op+".ok",
		"req_id", rid,
		"answer_len", len(content),
		"total_tokens", resp.Usage.TotalTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

// wireTemperature maps 0 to the smallest positive float32: the request field
// is omitempty, and an omitted temperature means the provider default.
func wireTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// limitTransport caps every response body at max bytes.
type limitTransport struct {
	base http.RoundTripper
	max  int64
}

func (t *limitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Body = horosafe.LimitReadCloser(resp.Body, t.max)
	return resp, nil
}
