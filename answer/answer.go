// Package answer builds prompts from parsed documents and sends them to an
// OpenAI-compatible chat completions endpoint.
//
// Two Answerer implementations exist: Client talks to the provider, Stub
// answers deterministically without network access. New picks one from the
// configuration.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/docqa/docpipe"
)

var (
	// ErrConfiguration is returned by New when live mode lacks a key, base
	// URL or model.
	ErrConfiguration = errors.New("answer: configuration error")

	// ErrUpstream wraps every transport or provider failure of a live call.
	ErrUpstream = errors.New("answer: upstream failure")

	// ErrInvalidMode is returned by ParseMode for unknown answer modes.
	ErrInvalidMode = errors.New("answer: invalid mode")
)

// Mode selects answer verbosity.
type Mode string

const (
	ModeShort    Mode = "short"
	ModeExtended Mode = "extended"
	ModeFull     Mode = "full"
)

// ParseMode validates a user-supplied mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeShort, ModeExtended, ModeFull:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (want short, extended or full)", ErrInvalidMode, s)
}

// Request is everything needed to answer one question.
type Request struct {
	Role      string
	Mode      Mode
	Question  string
	Documents []docpipe.ParsedDocument
}

// Answerer answers questions about documents and rewrites user prompts.
type Answerer interface {
	Ask(ctx context.Context, req Request) (string, error)
	ImprovePrompt(ctx context.Context, role, prompt string) (string, error)
	Model() string
}

// New resolves cfg once and returns the matching Answerer. In live mode a
// missing key, base URL or model yields ErrConfiguration.
func New(cfg Config, logger *slog.Logger) (Answerer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Stub {
		logger.Info("answer.stub.enabled")
		return Stub{}, nil
	}
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewClient(cfg, logger), nil
}
