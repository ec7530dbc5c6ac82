// Package assistant ties document extraction, session storage, answering
// and rating together behind one Service, exposed over HTTP and MCP.
//
// An upload replaces the session's documents as a whole: if any file fails
// validation or extraction the session keeps its previous batch.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hazyhaar/docqa/answer"
	"github.com/hazyhaar/docqa/docpipe"
	"github.com/hazyhaar/docqa/feedback"
	"github.com/hazyhaar/docqa/horosafe"
	"github.com/hazyhaar/docqa/idgen"
	"github.com/hazyhaar/docqa/kit"
	"github.com/hazyhaar/docqa/observability"
	"github.com/hazyhaar/docqa/session"
)

// Service is the document question-answering service.
type Service struct {
	cfg      *Config
	pipeline *docpipe.Pipeline
	store    session.Store
	answerer answer.Answerer
	ratings  feedback.Sink
	metrics  *observability.Metrics
	logger   *slog.Logger
	schemas  *validator

	newUploadID  idgen.Generator
	newMessageID idgen.Generator
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records service activity in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMessageIDGenerator replaces the UUIDv7 generator used for chat
// message ids.
func WithMessageIDGenerator(gen idgen.Generator) Option {
	return func(s *Service) { s.newMessageID = gen }
}

// New builds a Service. cfg is finalized (defaults applied, validated).
func New(cfg *Config, store session.Store, answerer answer.Answerer, ratings feedback.Sink, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	if store == nil || answerer == nil || ratings == nil {
		return nil, fmt.Errorf("assistant: store, answerer and ratings are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	schemas, err := newValidator()
	if err != nil {
		return nil, err
	}
	s := &Service{
		cfg: cfg,
		pipeline: docpipe.New(docpipe.Config{
			MaxFileSize: cfg.MaxFileSize,
			MaxChars:    cfg.MaxChars,
			Logger:      logger,
		}),
		store:        store,
		answerer:     answerer,
		ratings:      ratings,
		logger:       logger,
		schemas:      schemas,
		newUploadID:  idgen.NanoID(12),
		newMessageID: idgen.UUIDv7(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Pipeline returns the extraction pipeline used for uploads.
func (s *Service) Pipeline() *docpipe.Pipeline { return s.pipeline }

// --- upload ---

// UploadFile is one file of an upload batch.
type UploadFile struct {
	Name string // client-supplied file name, used as the document name
	Data []byte
}

// Upload stores the raw files under the uploads directory, extracts each
// one and replaces the session's documents with the result.
func (s *Service) Upload(ctx context.Context, sessionID string, files []UploadFile) ([]docpipe.ParsedDocument, error) {
	start := time.Now()
	docs, err := s.upload(ctx, sessionID, files)
	outcome := "ok"
	switch {
	case errors.Is(err, docpipe.ErrParseFailure):
		outcome = "parse_failure"
	case errors.Is(err, ErrValidation):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	s.metrics.Upload(outcome)

	log := s.logger.With("session_id", sessionID, "files", len(files), "elapsed_ms", time.Since(start).Milliseconds())
	if err != nil {
		log.Warn("assistant.upload.failed", "outcome", outcome, "error", err)
		return nil, err
	}
	log.Info("assistant.upload.ok", "documents", len(docs))
	return docs, nil
}

func (s *Service) upload(ctx context.Context, sessionID string, files []UploadFile) ([]docpipe.ParsedDocument, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrValidation)
	}
	if len(files) < 1 || len(files) > s.cfg.MaxFiles {
		return nil, fmt.Errorf("%w: upload between 1 and %d files", ErrValidation, s.cfg.MaxFiles)
	}
	for _, f := range files {
		if int64(len(f.Data)) > s.cfg.MaxFileSize {
			return nil, fmt.Errorf("%w: file %s exceeds %d MB", ErrValidation, f.Name, s.cfg.MaxFileSize>>20)
		}
	}

	dir := s.cfg.UploadsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("assistant: uploads dir: %w", err)
	}

	docs := make([]docpipe.ParsedDocument, 0, len(files))
	for _, f := range files {
		if err := s.storeUpload(dir, f); err != nil {
			return nil, err
		}
		doc, err := s.pipeline.Extract(ctx, f.Name, f.Data)
		if err != nil {
			if errors.Is(err, docpipe.ErrParseFailure) {
				s.metrics.ExtractionFailure(string(docpipe.Detect(f.Name)))
			}
			return nil, err
		}
		s.metrics.Document(string(doc.Format), len(doc.Pages))
		docs = append(docs, *doc)
	}

	if err := s.store.Replace(ctx, sessionID, docs); err != nil {
		return nil, fmt.Errorf("assistant: store session: %w", err)
	}
	return docs, nil
}

// storeUpload writes f to dir as "<id>_<sanitized name>".
func (s *Service) storeUpload(dir string, f UploadFile) error {
	name, err := horosafe.SanitizeFilename(f.Name)
	if err != nil {
		return fmt.Errorf("%w: file name %q: %v", ErrValidation, f.Name, err)
	}
	path, err := horosafe.SafePath(dir, s.newUploadID()+"_"+name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return fmt.Errorf("assistant: write upload: %w", err)
	}
	return nil
}

// --- chat ---

// ChatRequest is a question about the session's documents.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Role      string `json:"role"`
	Mode      string `json:"mode"`
}

// ChatResponse carries the answer and the id under which it can be rated.
type ChatResponse struct {
	MessageID string `json:"message_id"`
	Answer    string `json:"answer"`
}

// Chat answers req.Message from the documents last uploaded to the session.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := check(s.schemas.chat, req); err != nil {
		return nil, err
	}
	mode, err := answer.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	docs, ok, err := s.store.Get(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("assistant: load session: %w", err)
	}
	if !ok || len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	start := time.Now()
	text, err := s.answerer.Ask(ctx, answer.Request{
		Role:      req.Role,
		Mode:      mode,
		Question:  req.Message,
		Documents: docs,
	})
	s.metrics.Request("chat", outcomeOf(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return &ChatResponse{MessageID: s.newMessageID(), Answer: text}, nil
}

// --- prompt improvement ---

// ImproveRequest asks for a rewrite of a user prompt.
type ImproveRequest struct {
	Prompt string `json:"prompt"`
	Role   string `json:"role"`
}

type ImproveResponse struct {
	ImprovedPrompt string `json:"improved_prompt"`
}

func (s *Service) ImprovePrompt(ctx context.Context, req ImproveRequest) (*ImproveResponse, error) {
	if err := check(s.schemas.improve, req); err != nil {
		return nil, err
	}
	start := time.Now()
	text, err := s.answerer.ImprovePrompt(ctx, req.Role, req.Prompt)
	s.metrics.Request("improve", outcomeOf(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return &ImproveResponse{ImprovedPrompt: text}, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, answer.ErrUpstream):
		return "upstream_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}

// --- ratings ---

// RatingRequest is a thumbs up or down on one answer.
type RatingRequest struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Rating    string `json:"rating"`
	Role      string `json:"role"`
	Mode      string `json:"mode"`
	Question  string `json:"question"`
}

// Rate appends req to the rating sink. The client address comes from the
// request context and is "unknown" when absent.
func (s *Service) Rate(ctx context.Context, req RatingRequest) error {
	if err := check(s.schemas.rating, req); err != nil {
		return err
	}
	value, err := feedback.ParseValue(req.Rating)
	if err != nil {
		return err
	}
	ip := kit.GetRemoteAddr(ctx)
	if ip == "" {
		ip = "unknown"
	}
	err = s.ratings.Append(ctx, feedback.Rating{
		SessionID: req.SessionID,
		MessageID: req.MessageID,
		Rating:    value,
		Role:      req.Role,
		Mode:      req.Mode,
		Question:  req.Question,
		IP:        ip,
	})
	if err != nil {
		return fmt.Errorf("assistant: record rating: %w", err)
	}
	s.metrics.Rating(string(value))
	return nil
}

// Ratings lists recent ratings, newest first, when the sink can list.
func (s *Service) Ratings(ctx context.Context, limit, offset int) ([]feedback.Rating, error) {
	l, ok := s.ratings.(feedback.Lister)
	if !ok {
		return nil, ErrRatingsUnavailable
	}
	return l.List(ctx, limit, offset)
}

// --- documents ---

// DocumentSummary describes one stored document without its text.
type DocumentSummary struct {
	Name     string         `json:"name"`
	Format   docpipe.Format `json:"format"`
	Pages    int            `json:"pages"`
	Chars    int            `json:"chars"`
	NeedsOCR bool           `json:"needs_ocr,omitempty"`
}

// Documents summarizes the session's current batch. An unknown session has
// no documents.
func (s *Service) Documents(ctx context.Context, sessionID string) ([]DocumentSummary, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrValidation)
	}
	docs, _, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("assistant: load session: %w", err)
	}
	out := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, DocumentSummary{
			Name:     d.Name,
			Format:   d.Format,
			Pages:    len(d.Pages),
			Chars:    len([]rune(d.Text)),
			NeedsOCR: d.Quality != nil && d.Quality.NeedsOCR(),
		})
	}
	return out, nil
}

// --- env check ---

// EnvCheck reports the provider settings with the API key masked.
func (s *Service) EnvCheck() map[string]string {
	return map[string]string{
		"OPENAI_API_KEY": Mask(s.cfg.LLM.APIKey),
		"OPENAI_SERVER":  s.cfg.LLM.BaseURL,
		"OPENAI_MODEL":   s.cfg.LLM.Model,
	}
}

// Mask keeps the first and last two characters of a secret: "ab***yz".
// The empty string stays empty.
func Mask(v string) string {
	if v == "" {
		return ""
	}
	r := []rune(v)
	return string(r[:min(2, len(r))]) + "***" + string(r[max(len(r)-2, 0):])
}
