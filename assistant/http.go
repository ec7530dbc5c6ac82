package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/docqa/answer"
	"github.com/hazyhaar/docqa/docpipe"
	"github.com/hazyhaar/docqa/feedback"
	"github.com/hazyhaar/docqa/horosafe"
	"github.com/hazyhaar/docqa/session"
	"github.com/hazyhaar/docqa/shield"
)

// Version is reported by /api/health and the MCP server.
const Version = "1.0.0"

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// Handler returns the HTTP API: the JSON routes under /api, /metrics when
// metrics are enabled and the MCP streamable endpoint at /mcp.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack() {
		r.Use(mw)
	}

	r.Route("/api", func(r chi.Router) {
		// handleUpload sets its own, larger cap.
		r.Post("/upload", s.handleUpload)

		r.Group(func(r chi.Router) {
			r.Use(shield.MaxBody(maxJSONBody))
			r.Get("/health", s.handleHealth)
			r.Get("/env-check", s.handleEnvCheck)
			r.Post("/chat", s.handleChat)
			r.Post("/prompt/improve", s.handleImprove)
			r.Post("/rating", s.handleRating)
			r.Get("/ratings", s.handleRatings)
			r.Get("/documents", s.handleDocuments)
		})
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "docqa", Version: Version}, nil)
	s.RegisterMCP(mcpSrv)
	s.pipeline.RegisterMCP(mcpSrv)
	r.With(shield.MaxBody(maxJSONBody)).Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil))

	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version, "model": s.answerer.Model()})
}

func (s *Service) handleEnvCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.EnvCheck())
}

type uploadResponse struct {
	SessionID string                   `json:"session_id"`
	Documents []docpipe.ParsedDocument `json:"documents"`
}

func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")

	// Room for every file plus multipart framing.
	limit := int64(s.cfg.MaxFiles)*s.cfg.MaxFileSize + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.fail(w, r, fmt.Errorf("%w: multipart form: %w", ErrValidation, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) < 1 || len(headers) > s.cfg.MaxFiles {
		s.fail(w, r, fmt.Errorf("%w: upload between 1 and %d files", ErrValidation, s.cfg.MaxFiles))
		return
	}

	files := make([]UploadFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > s.cfg.MaxFileSize {
			s.fail(w, r, fmt.Errorf("%w: file %s exceeds %d MB", ErrValidation, fh.Filename, s.cfg.MaxFileSize>>20))
			return
		}
		f, err := fh.Open()
		if err != nil {
			s.fail(w, r, fmt.Errorf("assistant: open part %s: %w", fh.Filename, err))
			return
		}
		data, err := horosafe.LimitedReadAll(f, s.cfg.MaxFileSize)
		f.Close()
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: file %s: %v", ErrValidation, fh.Filename, err))
			return
		}
		files = append(files, UploadFile{Name: fh.Filename, Data: data})
	}

	docs, err := s.Upload(r.Context(), sessionID, files)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{SessionID: sessionID, Documents: docs})
}

func (s *Service) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.Chat(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleImprove(w http.ResponseWriter, r *http.Request) {
	var req ImproveRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.ImprovePrompt(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleRating(w http.ResponseWriter, r *http.Request) {
	var req RatingRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.Rate(r.Context(), req); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleRatings(w http.ResponseWriter, r *http.Request) {
	ratings, err := s.Ratings(r.Context(), queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ratings": ratings})
}

func (s *Service) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.Documents(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// decode reads a JSON body into dst, answering 400 or 413 itself on failure.
func (s *Service) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", mbe.Limit))
	case errors.Is(err, io.EOF):
		writeError(w, http.StatusBadRequest, errors.New("empty request body"))
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
	}
	return false
}

// fail maps err to a status code and logs server-side failures.
func (s *Service) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= 500 {
		shield.GetLogger(r.Context()).Error("assistant.request.failed", "status", code, "error", err)
	}
	writeError(w, code, err)
}

func statusFor(err error) int {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, docpipe.ErrParseFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNoDocuments),
		errors.Is(err, answer.ErrInvalidMode),
		errors.Is(err, feedback.ErrInvalidRating),
		errors.Is(err, docpipe.ErrTooLarge),
		errors.Is(err, session.ErrEmptyID):
		return http.StatusBadRequest
	case errors.Is(err, ErrRatingsUnavailable):
		return http.StatusNotFound
	case errors.Is(err, answer.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
