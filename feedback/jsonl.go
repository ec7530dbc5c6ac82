package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONLSink appends ratings to a JSON Lines file. The parent directory is
// created on first use. Appends are serialized.
type JSONLSink struct {
	path string
	mu   sync.Mutex
}

// NewJSONLSink returns a sink writing to path.
func NewJSONLSink(path string) *JSONLSink {
	return &JSONLSink{path: path}
}

// Path returns the log file location.
func (s *JSONLSink) Path() string { return s.path }

func (s *JSONLSink) Append(ctx context.Context, r Rating) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := stamp(&r); err != nil {
		return err
	}
	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("feedback: encode: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("feedback: mkdir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("feedback: open %s: %w", s.path, err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("feedback: write: %w", err)
	}
	return f.Close()
}

func (s *JSONLSink) Close() error { return nil }
