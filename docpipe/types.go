package docpipe

import (
	"errors"
	"log/slog"
)

// Format identifies a document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDocx Format = "docx"
	FormatXLSX Format = "xlsx"
	FormatODT  Format = "odt"
	FormatHTML Format = "html"
	FormatMD   Format = "md"
	FormatTXT  Format = "txt"
)

// ErrParseFailure is returned when a document cannot be read by its format
// library. Unknown extensions never produce it: they fall back to plain text.
var ErrParseFailure = errors.New("docpipe: parse failure")

// ErrTooLarge is returned when the input exceeds Config.MaxFileSize.
var ErrTooLarge = errors.New("docpipe: file too large")

// ParsedDocument is the immutable result of extracting one uploaded file.
type ParsedDocument struct {
	Name    string             `json:"name"`              // display name supplied by the uploader
	Text    string             `json:"text"`              // Normalize(Pages, MaxChars)
	Pages   []string           `json:"pages"`             // source order, never empty
	Format  Format             `json:"format"`            // detected from the extension
	Quality *ExtractionQuality `json:"quality,omitempty"` // PDF only
}

// Config configures the document pipeline.
type Config struct {
	// MaxFileSize is the maximum input size in bytes (default: 10 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// MaxChars bounds ParsedDocument.Text (default: DefaultMaxChars).
	MaxChars int `json:"max_chars" yaml:"max_chars"`

	// Logger for debug/warning messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 10 * 1024 * 1024
	}
	if c.MaxChars <= 0 {
		c.MaxChars = DefaultMaxChars
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
