// Package docpipe turns uploaded files into page-level text.
//
// Dispatch is a lookup table keyed by lower-cased file extension:
//   - .pdf: one page per PDF page (pdfcpu content streams)
//   - .docx, .doc: one page, paragraphs of word/document.xml
//   - .xlsx, .xls: one page, a "Sheet: <name>" block per sheet (excelize)
//   - .odt: one page, paragraphs of content.xml
//   - .html, .htm: one page, converted to Markdown
//   - anything else: one page, raw bytes decoded as UTF-8
//
// Usage:
//
//	pipe := docpipe.New(docpipe.Config{})
//	doc, err := pipe.Extract(ctx, "contract.pdf", data)
//	fmt.Println(doc.Name, len(doc.Pages), "pages")
package docpipe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// result is what a single format extractor produces.
type result struct {
	pages   []string
	quality *ExtractionQuality
}

type extractFunc func(data []byte) (result, error)

// extensions maps a lower-cased extension to its format. Extensions absent
// from this table are treated as plain text.
var extensions = map[string]Format{
	".pdf":      FormatPDF,
	".docx":     FormatDocx,
	".doc":      FormatDocx,
	".xlsx":     FormatXLSX,
	".xls":      FormatXLSX,
	".odt":      FormatODT,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".md":       FormatMD,
	".markdown": FormatMD,
	".txt":      FormatTXT,
}

var extractors = map[Format]extractFunc{
	FormatPDF:  extractPDF,
	FormatDocx: singlePage(extractDocx),
	FormatXLSX: singlePage(extractXLSX),
	FormatODT:  singlePage(extractODT),
	FormatHTML: singlePage(extractHTML),
	FormatMD:   singlePage(extractText),
	FormatTXT:  singlePage(extractText),
}

func singlePage(fn func([]byte) (string, error)) extractFunc {
	return func(data []byte) (result, error) {
		text, err := fn(data)
		if err != nil {
			return result{}, err
		}
		return result{pages: []string{text}}, nil
	}
}

// Pipeline is the document extraction engine.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// MaxChars returns the normalization bound applied to every document.
func (p *Pipeline) MaxChars() int { return p.cfg.MaxChars }

// Detect returns the document format for a file name. It never fails:
// unknown extensions are plain text.
func Detect(name string) Format {
	if f, ok := extensions[strings.ToLower(filepath.Ext(name))]; ok {
		return f
	}
	return FormatTXT
}

// Extract parses data according to the extension of name and returns the
// normalized document. name is kept verbatim as the display name.
func (p *Pipeline) Extract(ctx context.Context, name string, data []byte) (*ParsedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if int64(len(data)) > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(data), p.cfg.MaxFileSize)
	}

	format := Detect(name)
	p.logger.Debug("extracting document", "name", name, "format", format, "bytes", len(data))

	res, err := extractors[format](data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %w", ErrParseFailure, name, format, err)
	}

	pages := res.pages
	if len(pages) == 0 {
		pages = []string{""}
	}

	if res.quality != nil && res.quality.NeedsOCR() {
		p.logger.Warn("pdf likely needs OCR",
			"name", name,
			"pages", res.quality.PageCount,
			"chars_per_page", res.quality.CharsPerPage,
			"has_images", res.quality.HasImageStreams,
		)
	}

	return &ParsedDocument{
		Name:    name,
		Text:    Normalize(pages, p.cfg.MaxChars),
		Pages:   pages,
		Format:  format,
		Quality: res.quality,
	}, nil
}

// ExtractFile reads path and extracts it. Dispatch uses the extension of
// path; displayName defaults to the base name of path.
func (p *Pipeline) ExtractFile(ctx context.Context, path, displayName string) (*ParsedDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, info.Size(), p.cfg.MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if displayName == "" {
		displayName = filepath.Base(path)
	}

	doc, err := p.Extract(ctx, path, data)
	if err != nil {
		return nil, err
	}
	doc.Name = displayName
	return doc, nil
}

// SupportedFormats returns every extension with a dedicated extractor,
// sorted. Other extensions are still accepted as plain text.
func SupportedFormats() []string {
	out := make([]string, 0, len(extensions))
	for ext := range extensions {
		out = append(out, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(out)
	return out
}
