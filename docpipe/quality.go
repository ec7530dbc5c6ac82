package docpipe

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ExtractionQuality describes how much usable text a PDF yielded. It is
// diagnostic only: a poor score never fails an upload.
type ExtractionQuality struct {
	PageCount       int     `json:"page_count"`
	EmptyPages      int     `json:"empty_pages"`
	CharsPerPage    float64 `json:"chars_per_page"`
	PrintableRatio  float64 `json:"printable_ratio"`
	WordlikeRatio   float64 `json:"wordlike_ratio"`
	HasImageStreams bool    `json:"has_image_streams"`
	VisualRefCount  int     `json:"visual_ref_count"`
}

// NeedsOCR reports whether the PDF is probably scanned.
func (q *ExtractionQuality) NeedsOCR() bool {
	return (q.CharsPerPage < 50 && q.HasImageStreams) || q.PrintableRatio < 0.85
}

// HasVisualGap reports whether the text cites figures or tables that live in
// images the extractor cannot read.
func (q *ExtractionQuality) HasVisualGap() bool {
	return q.VisualRefCount > 0 && q.HasImageStreams
}

func measureQuality(pages []string, hasImages bool) *ExtractionQuality {
	q := &ExtractionQuality{
		PageCount:       len(pages),
		HasImageStreams: hasImages,
	}
	total := 0
	for _, p := range pages {
		if p == "" {
			q.EmptyPages++
		}
		total += utf8.RuneCountInString(p)
	}
	if len(pages) > 0 {
		q.CharsPerPage = float64(total) / float64(len(pages))
	}
	full := strings.Join(pages, "\n")
	q.PrintableRatio = printableRatio(full)
	q.WordlikeRatio = wordlikeRatio(full)
	q.VisualRefCount = countVisualRefs(full)
	return q
}

// printableRatio excludes the private use area, U+FFFD and control
// characters other than \n \r \t.
func printableRatio(text string) float64 {
	if text == "" {
		return 1.0
	}
	total, printable := 0, 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	switch {
	case r >= 0xE000 && r <= 0xF8FF:
		return true
	case r == utf8.RuneError:
		return true
	case r < 0x20 && r != '\n' && r != '\r' && r != '\t':
		return true
	}
	return false
}

// wordlikeRatio is the share of whitespace-separated tokens 2 to 15 runes long.
func wordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	wordlike := 0
	for _, f := range fields {
		if n := utf8.RuneCountInString(f); n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(fields))
}

var visualRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(see|refer\s+to|cf\.?)\s+(the\s+)?(figure|fig\.?|table|schema|image|illustration|graph|chart|diagram)\s*\d`),
	regexp.MustCompile(`(?i)(figure|fig\.?|table|chart)\s+\d+`),
}

func countVisualRefs(text string) int {
	count := 0
	for _, pat := range visualRefPatterns {
		count += len(pat.FindAllString(text, -1))
	}
	return count
}
