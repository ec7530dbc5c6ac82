package docpipe

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxChars bounds the normalized text of a single document.
	DefaultMaxChars = 120000

	// TruncationMarker ends every truncated document.
	TruncationMarker = "\n\n[Text truncated]"

	// truncationReserve is the headroom kept below maxChars on truncation.
	truncationReserve = 200
)

// Normalize joins pages into one string, each page preceded by a
// "=== PAGE i ===" marker with 1-based i. If the result exceeds maxChars
// runes it is cut to maxChars-200 runes and TruncationMarker is appended;
// the output never exceeds maxChars. maxChars <= 0 means DefaultMaxChars,
// and a positive bound shorter than the marker is raised to the marker's
// length.
func Normalize(pages []string, maxChars int) string {
	markerLen := utf8.RuneCountInString(TruncationMarker)
	switch {
	case maxChars <= 0:
		maxChars = DefaultMaxChars
	case maxChars < markerLen:
		maxChars = markerLen
	}

	blocks := make([]string, len(pages))
	for i, page := range pages {
		blocks[i] = strings.TrimSpace(fmt.Sprintf("=== PAGE %d ===\n%s", i+1, page))
	}
	combined := strings.TrimSpace(strings.Join(blocks, "\n\n"))

	if utf8.RuneCountInString(combined) <= maxChars {
		return combined
	}

	keep := maxChars - truncationReserve
	if keep < 0 {
		keep = maxChars - markerLen
	}
	return truncateRunes(combined, keep) + TruncationMarker
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
