package docpipe

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalize_PagesVerbatim(t *testing.T) {
	// WHAT: Under the bound, every page appears verbatim after its 1-based marker, in order.
	// WHY: Page markers are what the model cites in "full" answers.
	tests := []struct {
		name  string
		pages []string
		want  string
	}{
		{"single", []string{"Hello"}, "=== PAGE 1 ===\nHello"},
		{"two", []string{"one", "two"}, "=== PAGE 1 ===\none\n\n=== PAGE 2 ===\ntwo"},
		{"empty page", []string{"a", "", "c"}, "=== PAGE 1 ===\na\n\n=== PAGE 2 ===\n\n=== PAGE 3 ===\nc"},
		{"only empty", []string{""}, "=== PAGE 1 ==="},
		{"trailing space trimmed", []string{"x  \n"}, "=== PAGE 1 ===\nx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.pages, DefaultMaxChars); got != tt.want {
				t.Errorf("Normalize = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize_OrderAndMarkers(t *testing.T) {
	pages := make([]string, 12)
	for i := range pages {
		pages[i] = fmt.Sprintf("content of page %d", i+1)
	}
	got := Normalize(pages, DefaultMaxChars)

	last := -1
	for i, p := range pages {
		block := fmt.Sprintf("=== PAGE %d ===\n%s", i+1, p)
		idx := strings.Index(got, block)
		if idx < 0 {
			t.Fatalf("block %d missing", i+1)
		}
		if idx <= last {
			t.Fatalf("block %d out of order", i+1)
		}
		last = idx
	}
}

func TestNormalize_Truncates(t *testing.T) {
	// WHAT: Over the bound, the result fits maxChars and ends with the marker.
	pages := []string{strings.Repeat("A", 120000), strings.Repeat("B", 120000)}
	got := Normalize(pages, 1000)

	if !strings.HasSuffix(got, TruncationMarker) {
		t.Fatal("expected truncation marker")
	}
	if n := utf8.RuneCountInString(got); n > 1000 {
		t.Fatalf("len = %d, want <= 1000", n)
	}
	wantLen := 1000 - truncationReserve + utf8.RuneCountInString(TruncationMarker)
	if n := utf8.RuneCountInString(got); n != wantLen {
		t.Errorf("len = %d, want %d", n, wantLen)
	}
	if !strings.HasPrefix(got, "=== PAGE 1 ===\nAAAA") {
		t.Errorf("unexpected prefix %q", got[:20])
	}
}

func TestNormalize_DefaultBound(t *testing.T) {
	pages := []string{strings.Repeat("x", DefaultMaxChars)}
	got := Normalize(pages, 0)
	if n := utf8.RuneCountInString(got); n > DefaultMaxChars {
		t.Fatalf("len = %d, want <= %d", n, DefaultMaxChars)
	}
	if !strings.HasSuffix(got, TruncationMarker) {
		t.Fatal("expected truncation marker")
	}
}

func TestNormalize_TinyBound(t *testing.T) {
	// WHAT: A bound smaller than the reserve still yields a marker-terminated string within the bound.
	for _, limit := range []int{18, 50, 150, 199} {
		got := Normalize([]string{strings.Repeat("z", 500)}, limit)
		if !strings.HasSuffix(got, TruncationMarker) {
			t.Errorf("limit=%d: expected marker, got %q", limit, got)
		}
		if n := utf8.RuneCountInString(got); n > limit {
			t.Errorf("limit=%d: len = %d", limit, n)
		}
	}
}

func TestNormalize_BoundBelowMarker(t *testing.T) {
	// WHAT: A bound shorter than the marker is raised to the marker length.
	// WHY: The marker itself must fit, so the output is exactly the marker.
	markerLen := utf8.RuneCountInString(TruncationMarker)
	for _, limit := range []int{1, 5, 10, markerLen - 1} {
		got := Normalize([]string{strings.Repeat("z", 500)}, limit)
		if got != TruncationMarker {
			t.Errorf("limit=%d: got %q, want the bare marker", limit, got)
		}
	}
	if got := Normalize([]string{"ab"}, 5); got != "=== PAGE 1 ===\nab" {
		t.Errorf("short text under a raised bound = %q", got)
	}
}

func TestNormalize_CountsRunes(t *testing.T) {
	// WHAT: The bound counts characters, so multi-byte text is not cut mid-rune.
	page := strings.Repeat("é", 900)
	got := Normalize([]string{page}, 1000)
	if !utf8.ValidString(got) {
		t.Fatal("result is not valid UTF-8")
	}
	if strings.HasSuffix(got, TruncationMarker) {
		t.Fatal("915 runes fit in 1000, no truncation expected")
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	pages := []string{strings.Repeat("lorem ipsum ", 500), "tail"}
	a := Normalize(pages, 2000)
	b := Normalize(pages, 2000)
	if a != b {
		t.Fatal("Normalize is not deterministic")
	}
}
