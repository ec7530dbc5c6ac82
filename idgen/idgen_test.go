package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNanoID(t *testing.T) {
	// WHAT: NanoID yields IDs of the requested length over [0-9a-z].
	// WHY: upload prefixes end up in file names on disk.
	gen := NanoID(12)
	seen := make(map[string]bool)
	for range 200 {
		id := gen()
		if len(id) != 12 {
			t.Fatalf("len = %d, want 12", len(id))
		}
		for _, c := range id {
			if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", c) {
				t.Fatalf("unexpected rune %q in %q", c, id)
			}
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestUUIDv7(t *testing.T) {
	id := UUIDv7()()
	u, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("parse %q: %v", id, err)
	}
	if u.Version() != 7 {
		t.Fatalf("version = %d, want 7", u.Version())
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for range 50 {
		next := gen()
		if next <= prev {
			t.Fatalf("ids not increasing: %q then %q", prev, next)
		}
		prev = next
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("rat_", NanoID(8))
	id := gen()
	if !strings.HasPrefix(id, "rat_") {
		t.Fatalf("id %q missing prefix", id)
	}
	if len(id) != len("rat_")+8 {
		t.Fatalf("len = %d", len(id))
	}
}

func TestNew(t *testing.T) {
	if _, err := uuid.Parse(New()); err != nil {
		t.Fatalf("New() not a UUID: %v", err)
	}
}
