// Package session maps a client-chosen session id to the documents of its
// latest upload.
//
// A session is created lazily by the first Replace. Each Replace swaps the
// whole batch; readers observe either the previous batch or the new one,
// never a mix.
package session

import (
	"context"
	"errors"

	"github.com/hazyhaar/docqa/docpipe"
)

// ErrEmptyID is returned when the session id is empty.
var ErrEmptyID = errors.New("session: empty id")

// Store holds one document batch per session id.
type Store interface {
	// Get returns a copy of the session's documents. ok is false when the
	// session has never been written (or has expired).
	Get(ctx context.Context, id string) (docs []docpipe.ParsedDocument, ok bool, err error)

	// Replace atomically substitutes the session's documents.
	Replace(ctx context.Context, id string, docs []docpipe.ParsedDocument) error

	Close() error
}

func cloneDocs(docs []docpipe.ParsedDocument) []docpipe.ParsedDocument {
	out := make([]docpipe.ParsedDocument, len(docs))
	copy(out, docs)
	return out
}
