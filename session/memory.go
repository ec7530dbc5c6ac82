package session

import (
	"context"
	"sync"

	"github.com/hazyhaar/docqa/docpipe"
)

// Memory is a process-local Store. Sessions never expire and are lost on
// restart.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]docpipe.ParsedDocument
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string][]docpipe.ParsedDocument)}
}

func (m *Memory) Get(_ context.Context, id string) ([]docpipe.ParsedDocument, bool, error) {
	if id == "" {
		return nil, false, ErrEmptyID
	}
	m.mu.RLock()
	docs, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return cloneDocs(docs), true, nil
}

func (m *Memory) Replace(_ context.Context, id string, docs []docpipe.ParsedDocument) error {
	if id == "" {
		return ErrEmptyID
	}
	batch := cloneDocs(docs)
	m.mu.Lock()
	m.sessions[id] = batch
	m.mu.Unlock()
	return nil
}

// Len returns the number of sessions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Memory) Close() error { return nil }
