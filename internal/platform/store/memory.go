package store

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// MemoryBackend keeps rows in process memory. It backs tests and the
// "memory" storage mode, and counts writes so callers can assert that an
// operation did or did not persist.
type MemoryBackend struct {
	mu      sync.Mutex
	headers map[Entity][]string
	rows    map[Entity][][]string
	saves   map[Entity]int
	appends map[Entity]int

	// FailWrites makes Save and Append return an error.
	FailWrites bool
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		headers: make(map[Entity][]string),
		rows:    make(map[Entity][][]string),
		saves:   make(map[Entity]int),
		appends: make(map[Entity]int),
	}
}

// Seed stores rows for entity as if they had been persisted earlier.
func (m *MemoryBackend) Seed(entity Entity, rows ...[]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[entity] = cloneRows(rows)
}

// Load returns a copy of the stored rows. An entity that was never written
// behaves like a missing file.
func (m *MemoryBackend) Load(_ context.Context, entity Entity) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.rows[entity]
	if !ok {
		return nil, fmt.Errorf("%s: %w", entity, os.ErrNotExist)
	}
	return cloneRows(rows), nil
}

// Save replaces the rows stored for entity.
func (m *MemoryBackend) Save(_ context.Context, entity Entity, header []string, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("save %s: write refused", entity)
	}
	m.headers[entity] = append([]string(nil), header...)
	m.rows[entity] = cloneRows(rows)
	m.saves[entity]++
	return nil
}

// Append adds one row for entity.
func (m *MemoryBackend) Append(_ context.Context, entity Entity, header []string, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("append %s: write refused", entity)
	}
	if _, ok := m.headers[entity]; !ok {
		m.headers[entity] = append([]string(nil), header...)
	}
	m.rows[entity] = append(m.rows[entity], append([]string(nil), row...))
	m.appends[entity]++
	return nil
}

// Rows returns a copy of what is currently stored for entity.
func (m *MemoryBackend) Rows(entity Entity) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRows(m.rows[entity])
}

// Saves returns how many full rewrites entity has seen.
func (m *MemoryBackend) Saves(entity Entity) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[entity]
}

// Appends returns how many single-row appends entity has seen.
func (m *MemoryBackend) Appends(entity Entity) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appends[entity]
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
