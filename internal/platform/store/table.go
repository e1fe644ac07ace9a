package store

import (
	"context"
	"fmt"
)

// LoadResult summarises a Table.Load call.
type LoadResult struct {
	Loaded  int
	Skipped int
	// Problems holds one decode error per skipped row, in file order.
	Problems []error
}

// Table is the in-memory ordered sequence for one entity type. Every lookup
// and query is a linear scan. Mutations write through to the backend before
// returning; when the write fails the in-memory change is kept and the error
// is returned.
//
// A Table is not safe for concurrent use.
type Table[T any] struct {
	backend Backend
	codec   Codec[T]
	rows    []T
}

// NewTable returns an empty table bound to backend.
func NewTable[T any](backend Backend, codec Codec[T]) *Table[T] {
	return &Table[T]{backend: backend, codec: codec}
}

// Entity returns the collection this table persists to.
func (t *Table[T]) Entity() Entity { return t.codec.Entity() }

// Header returns the column names in persisted order.
func (t *Table[T]) Header() []string { return t.codec.Header() }

// Load replaces the in-memory sequence with the backend contents. Rows that
// fail to decode are skipped and reported in the result. On a backend error
// the sequence is left empty.
func (t *Table[T]) Load(ctx context.Context) (LoadResult, error) {
	raw, err := t.backend.Load(ctx, t.codec.Entity())
	if err != nil {
		t.rows = nil
		return LoadResult{}, fmt.Errorf("load %s: %w", t.codec.Entity(), err)
	}

	var res LoadResult
	rows := make([]T, 0, len(raw))
	for i, row := range raw {
		rec, err := t.codec.Decode(row)
		if err != nil {
			res.Skipped++
			res.Problems = append(res.Problems, fmt.Errorf("%s row %d: %w", t.codec.Entity(), i+1, err))
			continue
		}
		rows = append(rows, rec)
	}
	t.rows = rows
	res.Loaded = len(rows)
	return res, nil
}

// Len returns the number of records held in memory.
func (t *Table[T]) Len() int { return len(t.rows) }

// All returns a copy of every record in order.
func (t *Table[T]) All() []T {
	out := make([]T, len(t.rows))
	copy(out, t.rows)
	return out
}

// Keys returns every record key in order.
func (t *Table[T]) Keys() []string {
	keys := make([]string, len(t.rows))
	for i, rec := range t.rows {
		keys[i] = t.codec.Key(rec)
	}
	return keys
}

// Get returns the first record whose key equals key.
func (t *Table[T]) Get(key string) (T, bool) {
	return t.Find(func(rec T) bool { return t.codec.Key(rec) == key })
}

// Find returns the first record satisfying match.
func (t *Table[T]) Find(match func(T) bool) (T, bool) {
	for _, rec := range t.rows {
		if match(rec) {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

// Filter returns every record satisfying match, preserving order. The result
// is never nil.
func (t *Table[T]) Filter(match func(T) bool) []T {
	out := make([]T, 0)
	for _, rec := range t.rows {
		if match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Insert appends rec and rewrites the whole collection.
func (t *Table[T]) Insert(ctx context.Context, rec T) error {
	t.rows = append(t.rows, rec)
	return t.Flush(ctx)
}

// InsertAppend appends rec and writes only the new row.
func (t *Table[T]) InsertAppend(ctx context.Context, rec T) error {
	t.rows = append(t.rows, rec)
	if err := t.backend.Append(ctx, t.codec.Entity(), t.codec.Header(), t.codec.Encode(rec)); err != nil {
		return fmt.Errorf("append %s %s: %w", t.codec.Entity(), t.codec.Key(rec), err)
	}
	return nil
}

// Update applies mutate to the first record with the given key and rewrites
// the collection. It reports false, without writing, when no record matches.
func (t *Table[T]) Update(ctx context.Context, key string, mutate func(*T)) (T, bool, error) {
	for i := range t.rows {
		if t.codec.Key(t.rows[i]) != key {
			continue
		}
		mutate(&t.rows[i])
		return t.rows[i], true, t.Flush(ctx)
	}
	var zero T
	return zero, false, nil
}

// Delete removes the first record with the given key and rewrites the
// collection. It reports false, without writing, when no record matches.
func (t *Table[T]) Delete(ctx context.Context, key string) (bool, error) {
	for i := range t.rows {
		if t.codec.Key(t.rows[i]) != key {
			continue
		}
		t.rows = append(t.rows[:i:i], t.rows[i+1:]...)
		return true, t.Flush(ctx)
	}
	return false, nil
}

// Flush rewrites the whole collection: header plus one row per record.
func (t *Table[T]) Flush(ctx context.Context) error {
	if err := t.backend.Save(ctx, t.codec.Entity(), t.codec.Header(), t.Rows()); err != nil {
		return fmt.Errorf("save %s: %w", t.codec.Entity(), err)
	}
	return nil
}

// Rows encodes every record in order.
func (t *Table[T]) Rows() [][]string {
	out := make([][]string, len(t.rows))
	for i, rec := range t.rows {
		out[i] = t.codec.Encode(rec)
	}
	return out
}
