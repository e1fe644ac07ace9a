package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CSVBackend keeps one comma-separated file per entity under Dir, named
// "<entity>.csv". The first line of every file is a header row.
//
// Writes are plain truncate-and-rewrite; there is no temp file, lock or
// fsync.
type CSVBackend struct {
	Dir string
}

// NewCSVBackend returns a backend rooted at dir.
func NewCSVBackend(dir string) *CSVBackend {
	return &CSVBackend{Dir: dir}
}

// Path returns the file backing entity.
func (b *CSVBackend) Path(entity Entity) string {
	return filepath.Join(b.Dir, string(entity)+".csv")
}

// Load reads every data row of the entity file, skipping the header. Fields
// are trimmed of surrounding whitespace.
func (b *CSVBackend) Load(ctx context.Context, entity Entity) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(b.Path(entity))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	first := true
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", b.Path(entity), err)
		}
		if first {
			first = false
			continue
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// Save overwrites the entity file with header followed by rows.
func (b *CSVBackend) Save(ctx context.Context, entity Entity, header []string, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.Create(b.Path(entity))
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Append writes a single row at the end of the entity file. A new or empty
// file gets the header first so the row is not mistaken for one on reload.
func (b *CSVBackend) Append(ctx context.Context, entity Entity, header []string, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.OpenFile(b.Path(entity), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Write(row); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
