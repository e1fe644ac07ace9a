// Package sqlite stores record rows in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/clinic/clinic/internal/platform/store"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS record_rows (
		entity   TEXT    NOT NULL,
		position INTEGER NOT NULL,
		columns  TEXT    NOT NULL,
		PRIMARY KEY (entity, position)
	)`,
	`CREATE TABLE IF NOT EXISTS record_headers (
		entity  TEXT PRIMARY KEY,
		columns TEXT NOT NULL
	)`,
}

var _ store.Backend = (*Backend)(nil)

// Backend keeps one row per record, the columns encoded as a JSON array.
type Backend struct {
	db *sql.DB
}

// Open creates the database file and schema when missing.
func Open(path string) (*Backend, error) {
	if path == "" {
		path = "clinic.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create record tables: %w", err)
		}
	}
	return &Backend{db: db}, nil
}

// DB exposes the handle for health checks.
func (b *Backend) DB() *sql.DB { return b.db }

func (b *Backend) Close() error { return b.db.Close() }

// Load returns the rows for entity in position order. An entity with no
// stored header behaves like a missing file.
func (b *Backend) Load(ctx context.Context, entity store.Entity) ([][]string, error) {
	if !entity.Valid() {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownEntity, entity)
	}
	var header string
	err := b.db.QueryRowContext(ctx, `SELECT columns FROM record_headers WHERE entity = ?`, string(entity)).Scan(&header)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", entity, os.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("select header: %w", err)
	}

	rows, err := b.db.QueryContext(ctx, `SELECT columns FROM record_rows WHERE entity = ? ORDER BY position`, string(entity))
	if err != nil {
		return nil, fmt.Errorf("select rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([][]string, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var cols []string
		if err := json.Unmarshal([]byte(payload), &cols); err != nil {
			return nil, fmt.Errorf("decode %s row: %w", entity, err)
		}
		out = append(out, cols)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Save replaces every row of entity in one transaction.
func (b *Backend) Save(ctx context.Context, entity store.Entity, header []string, rows [][]string) (retErr error) {
	if !entity.Valid() {
		return fmt.Errorf("%w: %s", store.ErrUnknownEntity, entity)
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if err := putHeader(ctx, tx, entity, header); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM record_rows WHERE entity = ?`, string(entity)); err != nil {
		return fmt.Errorf("clear %s: %w", entity, err)
	}
	for i, row := range rows {
		if err := insertRow(ctx, tx, entity, i, row); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Append adds row after the last stored row of entity.
func (b *Backend) Append(ctx context.Context, entity store.Entity, header []string, row []string) (retErr error) {
	if !entity.Valid() {
		return fmt.Errorf("%w: %s", store.ErrUnknownEntity, entity)
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if err := putHeader(ctx, tx, entity, header); err != nil {
		return err
	}
	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM record_rows WHERE entity = ?`, string(entity),
	).Scan(&next); err != nil {
		return fmt.Errorf("next position: %w", err)
	}
	if err := insertRow(ctx, tx, entity, next, row); err != nil {
		return err
	}
	return tx.Commit()
}

func putHeader(ctx context.Context, tx *sql.Tx, entity store.Entity, header []string) error {
	data, err := json.Marshal(header)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO record_headers(entity, columns) VALUES(?, ?)
		 ON CONFLICT(entity) DO UPDATE SET columns = excluded.columns`,
		string(entity), string(data),
	); err != nil {
		return fmt.Errorf("upsert %s header: %w", entity, err)
	}
	return nil
}

func insertRow(ctx context.Context, tx *sql.Tx, entity store.Entity, pos int, row []string) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO record_rows(entity, position, columns) VALUES(?, ?, ?)`,
		string(entity), pos, string(data),
	); err != nil {
		return fmt.Errorf("insert %s row %d: %w", entity, pos, err)
	}
	return nil
}
