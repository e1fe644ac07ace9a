// Package postgres stores record rows in PostgreSQL through a pgx pool. The
// tables are created by the migrations in platform/db.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/store"
)

var _ store.Backend = (*Backend)(nil)

// Backend keeps one row per record with the columns in a TEXT[].
type Backend struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Backend {
	return &Backend{pool: pool}
}

// Load returns the rows for entity in position order. An entity with no
// stored header behaves like a missing file.
func (b *Backend) Load(ctx context.Context, entity store.Entity) ([][]string, error) {
	if !entity.Valid() {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownEntity, entity)
	}

	var header []string
	err := b.pool.QueryRow(ctx, `SELECT columns FROM record_headers WHERE entity = $1`, string(entity)).Scan(&header)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", entity, os.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("select header: %w", err)
	}

	rows, err := b.pool.Query(ctx, `SELECT columns FROM record_rows WHERE entity = $1 ORDER BY position`, string(entity))
	if err != nil {
		return nil, fmt.Errorf("select rows: %w", err)
	}
	defer rows.Close()

	out := make([][]string, 0)
	for rows.Next() {
		var cols []string
		if err := rows.Scan(&cols); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", entity, err)
		}
		out = append(out, cols)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Save replaces every row of entity in one transaction.
func (b *Backend) Save(ctx context.Context, entity store.Entity, header []string, rows [][]string) error {
	if !entity.Valid() {
		return fmt.Errorf("%w: %s", store.ErrUnknownEntity, entity)
	}
	return pgx.BeginFunc(ctx, b.pool, func(tx pgx.Tx) error {
		if err := putHeader(ctx, tx, entity, header); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM record_rows WHERE entity = $1`, string(entity)); err != nil {
			return fmt.Errorf("clear %s: %w", entity, err)
		}

		batch := &pgx.Batch{}
		for i, row := range rows {
			batch.Queue(`INSERT INTO record_rows (entity, position, columns) VALUES ($1, $2, $3)`, string(entity), i, row)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert %s rows: %w", entity, err)
		}
		return nil
	})
}

// Append adds row after the last stored row of entity.
func (b *Backend) Append(ctx context.Context, entity store.Entity, header []string, row []string) error {
	if !entity.Valid() {
		return fmt.Errorf("%w: %s", store.ErrUnknownEntity, entity)
	}
	return pgx.BeginFunc(ctx, b.pool, func(tx pgx.Tx) error {
		if err := putHeader(ctx, tx, entity, header); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO record_rows (entity, position, columns)
			 SELECT $1, COALESCE(MAX(position) + 1, 0), $2 FROM record_rows WHERE entity = $1`,
			string(entity), row,
		); err != nil {
			return fmt.Errorf("append %s row: %w", entity, err)
		}
		return nil
	})
}

func putHeader(ctx context.Context, tx pgx.Tx, entity store.Entity, header []string) error {
	if header == nil {
		header = []string{}
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO record_headers (entity, columns) VALUES ($1, $2)
		 ON CONFLICT (entity) DO UPDATE SET columns = EXCLUDED.columns`,
		string(entity), header,
	); err != nil {
		return fmt.Errorf("upsert %s header: %w", entity, err)
	}
	return nil
}
