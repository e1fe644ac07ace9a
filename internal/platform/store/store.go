// Package store keeps each entity type as an in-memory ordered sequence that
// is loaded from, and flushed back to, a pluggable Backend.
//
// Backends only see rows of strings. A Codec converts between rows and the
// typed records, so the same flat-file layout is used whether the rows end up
// in CSV files, SQLite, PostgreSQL or memory.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrNotFound      = errors.New("record not found")
	ErrUnknownEntity = errors.New("unknown entity")
	ErrShortRow      = errors.New("row has too few columns")
)

// ---------------------------------------------------------------------------
// Entities
// ---------------------------------------------------------------------------

// Entity names a record collection. The value doubles as the CSV file stem
// and the SQL bucket name.
type Entity string

const (
	Patients      Entity = "patients"
	Clinicians    Entity = "clinicians"
	Staff         Entity = "staff"
	Appointments  Entity = "appointments"
	Prescriptions Entity = "prescriptions"
	Referrals     Entity = "referrals"
)

// AllEntities lists every collection in load order.
var AllEntities = []Entity{Patients, Clinicians, Staff, Appointments, Prescriptions, Referrals}

// Valid reports whether e is one of the known collections.
func (e Entity) Valid() bool {
	for _, known := range AllEntities {
		if e == known {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Contracts
// ---------------------------------------------------------------------------

// Backend persists rows for an entity. Save replaces everything stored for
// the entity; Append adds a single row after the existing ones. Load never
// returns the header row.
type Backend interface {
	Load(ctx context.Context, entity Entity) ([][]string, error)
	Save(ctx context.Context, entity Entity, header []string, rows [][]string) error
	Append(ctx context.Context, entity Entity, header []string, row []string) error
}

// Codec maps a record type onto a fixed column layout.
type Codec[T any] interface {
	Entity() Entity
	Header() []string
	Encode(rec T) []string
	Decode(row []string) (T, error)
	Key(rec T) string
}

// TrimColumns returns a copy of row with the listed columns stripped of
// surrounding whitespace. Codecs apply it to id, date and enum columns so
// hand-edited files still decode; free-text columns are kept verbatim.
func TrimColumns(row []string, cols ...int) []string {
	out := append([]string(nil), row...)
	for _, i := range cols {
		if i < len(out) {
			out[i] = strings.TrimSpace(out[i])
		}
	}
	return out
}

// CheckColumns returns ErrShortRow when row has fewer than n columns.
func CheckColumns(row []string, n int) error {
	if len(row) < n {
		return fmt.Errorf("%w: got %d, need %d", ErrShortRow, len(row), n)
	}
	return nil
}
