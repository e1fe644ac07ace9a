//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/store"
	"github.com/clinic/clinic/internal/platform/store/postgres"
)

func TestPostgresBackend_MissingEntity(t *testing.T) {
	resetTables(t)
	b := postgres.New(globalPool)

	_, err := b.Load(context.Background(), store.Patients)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
	if _, err := b.Load(context.Background(), store.Entity("wards")); !errors.Is(err, store.ErrUnknownEntity) {
		t.Errorf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestPostgresBackend_SaveAndAppend(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	b := postgres.New(globalPool)
	header := []string{"Id", "Name"}

	if err := b.Save(ctx, store.Clinicians, header, [][]string{{"G1", "Watson"}, {"S1", "House, Greg"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := b.Append(ctx, store.Clinicians, header, []string{"N1", "Nightingale"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := b.Load(ctx, store.Clinicians)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := [][]string{{"G1", "Watson"}, {"S1", "House, Greg"}, {"N1", "Nightingale"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}

	// A full save replaces everything, including appended rows.
	if err := b.Save(ctx, store.Clinicians, header, [][]string{{"S1", "House"}}); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, _ = b.Load(ctx, store.Clinicians)
	if len(got) != 1 || got[0][0] != "S1" {
		t.Errorf("rows after resave = %v", got)
	}

	// Saving nothing still marks the entity as present.
	if err := b.Save(ctx, store.Staff, header, nil); err != nil {
		t.Fatalf("empty save: %v", err)
	}
	if rows, err := b.Load(ctx, store.Staff); err != nil || len(rows) != 0 {
		t.Errorf("empty entity = %v, %v", rows, err)
	}
}

func TestMigrator_StatusAfterUp(t *testing.T) {
	ctx := context.Background()
	m := db.NewMigrator(globalPool, db.Migrations())

	applied, err := m.Up(ctx)
	if err != nil {
		t.Fatalf("up: %v", err)
	}
	if applied != 0 {
		t.Errorf("second Up applied %d migrations, want 0", applied)
	}

	statuses, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(statuses) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(statuses))
	}
	for _, s := range statuses {
		if !s.Applied || s.AppliedAt == nil {
			t.Errorf("migration %d (%s) not applied", s.Version, s.Name)
		}
	}
}

func TestHealthCheck_Pool(t *testing.T) {
	if err := (db.PoolChecker{Pool: globalPool}).Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if stats := db.GetPoolStats(globalPool); stats.MaxConns != 4 {
		t.Errorf("max conns = %d, want 4", stats.MaxConns)
	}
}
