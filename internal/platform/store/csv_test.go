package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCSVBackend_LoadSkipsHeaderKeepsFields(t *testing.T) {
	dir := t.TempDir()
	content := "PatientId,FirstName,LastName\nP1000, Ann ,Lee\n\nP1005,Bob,  Roy\n"
	if err := os.WriteFile(filepath.Join(dir, "patients.csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, err := NewCSVBackend(dir).Load(context.Background(), Patients)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(rows), rows)
	}
	if rows[0][1] != " Ann " || rows[1][2] != "  Roy" {
		t.Errorf("fields should be read verbatim: %q", rows)
	}
}

func TestCSVBackend_RoundTripKeepsWhitespace(t *testing.T) {
	b := NewCSVBackend(t.TempDir())
	ctx := context.Background()

	row := []string{"PRC2000", "  take with food ", "\tmorning"}
	if err := b.Save(ctx, Prescriptions, []string{"Id", "Instructions", "Notes"}, [][]string{row}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, err := b.Load(ctx, Prescriptions)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0][1] != row[1] || rows[0][2] != row[2] {
		t.Errorf("round trip changed fields: %q", rows)
	}
}

func TestTrimColumns(t *testing.T) {
	row := []string{" P1000 ", " notes ", "x"}
	got := TrimColumns(row, 0, 7)
	if got[0] != "P1000" || got[1] != " notes " {
		t.Errorf("unexpected row %q", got)
	}
	if row[0] != " P1000 " {
		t.Error("input row must not be modified")
	}
}

func TestCSVBackend_LoadMissingFile(t *testing.T) {
	_, err := NewCSVBackend(t.TempDir()).Load(context.Background(), Referrals)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestCSVBackend_SaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	b := NewCSVBackend(dir)
	ctx := context.Background()
	header := []string{"Id", "Name"}

	if err := b.Save(ctx, Clinicians, header, [][]string{{"C1", "Old"}, {"C2", "Two"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Save(ctx, Clinicians, header, [][]string{{"C3", "New"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(b.Path(Clinicians))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != "Id,Name\nC3,New\n" {
		t.Errorf("unexpected file content: %q", got)
	}
}

func TestCSVBackend_AppendWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	b := NewCSVBackend(dir)
	ctx := context.Background()
	header := []string{"Id", "Drug"}

	if err := b.Append(ctx, Prescriptions, header, []string{"PRC2000", "Amoxicillin"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Append(ctx, Prescriptions, header, []string{"PRC2001", "Ibuprofen"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, _ := os.ReadFile(b.Path(Prescriptions))
	want := "Id,Drug\nPRC2000,Amoxicillin\nPRC2001,Ibuprofen\n"
	if string(data) != want {
		t.Errorf("got %q, want %q", string(data), want)
	}

	rows, err := b.Load(ctx, Prescriptions)
	if err != nil || len(rows) != 2 {
		t.Errorf("expected 2 rows on reload, got %v (err %v)", rows, err)
	}
}

func TestCSVBackend_QuotesEmbeddedCommas(t *testing.T) {
	dir := t.TempDir()
	b := NewCSVBackend(dir)
	ctx := context.Background()

	row := []string{"REF3000", "chest pain, intermittent"}
	if err := b.Save(ctx, Referrals, []string{"Id", "Reason"}, [][]string{row}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := os.ReadFile(b.Path(Referrals))
	if !strings.Contains(string(data), `"chest pain, intermittent"`) {
		t.Errorf("expected quoted field, got %q", string(data))
	}

	rows, err := b.Load(ctx, Referrals)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0][1] != "chest pain, intermittent" {
		t.Errorf("round trip lost data: %v", rows)
	}
}

func TestCSVBackend_SaveCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	b := NewCSVBackend(dir)
	if err := b.Save(context.Background(), Staff, []string{"Id"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(b.Path(Staff)); err != nil {
		t.Errorf("expected file to exist: %v", err)
	}
}

func TestCSVBackend_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewCSVBackend(t.TempDir()).Save(ctx, Staff, []string{"Id"}, nil); err == nil {
		t.Error("expected error for canceled context")
	}
}
