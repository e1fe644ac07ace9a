package datefmt

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 1985-03-12 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if FormatDate(got) != "1985-03-12" {
		t.Errorf("unexpected format: %s", FormatDate(got))
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "12/03/1985", "1985-13-01", "1985-03-12 10:00"} {
		if _, err := ParseDate(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestParseDateTime(t *testing.T) {
	got, err := ParseDateTime("2024-11-05 14:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if FormatDateTime(got) != "2024-11-05 14:30" {
		t.Errorf("unexpected format: %s", FormatDateTime(got))
	}
	if _, err := ParseDateTime("2024-11-05T14:30"); err == nil {
		t.Error("expected error for ISO separator")
	}
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("X", 5*3600)
	in := time.Date(2025, 1, 2, 23, 59, 0, 0, loc)
	got := Day(in)
	parsed, _ := ParseDate("2025-01-02")
	if !got.Equal(parsed) || got.Location() != time.UTC {
		t.Errorf("expected %v, got %v", parsed, got)
	}
}
