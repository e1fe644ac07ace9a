package export

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestWorkbook_RoundTrip(t *testing.T) {
	sheets := []Sheet{
		{
			Name:   "patients",
			Header: []string{"PatientId", "FirstName", "LastName"},
			Rows: [][]string{
				{"P1000", "Ada", "Lovelace"},
				{"P1001", "Alan", "Turing"},
			},
		},
		{
			Name:   "referrals",
			Header: []string{"ReferralId", "Status"},
			Rows:   [][]string{{"REF3000", "PENDING"}},
		},
	}

	data, err := Workbook(sheets)
	if err != nil {
		t.Fatalf("Workbook() error: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty workbook")
	}

	back, err := ReadSheets(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadSheets() error: %v", err)
	}
	if !reflect.DeepEqual(back, sheets) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", back, sheets)
	}
}

func TestWorkbook_HeaderOnlySheet(t *testing.T) {
	data, err := Workbook([]Sheet{{Name: "staff", Header: []string{"StaffId", "Role"}}})
	if err != nil {
		t.Fatalf("Workbook() error: %v", err)
	}
	back, err := ReadSheets(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadSheets() error: %v", err)
	}
	if len(back) != 1 || back[0].Name != "staff" || len(back[0].Rows) != 0 {
		t.Errorf("unexpected sheets %+v", back)
	}
}

func TestWorkbook_NoSheets(t *testing.T) {
	if _, err := Workbook(nil); !errors.Is(err, ErrNoSheets) {
		t.Errorf("expected ErrNoSheets, got %v", err)
	}
}
