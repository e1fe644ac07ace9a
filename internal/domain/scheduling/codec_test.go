package scheduling

import (
	"reflect"
	"testing"
	"time"
)

func TestAppointmentCodec_RoundTrip(t *testing.T) {
	a := Appointment{
		ID:          "APT1000",
		PatientID:   "P1000",
		ClinicianID: "C001",
		DateTime:    time.Date(2025, 6, 3, 9, 30, 0, 0, time.UTC),
		Type:        TypeFollowUp,
		Status:      StatusScheduled,
		Notes:       "bring previous results",
	}
	row := AppointmentCodec{}.Encode(a)
	if row[3] != "2025-06-03 09:30" {
		t.Errorf("unexpected timestamp column: %q", row[3])
	}

	back, err := AppointmentCodec{}.Decode(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a, back) {
		t.Errorf("expected %+v, got %+v", a, back)
	}
}

func TestAppointmentCodec_DecodeTrimsKeysOnly(t *testing.T) {
	row := []string{" APT1000", "P1000 ", " C001", " 2025-06-03 09:30 ", "CONSULTATION ", " SCHEDULED", "  fasting "}
	a, err := AppointmentCodec{}.Decode(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != "APT1000" || a.PatientID != "P1000" || a.ClinicianID != "C001" || a.Status != StatusScheduled {
		t.Errorf("key columns not trimmed: %+v", a)
	}
	if a.Notes != "  fasting " {
		t.Errorf("notes = %q, want verbatim", a.Notes)
	}
}

func TestAppointmentCodec_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		row  []string
	}{
		{"short", []string{"APT1000", "P1000", "C001", "2025-06-03 09:30", "CONSULTATION", "SCHEDULED"}},
		{"bad timestamp", []string{"APT1000", "P1000", "C001", "2025-06-03", "CONSULTATION", "SCHEDULED", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (AppointmentCodec{}).Decode(tt.row); err == nil {
				t.Error("expected error")
			}
		})
	}
}
