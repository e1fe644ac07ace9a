package referral

import (
	"strings"
	"testing"

	"github.com/clinic/clinic/internal/platform/notification"
)

func TestRenderEmail_Layout(t *testing.T) {
	r := sampleReferral()
	r.Notes = "ECG attached"
	got := RenderEmail(r, sampleParties(), fixedNow)

	want := strings.Join([]string{
		notification.Rule,
		"EMAIL COMMUNICATION - REFERRAL NOTIFICATION",
		notification.Rule,
		"Date: 2025-04-02T10:15:30",
		"Referral ID: REF3000",
		"",
		"FROM:",
		"  Dr. John Watson",
		"  General Practitioner",
		"  Email: jw@example.com",
		"  Phone: 0101",
		"",
		"TO:",
		"  Dr. Greg House",
		"  Specialist - Cardiology",
		"  Email: gh@example.com",
		"  Phone: 0202",
		"",
		"SUBJECT: Referral for Patient - Ada Lovelace",
		"",
		"PATIENT INFORMATION:",
		"  Name: Ada Lovelace",
		"  NHS Number: 943 476 5919",
		"  Date of Birth: 1980-12-10",
		"  Contact: 0700",
		"  Email: ada@example.com",
		"",
		"REFERRAL DETAILS:",
		"  Referral Date: 2025-04-02",
		"  Urgency: URGENT",
		"  Reason for Referral: Chest pain",
		"  Current Status: PENDING",
		"",
		"CLINICAL NOTES:",
		"  ECG attached",
		"",
		"This is an automated referral notification from the Healthcare Management System.",
		"Please review the patient's electronic health record for complete medical history.",
		notification.Rule,
		"",
		"",
	}, "\n")
	if got != want {
		t.Errorf("email block mismatch\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderEmail_OmitsEmptyNotes(t *testing.T) {
	got := RenderEmail(sampleReferral(), sampleParties(), fixedNow)
	if strings.Contains(got, "CLINICAL NOTES:") {
		t.Error("notes section should be omitted when notes are empty")
	}
}

func TestRenderEmail_AbsentPartiesUseRawIDs(t *testing.T) {
	got := RenderEmail(sampleReferral(), Parties{}, fixedNow)
	for _, want := range []string{"  Dr. C001\n", "  Dr. C002\n", "SUBJECT: Referral for Patient - P1000\n", "  Name: P1000\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in block:\n%s", want, got)
		}
	}
}

func TestRenderEHR_Layout(t *testing.T) {
	r := sampleReferral()
	r.Notes = "ECG attached"
	got := RenderEHR(r, sampleParties(), fixedNow)

	want := strings.Join([]string{
		notification.Rule,
		"ELECTRONIC HEALTH RECORD UPDATE",
		notification.Rule,
		"Timestamp: 2025-04-02T10:15:30",
		"Update Type: REFERRAL",
		"",
		"PATIENT:",
		"  Patient ID: P1000",
		"  NHS Number: 943 476 5919",
		"  Name: Ada Lovelace",
		"",
		"REFERRAL RECORD:",
		"  Referral ID: REF3000",
		"  GP ID: C001",
		"  Specialist ID: C002",
		"  Date: 2025-04-02",
		"  Reason: Chest pain",
		"  Urgency Level: URGENT",
		"  Status: PENDING",
		"  Notes: ECG attached",
		"",
		"EHR updated successfully. Audit trail maintained.",
		notification.Rule,
		"",
		"",
	}, "\n")
	if got != want {
		t.Errorf("ehr block mismatch\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderEHR_OmitsEmptyNotes(t *testing.T) {
	got := RenderEHR(sampleReferral(), Parties{}, fixedNow)
	if strings.Contains(got, "Notes:") {
		t.Error("notes line should be omitted when notes are empty")
	}
	if !strings.Contains(got, "  Name: P1000\n") {
		t.Error("absent patient should render raw id")
	}
}
