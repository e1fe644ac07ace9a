package referral

import (
	"time"

	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/notification"
	"github.com/clinic/clinic/pkg/datefmt"
)

// StampLayout is used for the Date: and Timestamp: lines of both blocks.
const StampLayout = "2006-01-02T15:04:05"

// Parties are the records a referral points at. Any of them may be nil when
// the referenced id is not on file.
type Parties struct {
	Patient    *identity.Patient
	GP         *identity.Clinician
	Specialist *identity.Clinician
}

// party is the flattened view of a person used while rendering.
type party struct {
	name, email, phone string
}

func clinicianParty(c *identity.Clinician, id string) (party, string) {
	if c == nil {
		return party{name: id}, ""
	}
	return party{name: c.FullName(), email: c.Email, phone: c.Phone}, c.Specialty
}

// EmailSubject is the subject line of the email block.
func EmailSubject(r Referral, p Parties) string {
	return "Referral for Patient - " + patientName(r, p)
}

func patientName(r Referral, p Parties) string {
	if p.Patient == nil {
		return r.PatientID
	}
	return p.Patient.FullName()
}

// RenderEmail builds the simulated email sent from the GP to the specialist.
func RenderEmail(r Referral, p Parties, at time.Time) string {
	gp, _ := clinicianParty(p.GP, r.GPID)
	spec, specialty := clinicianParty(p.Specialist, r.SpecialistID)

	var nhs, dob, phone, email string
	if p.Patient != nil {
		nhs = p.Patient.NHSNumber
		dob = datefmt.FormatDate(p.Patient.DateOfBirth)
		phone = p.Patient.Phone
		email = p.Patient.Email
	}

	var b notification.Block
	b.Rule().
		Line("EMAIL COMMUNICATION - REFERRAL NOTIFICATION").
		Rule().
		Linef("Date: %s", at.Format(StampLayout)).
		Linef("Referral ID: %s", r.ID).
		Blank()

	b.Line("FROM:").
		Linef("  Dr. %s", gp.name).
		Line("  General Practitioner").
		Linef("  Email: %s", gp.email).
		Linef("  Phone: %s", gp.phone).
		Blank()

	b.Line("TO:").
		Linef("  Dr. %s", spec.name).
		Linef("  Specialist - %s", specialty).
		Linef("  Email: %s", spec.email).
		Linef("  Phone: %s", spec.phone).
		Blank()

	b.Linef("SUBJECT: %s", EmailSubject(r, p)).Blank()

	b.Line("PATIENT INFORMATION:").
		Linef("  Name: %s", patientName(r, p)).
		Linef("  NHS Number: %s", nhs).
		Linef("  Date of Birth: %s", dob).
		Linef("  Contact: %s", phone).
		Linef("  Email: %s", email).
		Blank()

	b.Line("REFERRAL DETAILS:").
		Linef("  Referral Date: %s", datefmt.FormatDate(r.Date)).
		Linef("  Urgency: %s", r.Urgency).
		Linef("  Reason for Referral: %s", r.Reason).
		Linef("  Current Status: %s", r.Status).
		Blank()

	if r.Notes != "" {
		b.Line("CLINICAL NOTES:").
			Linef("  %s", r.Notes).
			Blank()
	}

	b.Line("This is an automated referral notification from the Healthcare Management System.").
		Line("Please review the patient's electronic health record for complete medical history.").
		Rule().
		Blank()
	return b.String()
}

// RenderEHR builds the simulated electronic health record update.
func RenderEHR(r Referral, p Parties, at time.Time) string {
	var nhs string
	if p.Patient != nil {
		nhs = p.Patient.NHSNumber
	}

	var b notification.Block
	b.Rule().
		Line("ELECTRONIC HEALTH RECORD UPDATE").
		Rule().
		Linef("Timestamp: %s", at.Format(StampLayout)).
		Line("Update Type: REFERRAL").
		Blank()

	b.Line("PATIENT:").
		Linef("  Patient ID: %s", r.PatientID).
		Linef("  NHS Number: %s", nhs).
		Linef("  Name: %s", patientName(r, p)).
		Blank()

	b.Line("REFERRAL RECORD:").
		Linef("  Referral ID: %s", r.ID).
		Linef("  GP ID: %s", r.GPID).
		Linef("  Specialist ID: %s", r.SpecialistID).
		Linef("  Date: %s", datefmt.FormatDate(r.Date)).
		Linef("  Reason: %s", r.Reason).
		Linef("  Urgency Level: %s", r.Urgency).
		Linef("  Status: %s", r.Status)
	if r.Notes != "" {
		b.Linef("  Notes: %s", r.Notes)
	}

	b.Blank().
		Line("EHR updated successfully. Audit trail maintained.").
		Rule().
		Blank()
	return b.String()
}
