package identity

import (
	"strings"
	"time"
)

// Person carries the name and contact fields shared by patients, clinicians
// and admin staff.
type Person struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// FullName joins first and last name with a single space.
func (p Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Patient maps to a row of patients.csv.
type Patient struct {
	ID string `json:"id"`
	Person
	DateOfBirth time.Time `json:"date_of_birth"`
	Address     string    `json:"address"`
	NHSNumber   string    `json:"nhs_number"`
	// GPID references a clinician but is never validated against the
	// clinician list.
	GPID string `json:"gp_id"`
}

// ClinicianType classifies clinicians. It drives the GP / specialist pickers
// for prescriptions and referrals.
type ClinicianType string

const (
	TypeGP         ClinicianType = "GP"
	TypeSpecialist ClinicianType = "SPECIALIST"
	TypeNurse      ClinicianType = "NURSE"
)

// Clinician maps to a row of clinicians.csv.
type Clinician struct {
	ID string `json:"id"`
	Person
	Specialty     string        `json:"specialty"`
	LicenseNumber string        `json:"license_number"`
	Type          ClinicianType `json:"type"`
}

// AdminStaff maps to a row of staff.csv. No other record refers to staff.
type AdminStaff struct {
	ID string `json:"id"`
	Person
	Role       string `json:"role"`
	Department string `json:"department"`
}
