package scheduling

import "time"

// Appointment statuses. Transitions between them are not enforced; any
// status string is stored as given.
const (
	StatusScheduled = "SCHEDULED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// Appointment types offered by the booking form.
const (
	TypeConsultation = "CONSULTATION"
	TypeFollowUp     = "FOLLOW_UP"
	TypeEmergency    = "EMERGENCY"
)

// Appointment maps to a row of appointments.csv.
type Appointment struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	ClinicianID string    `json:"clinician_id"`
	DateTime    time.Time `json:"date_time"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
}
