package referral

import "time"

// Urgency levels.
const (
	UrgencyRoutine   = "ROUTINE"
	UrgencyUrgent    = "URGENT"
	UrgencyEmergency = "EMERGENCY"
)

// Referral statuses. New referrals start as StatusPending.
const (
	StatusPending   = "PENDING"
	StatusAccepted  = "ACCEPTED"
	StatusCompleted = "COMPLETED"
	StatusDeclined  = "DECLINED"
)

// Referral maps to a row of referrals.csv.
type Referral struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patient_id"`
	GPID         string    `json:"gp_id"`
	SpecialistID string    `json:"specialist_id"`
	Date         time.Time `json:"date"`
	Reason       string    `json:"reason"`
	Urgency      string    `json:"urgency"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes"`
}
