package medication

import "time"

// Prescription maps to a row of prescriptions.csv. Prescriptions are only
// ever appended; nothing edits or removes them.
type Prescription struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patient_id"`
	ClinicianID  string    `json:"clinician_id"`
	Date         time.Time `json:"date"`
	Condition    string    `json:"condition"`
	DrugName     string    `json:"drug_name"`
	Dosage       string    `json:"dosage"`
	Duration     string    `json:"duration"`
	Instructions string    `json:"instructions"`
}
