package medication

import (
	"github.com/clinic/clinic/internal/platform/store"
	"github.com/clinic/clinic/pkg/datefmt"
)

var _ store.Codec[Prescription] = PrescriptionCodec{}

// PrescriptionCodec lays a Prescription out as
// PrescriptionId,PatientId,ClinicianId,PrescriptionDate,Condition,DrugName,Dosage,Duration,Instructions.
type PrescriptionCodec struct{}

func (PrescriptionCodec) Entity() store.Entity { return store.Prescriptions }

func (PrescriptionCodec) Header() []string {
	return []string{"PrescriptionId", "PatientId", "ClinicianId", "PrescriptionDate", "Condition", "DrugName", "Dosage", "Duration", "Instructions"}
}

func (PrescriptionCodec) Key(p Prescription) string { return p.ID }

func (PrescriptionCodec) Encode(p Prescription) []string {
	return []string{
		p.ID, p.PatientID, p.ClinicianID, datefmt.FormatDate(p.Date),
		p.Condition, p.DrugName, p.Dosage, p.Duration, p.Instructions,
	}
}

func (PrescriptionCodec) Decode(row []string) (Prescription, error) {
	if err := store.CheckColumns(row, 9); err != nil {
		return Prescription{}, err
	}
	row = store.TrimColumns(row, 0, 1, 2, 3)
	date, err := datefmt.ParseDate(row[3])
	if err != nil {
		return Prescription{}, err
	}
	return Prescription{
		ID:           row[0],
		PatientID:    row[1],
		ClinicianID:  row[2],
		Date:         date,
		Condition:    row[4],
		DrugName:     row[5],
		Dosage:       row[6],
		Duration:     row[7],
		Instructions: row[8],
	}, nil
}
