package scheduling

import (
	"github.com/clinic/clinic/internal/platform/store"
	"github.com/clinic/clinic/pkg/datefmt"
)

var _ store.Codec[Appointment] = AppointmentCodec{}

// AppointmentCodec lays an Appointment out as
// AppointmentId,PatientId,ClinicianId,AppointmentDateTime,AppointmentType,Status,Notes.
type AppointmentCodec struct{}

func (AppointmentCodec) Entity() store.Entity { return store.Appointments }

func (AppointmentCodec) Header() []string {
	return []string{"AppointmentId", "PatientId", "ClinicianId", "AppointmentDateTime", "AppointmentType", "Status", "Notes"}
}

func (AppointmentCodec) Key(a Appointment) string { return a.ID }

func (AppointmentCodec) Encode(a Appointment) []string {
	return []string{a.ID, a.PatientID, a.ClinicianID, datefmt.FormatDateTime(a.DateTime), a.Type, a.Status, a.Notes}
}

func (AppointmentCodec) Decode(row []string) (Appointment, error) {
	if err := store.CheckColumns(row, 7); err != nil {
		return Appointment{}, err
	}
	row = store.TrimColumns(row, 0, 1, 2, 3, 4, 5)
	when, err := datefmt.ParseDateTime(row[3])
	if err != nil {
		return Appointment{}, err
	}
	return Appointment{
		ID:          row[0],
		PatientID:   row[1],
		ClinicianID: row[2],
		DateTime:    when,
		Type:        row[4],
		Status:      row[5],
		Notes:       row[6],
	}, nil
}
