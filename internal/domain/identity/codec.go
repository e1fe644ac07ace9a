package identity

import (
	"github.com/clinic/clinic/internal/platform/store"
	"github.com/clinic/clinic/pkg/datefmt"
)

// Compile-time checks that the codecs satisfy store.Codec.
var (
	_ store.Codec[Patient]    = PatientCodec{}
	_ store.Codec[Clinician]  = ClinicianCodec{}
	_ store.Codec[AdminStaff] = StaffCodec{}
)

// -- Patient --

// PatientCodec lays a Patient out as
// PatientId,FirstName,LastName,Email,Phone,DateOfBirth,Address,NHSNumber,GpId.
type PatientCodec struct{}

func (PatientCodec) Entity() store.Entity { return store.Patients }

func (PatientCodec) Header() []string {
	return []string{"PatientId", "FirstName", "LastName", "Email", "Phone", "DateOfBirth", "Address", "NHSNumber", "GpId"}
}

func (PatientCodec) Key(p Patient) string { return p.ID }

func (PatientCodec) Encode(p Patient) []string {
	return []string{
		p.ID, p.FirstName, p.LastName, p.Email, p.Phone,
		datefmt.FormatDate(p.DateOfBirth), p.Address, p.NHSNumber, p.GPID,
	}
}

func (PatientCodec) Decode(row []string) (Patient, error) {
	if err := store.CheckColumns(row, 9); err != nil {
		return Patient{}, err
	}
	row = store.TrimColumns(row, 0, 5, 8)
	dob, err := datefmt.ParseDate(row[5])
	if err != nil {
		return Patient{}, err
	}
	return Patient{
		ID:          row[0],
		Person:      Person{FirstName: row[1], LastName: row[2], Email: row[3], Phone: row[4]},
		DateOfBirth: dob,
		Address:     row[6],
		NHSNumber:   row[7],
		GPID:        row[8],
	}, nil
}

// -- Clinician --

// ClinicianCodec lays a Clinician out as
// ClinicianId,FirstName,LastName,Email,Phone,Specialty,LicenseNumber,ClinicianType.
type ClinicianCodec struct{}

func (ClinicianCodec) Entity() store.Entity { return store.Clinicians }

func (ClinicianCodec) Header() []string {
	return []string{"ClinicianId", "FirstName", "LastName", "Email", "Phone", "Specialty", "LicenseNumber", "ClinicianType"}
}

func (ClinicianCodec) Key(c Clinician) string { return c.ID }

func (ClinicianCodec) Encode(c Clinician) []string {
	return []string{c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Specialty, c.LicenseNumber, string(c.Type)}
}

func (ClinicianCodec) Decode(row []string) (Clinician, error) {
	if err := store.CheckColumns(row, 8); err != nil {
		return Clinician{}, err
	}
	row = store.TrimColumns(row, 0, 7)
	return Clinician{
		ID:            row[0],
		Person:        Person{FirstName: row[1], LastName: row[2], Email: row[3], Phone: row[4]},
		Specialty:     row[5],
		LicenseNumber: row[6],
		Type:          ClinicianType(row[7]),
	}, nil
}

// -- AdminStaff --

// StaffCodec lays an AdminStaff out as
// StaffId,FirstName,LastName,Email,Phone,Role,Department.
type StaffCodec struct{}

func (StaffCodec) Entity() store.Entity { return store.Staff }

func (StaffCodec) Header() []string {
	return []string{"StaffId", "FirstName", "LastName", "Email", "Phone", "Role", "Department"}
}

func (StaffCodec) Key(s AdminStaff) string { return s.ID }

func (StaffCodec) Encode(s AdminStaff) []string {
	return []string{s.ID, s.FirstName, s.LastName, s.Email, s.Phone, s.Role, s.Department}
}

func (StaffCodec) Decode(row []string) (AdminStaff, error) {
	if err := store.CheckColumns(row, 7); err != nil {
		return AdminStaff{}, err
	}
	row = store.TrimColumns(row, 0)
	return AdminStaff{
		ID:         row[0],
		Person:     Person{FirstName: row[1], LastName: row[2], Email: row[3], Phone: row[4]},
		Role:       row[5],
		Department: row[6],
	}, nil
}
