// Package clinic is the record manager: it owns every record collection,
// allocates ids and persists each mutation before returning.
package clinic

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/domain/medication"
	"github.com/clinic/clinic/internal/domain/referral"
	"github.com/clinic/clinic/internal/domain/scheduling"
	"github.com/clinic/clinic/internal/platform/export"
	"github.com/clinic/clinic/internal/platform/idalloc"
	"github.com/clinic/clinic/internal/platform/store"
	"github.com/clinic/clinic/internal/platform/telemetry"
	"github.com/clinic/clinic/pkg/datefmt"
)

var (
	// ErrNotFound is store.ErrNotFound so callers can match either.
	ErrNotFound   = store.ErrNotFound
	ErrValidation = errors.New("validation failed")
)

// Id prefixes.
const (
	PrefixPatient      = "P"
	PrefixAppointment  = "APT"
	PrefixPrescription = "PRC"
	PrefixReferral     = "REF"
)

// DefaultStarts are the counters used before any data is loaded.
func DefaultStarts() map[string]int {
	return map[string]int{
		PrefixPatient:      1000,
		PrefixAppointment:  1000,
		PrefixPrescription: 2000,
		PrefixReferral:     3000,
	}
}

// Manager serialises every operation on one mutex.
type Manager struct {
	mu sync.Mutex

	patients      *store.Table[identity.Patient]
	clinicians    *store.Table[identity.Clinician]
	staff         *store.Table[identity.AdminStaff]
	appointments  *store.Table[scheduling.Appointment]
	prescriptions *store.Table[medication.Prescription]
	referrals     *referral.Manager

	ids     *idalloc.Allocator
	logger  zerolog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// NewManager binds every collection to backend. referrals is shared with
// nothing else; metrics may be nil.
func NewManager(backend store.Backend, referrals *referral.Manager, logger zerolog.Logger, metrics *telemetry.Metrics) *Manager {
	return &Manager{
		patients:      store.NewTable[identity.Patient](backend, identity.PatientCodec{}),
		clinicians:    store.NewTable[identity.Clinician](backend, identity.ClinicianCodec{}),
		staff:         store.NewTable[identity.AdminStaff](backend, identity.StaffCodec{}),
		appointments:  store.NewTable[scheduling.Appointment](backend, scheduling.AppointmentCodec{}),
		prescriptions: store.NewTable[medication.Prescription](backend, medication.PrescriptionCodec{}),
		referrals:     referrals,
		ids:           idalloc.New(DefaultStarts()),
		logger:        logger.With().Str("component", "clinic").Logger(),
		metrics:       metrics,
		now:           time.Now,
	}
}

// SetClock overrides the source of "today" for new prescriptions and
// referrals.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Manager) today() time.Time { return datefmt.Day(m.now()) }

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadReport holds the per-collection outcome of LoadAll.
type LoadReport map[store.Entity]store.LoadResult

func (m *Manager) logLoad(entity store.Entity, res store.LoadResult, err error) {
	if err != nil {
		evt := m.logger.Error()
		if errors.Is(err, os.ErrNotExist) {
			evt = m.logger.Warn()
		}
		evt.Err(err).Str("entity", string(entity)).Msg("load failed, starting empty")
		return
	}
	for _, p := range res.Problems {
		m.logger.Warn().Err(p).Str("entity", string(entity)).Msg("skipped row")
	}
	m.logger.Info().
		Str("entity", string(entity)).
		Int("loaded", res.Loaded).
		Int("skipped", res.Skipped).
		Msg("records loaded")
}

func loadInto[T any](ctx context.Context, m *Manager, t *store.Table[T]) (store.LoadResult, error) {
	res, err := t.Load(ctx)
	m.logLoad(t.Entity(), res, err)
	m.metrics.SetRecordCount(string(t.Entity()), t.Len())
	return res, err
}

// LoadPatients replaces the patient list from the backend and raises the
// patient id counter past the highest id seen.
func (m *Manager) LoadPatients(ctx context.Context) (store.LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, err := loadInto(ctx, m, m.patients)
	m.ids.Seed(PrefixPatient, m.patients.Keys())
	return res, err
}

// LoadClinicians replaces the clinician list from the backend.
func (m *Manager) LoadClinicians(ctx context.Context) (store.LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return loadInto(ctx, m, m.clinicians)
}

// LoadStaff replaces the admin staff list from the backend.
func (m *Manager) LoadStaff(ctx context.Context) (store.LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return loadInto(ctx, m, m.staff)
}

// LoadAppointments replaces the appointment list and seeds its counter.
func (m *Manager) LoadAppointments(ctx context.Context) (store.LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, err := loadInto(ctx, m, m.appointments)
	m.ids.Seed(PrefixAppointment, m.appointments.Keys())
	return res, err
}

// LoadPrescriptions replaces the prescription list and seeds its counter.
func (m *Manager) LoadPrescriptions(ctx context.Context) (store.LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, err := loadInto(ctx, m, m.prescriptions)
	m.ids.Seed(PrefixPrescription, m.prescriptions.Keys())
	return res, err
}

// LoadReferrals replaces the referral list and seeds its counter.
func (m *Manager) LoadReferrals(ctx context.Context) (store.LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, err := m.referrals.Load(ctx)
	m.logLoad(store.Referrals, res, err)
	ids := m.referrals.IDs()
	m.metrics.SetRecordCount(string(store.Referrals), len(ids))
	m.ids.Seed(PrefixReferral, ids)
	return res, err
}

// LoadAll loads every collection, continuing past failures. Missing
// collections are not treated as errors; everything else is joined into
// the returned error.
func (m *Manager) LoadAll(ctx context.Context) (LoadReport, error) {
	loaders := []struct {
		entity store.Entity
		load   func(context.Context) (store.LoadResult, error)
	}{
		{store.Patients, m.LoadPatients},
		{store.Clinicians, m.LoadClinicians},
		{store.Staff, m.LoadStaff},
		{store.Appointments, m.LoadAppointments},
		{store.Prescriptions, m.LoadPrescriptions},
		{store.Referrals, m.LoadReferrals},
	}

	report := make(LoadReport, len(loaders))
	var errs []error
	for _, l := range loaders {
		res, err := l.load(ctx)
		report[l.entity] = res
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return report, errors.Join(errs...)
}

// NextIDs reports the next numeric suffix per prefix without consuming it.
func (m *Manager) NextIDs() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, 4)
	for prefix := range DefaultStarts() {
		out[prefix] = m.ids.Peek(prefix)
	}
	return out
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// NewPatient is the input for AddPatient. DateOfBirth is yyyy-MM-dd.
type NewPatient struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
	Address     string `json:"address"`
	NHSNumber   string `json:"nhs_number"`
	GPID        string `json:"gp_id"`
}

func (m *Manager) recordMutation(entity store.Entity, op string, err error) {
	m.metrics.RecordMutation(string(entity), op, telemetry.Outcome(err, ErrNotFound))
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrValidation) {
		m.logger.Error().Err(err).Str("entity", string(entity)).Str("operation", op).Msg("mutation failed")
	}
}

// AddPatient validates in, allocates a patient id and rewrites the patient
// collection. Validation failures do not consume an id.
func (m *Manager) AddPatient(ctx context.Context, in NewPatient) (p identity.Patient, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.recordMutation(store.Patients, "create", err) }()

	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return identity.Patient{}, fmt.Errorf("%w: first and last name are required", ErrValidation)
	}
	dob, err := datefmt.ParseDate(in.DateOfBirth)
	if err != nil {
		return identity.Patient{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	p = identity.Patient{
		ID: m.ids.Next(PrefixPatient),
		Person: identity.Person{
			FirstName: strings.TrimSpace(in.FirstName),
			LastName:  strings.TrimSpace(in.LastName),
			Email:     in.Email,
			Phone:     in.Phone,
		},
		DateOfBirth: dob,
		Address:     in.Address,
		NHSNumber:   in.NHSNumber,
		GPID:        in.GPID,
	}
	err = m.patients.Insert(ctx, p)
	m.metrics.SetRecordCount(string(store.Patients), m.patients.Len())
	return p, err
}

// DeletePatient removes the first patient with id and rewrites the
// collection. Appointments, prescriptions and referrals that point at the
// patient are left in place.
func (m *Manager) DeletePatient(ctx context.Context, id string) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.recordMutation(store.Patients, "delete", err) }()

	ok, err := m.patients.Delete(ctx, id)
	if !ok {
		return fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	m.metrics.SetRecordCount(string(store.Patients), m.patients.Len())
	return err
}

// NewAppointment is the input for CreateAppointment. DateTime is
// yyyy-MM-dd HH:mm.
type NewAppointment struct {
	PatientID   string `json:"patient_id"`
	ClinicianID string `json:"clinician_id"`
	DateTime    string `json:"date_time"`
	Type        string `json:"type"`
	Notes       string `json:"notes"`
}

// CreateAppointment books a SCHEDULED appointment and rewrites the
// appointment collection.
func (m *Manager) CreateAppointment(ctx context.Context, in NewAppointment) (a scheduling.Appointment, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.recordMutation(store.Appointments, "create", err) }()

	when, err := datefmt.ParseDateTime(in.DateTime)
	if err != nil {
		return scheduling.Appointment{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	kind := in.Type
	if kind == "" {
		kind = scheduling.TypeConsultation
	}

	a = scheduling.Appointment{
		ID:          m.ids.Next(PrefixAppointment),
		PatientID:   in.PatientID,
		ClinicianID: in.ClinicianID,
		DateTime:    when,
		Type:        kind,
		Status:      scheduling.StatusScheduled,
		Notes:       in.Notes,
	}
	err = m.appointments.Insert(ctx, a)
	m.metrics.SetRecordCount(string(store.Appointments), m.appointments.Len())
	return a, err
}

// ModifyAppointment changes only the date-time and notes of an appointment.
// An unknown id is reported before the date-time is parsed.
func (m *Manager) ModifyAppointment(ctx context.Context, id, dateTime, notes string) (a scheduling.Appointment, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.recordMutation(store.Appointments, "modify", err) }()

	if _, ok := m.appointments.Get(id); !ok {
		return scheduling.Appointment{}, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	when, err := datefmt.ParseDateTime(dateTime)
	if err != nil {
		return scheduling.Appointment{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	a, ok, err := m.appointments.Update(ctx, id, func(a *scheduling.Appointment) {
		a.DateTime = when
		a.Notes = notes
	})
	if !ok {
		return scheduling.Appointment{}, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	return a, err
}

// CancelAppointment sets the appointment status to CANCELLED.
func (m *Manager) CancelAppointment(ctx context.Context, id string) (a scheduling.Appointment, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.recordMutation(store.Appointments, "cancel", err) }()

	a, ok, err := m.appointments.Update(ctx, id, func(a *scheduling.Appointment) {
		a.Status = scheduling.StatusCancelled
	})
	if !ok {
		return scheduling.Appointment{}, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	return a, err
}

// NewPrescription is the input for CreatePrescription.
type NewPrescription struct {
	PatientID    string `json:"patient_id"`
	ClinicianID  string `json:"clinician_id"`
	Condition    string `json:"condition"`
	DrugName     string `json:"drug_name"`
	Dosage       string `json:"dosage"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
}

// CreatePrescription records a prescription dated today and appends it as a
// single row.
func (m *Manager) CreatePrescription(ctx context.Context, in NewPrescription) (p medication.Prescription, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.recordMutation(store.Prescriptions, "create", err) }()

	p = medication.Prescription{
		ID:           m.ids.Next(PrefixPrescription),
		PatientID:    in.PatientID,
		ClinicianID:  in.ClinicianID,
		Date:         m.today(),
		Condition:    in.Condition,
		DrugName:     in.DrugName,
		Dosage:       in.Dosage,
		Duration:     in.Duration,
		Instructions: in.Instructions,
	}
	err = m.prescriptions.InsertAppend(ctx, p)
	m.metrics.SetRecordCount(string(store.Prescriptions), m.prescriptions.Len())
	return p, err
}

// NewReferral is the input for CreateReferral. An empty urgency means
// ROUTINE.
type NewReferral struct {
	PatientID    string `json:"patient_id"`
	GPID         string `json:"gp_id"`
	SpecialistID string `json:"specialist_id"`
	Reason       string `json:"reason"`
	Urgency      string `json:"urgency"`
	Notes        string `json:"notes"`
}

// CreateReferral records a PENDING referral dated today and hands it to the
// referral manager, which appends it and writes the email and EHR blocks.
func (m *Manager) CreateReferral(ctx context.Context, in NewReferral) (r referral.Referral, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.recordMutation(store.Referrals, "create", err) }()

	urgency := in.Urgency
	if urgency == "" {
		urgency = referral.UrgencyRoutine
	}

	r = referral.Referral{
		ID:           m.ids.Next(PrefixReferral),
		PatientID:    in.PatientID,
		GPID:         in.GPID,
		SpecialistID: in.SpecialistID,
		Date:         m.today(),
		Reason:       in.Reason,
		Urgency:      urgency,
		Status:       referral.StatusPending,
		Notes:        in.Notes,
	}
	err = m.referrals.Add(ctx, r, m.partiesFor(r))
	m.metrics.SetRecordCount(string(store.Referrals), len(m.referrals.IDs()))
	return r, err
}

func (m *Manager) partiesFor(r referral.Referral) referral.Parties {
	var parties referral.Parties
	if p, ok := m.patients.Get(r.PatientID); ok {
		parties.Patient = &p
	}
	if c, ok := m.clinicians.Get(r.GPID); ok {
		parties.GP = &c
	}
	if c, ok := m.clinicians.Get(r.SpecialistID); ok {
		parties.Specialist = &c
	}
	return parties
}

// UpdateReferralStatus sets a referral's status and rewrites the referral
// collection. The notification logs are not touched.
func (m *Manager) UpdateReferralStatus(ctx context.Context, id, status string) (r referral.Referral, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.recordMutation(store.Referrals, "status", err) }()

	return m.referrals.UpdateStatus(ctx, id, status)
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Patients returns every patient in list order.
func (m *Manager) Patients() []identity.Patient {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.patients.All()
}

// Patient returns the first patient with id.
func (m *Manager) Patient(id string) (identity.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients.Get(id)
	if !ok {
		return identity.Patient{}, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	return p, nil
}

// Clinicians returns every clinician, or only those of kind when it is not
// empty.
func (m *Manager) Clinicians(kind identity.ClinicianType) []identity.Clinician {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kind == "" {
		return m.clinicians.All()
	}
	return m.clinicians.Filter(func(c identity.Clinician) bool { return c.Type == kind })
}

func (m *Manager) Clinician(id string) (identity.Clinician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clinicians.Get(id)
	if !ok {
		return identity.Clinician{}, fmt.Errorf("clinician %s: %w", id, ErrNotFound)
	}
	return c, nil
}

// Staff returns every admin staff member in list order.
func (m *Manager) Staff() []identity.AdminStaff {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.staff.All()
}

func (m *Manager) StaffMember(id string) (identity.AdminStaff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.staff.Get(id)
	if !ok {
		return identity.AdminStaff{}, fmt.Errorf("staff %s: %w", id, ErrNotFound)
	}
	return s, nil
}

func (m *Manager) Appointments() []scheduling.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appointments.All()
}

func (m *Manager) Appointment(id string) (scheduling.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments.Get(id)
	if !ok {
		return scheduling.Appointment{}, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	return a, nil
}

// AppointmentsForPatient returns the patient's appointments in list order.
func (m *Manager) AppointmentsForPatient(patientID string) []scheduling.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appointments.Filter(func(a scheduling.Appointment) bool { return a.PatientID == patientID })
}

// AppointmentsForClinician returns the clinician's appointments in list
// order.
func (m *Manager) AppointmentsForClinician(clinicianID string) []scheduling.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appointments.Filter(func(a scheduling.Appointment) bool { return a.ClinicianID == clinicianID })
}

func (m *Manager) Prescriptions() []medication.Prescription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prescriptions.All()
}

func (m *Manager) Prescription(id string) (medication.Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prescriptions.Get(id)
	if !ok {
		return medication.Prescription{}, fmt.Errorf("prescription %s: %w", id, ErrNotFound)
	}
	return p, nil
}

// PrescriptionsForPatient returns the patient's prescriptions in list order.
func (m *Manager) PrescriptionsForPatient(patientID string) []medication.Prescription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prescriptions.Filter(func(p medication.Prescription) bool { return p.PatientID == patientID })
}

// PrescriptionsForClinician returns the clinician's prescriptions in list
// order.
func (m *Manager) PrescriptionsForClinician(clinicianID string) []medication.Prescription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prescriptions.Filter(func(p medication.Prescription) bool { return p.ClinicianID == clinicianID })
}

func (m *Manager) Referrals() []referral.Referral {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.referrals.All()
}

func (m *Manager) Referral(id string) (referral.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.referrals.Get(id)
}

func (m *Manager) ReferralsForPatient(patientID string) []referral.Referral {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.referrals.ByPatient(patientID)
}

func (m *Manager) ReferralsForSpecialist(specialistID string) []referral.Referral {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.referrals.BySpecialist(specialistID)
}

// DisplayName returns the full name of the patient or clinician with id, or
// id itself when neither exists.
func (m *Manager) DisplayName(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.patients.Get(id); ok {
		return p.FullName()
	}
	if c, ok := m.clinicians.Get(id); ok {
		return c.FullName()
	}
	return id
}

// Sheets returns every collection in persisted form, one export sheet each.
func (m *Manager) Sheets() []export.Sheet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return []export.Sheet{
		{Name: "Patients", Header: m.patients.Header(), Rows: m.patients.Rows()},
		{Name: "Clinicians", Header: m.clinicians.Header(), Rows: m.clinicians.Rows()},
		{Name: "Staff", Header: m.staff.Header(), Rows: m.staff.Rows()},
		{Name: "Appointments", Header: m.appointments.Header(), Rows: m.appointments.Rows()},
		{Name: "Prescriptions", Header: m.prescriptions.Header(), Rows: m.prescriptions.Rows()},
		{Name: "Referrals", Header: m.referrals.Header(), Rows: m.referrals.Rows()},
	}
}
