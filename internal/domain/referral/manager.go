package referral

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/notification"
	"github.com/clinic/clinic/internal/platform/store"
)

// Manager owns the referral list and writes the email and EHR blocks when a
// referral is added. It is built once at startup and passed to whoever needs
// it. Callers serialise access.
type Manager struct {
	table  *store.Table[Referral]
	log    *notification.Log
	logger zerolog.Logger
	now    func() time.Time
}

// NewManager binds the referral list to backend and the block log to log.
func NewManager(backend store.Backend, log *notification.Log, logger zerolog.Logger) *Manager {
	return &Manager{
		table:  store.NewTable[Referral](backend, Codec{}),
		log:    log,
		logger: logger.With().Str("component", "referral").Logger(),
		now:    time.Now,
	}
}

// SetClock overrides the time source used for the block timestamps.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Load replaces the in-memory list with what the backend holds.
func (m *Manager) Load(ctx context.Context) (store.LoadResult, error) {
	return m.table.Load(ctx)
}

// Add appends ref to the list and persists it as a single row, then renders
// the email and EHR blocks. A persistence error is returned with the referral
// still in memory. Block delivery failures are logged and do not fail Add.
func (m *Manager) Add(ctx context.Context, ref Referral, parties Parties) error {
	persistErr := m.table.InsertAppend(ctx, ref)
	if persistErr != nil {
		m.logger.Error().Err(persistErr).Str("referral_id", ref.ID).Msg("failed to persist referral")
	}

	at := m.now()
	meta := map[string]string{"referral_id": ref.ID, "patient_id": ref.PatientID}

	if _, err := m.log.Deliver(ctx, notification.ChannelEmail, EmailSubject(ref, parties), RenderEmail(ref, parties, at), meta); err != nil {
		m.logger.Warn().Err(err).Str("referral_id", ref.ID).Msg("email block not written")
	}
	if _, err := m.log.Deliver(ctx, notification.ChannelEHR, "", RenderEHR(ref, parties, at), meta); err != nil {
		m.logger.Warn().Err(err).Str("referral_id", ref.ID).Msg("ehr block not written")
	}

	if persistErr != nil {
		return fmt.Errorf("persist referral %s: %w", ref.ID, persistErr)
	}
	return nil
}

// All returns every referral in list order.
func (m *Manager) All() []Referral { return m.table.All() }

// IDs returns every referral id in list order.
func (m *Manager) IDs() []string { return m.table.Keys() }

// Get returns the first referral with the given id.
func (m *Manager) Get(id string) (Referral, error) {
	r, ok := m.table.Get(id)
	if !ok {
		return Referral{}, fmt.Errorf("referral %s: %w", id, store.ErrNotFound)
	}
	return r, nil
}

// ByPatient returns the referrals for a patient in list order.
func (m *Manager) ByPatient(patientID string) []Referral {
	return m.table.Filter(func(r Referral) bool { return r.PatientID == patientID })
}

// BySpecialist returns the referrals addressed to a specialist in list order.
func (m *Manager) BySpecialist(specialistID string) []Referral {
	return m.table.Filter(func(r Referral) bool { return r.SpecialistID == specialistID })
}

// UpdateStatus sets the status of the first referral with the given id and
// rewrites the whole referral collection. The block log is not touched.
// An unknown id returns store.ErrNotFound without writing anything.
func (m *Manager) UpdateStatus(ctx context.Context, id, status string) (Referral, error) {
	updated, ok, err := m.table.Update(ctx, id, func(r *Referral) { r.Status = status })
	if !ok {
		return Referral{}, fmt.Errorf("referral %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return updated, fmt.Errorf("persist referral %s: %w", id, err)
	}
	return updated, nil
}

// Header returns the persisted column names.
func (m *Manager) Header() []string { return m.table.Header() }

// Rows returns every referral encoded as it is persisted.
func (m *Manager) Rows() [][]string { return m.table.Rows() }
