//go:build integration

package integration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/clinic"
	"github.com/clinic/clinic/internal/domain/referral"
	"github.com/clinic/clinic/internal/platform/notification"
	"github.com/clinic/clinic/internal/platform/store"
	"github.com/clinic/clinic/internal/platform/store/postgres"
)

func newPostgresManager(t *testing.T, sink notification.Sink) *clinic.Manager {
	t.Helper()
	backend := postgres.New(globalPool)
	refs := referral.NewManager(backend, notification.NewLog(sink, zerolog.Nop()), zerolog.Nop())
	m := clinic.NewManager(backend, refs, zerolog.Nop(), nil)
	if _, err := m.LoadAll(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return m
}

func TestClinicFlow_PersistsAcrossRestart(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	sink := &notification.MemorySink{}
	m := newPostgresManager(t, sink)

	p, err := m.AddPatient(ctx, clinic.NewPatient{FirstName: "Ada", LastName: "Lovelace", DateOfBirth: "1980-12-10"})
	if err != nil {
		t.Fatalf("add patient: %v", err)
	}
	a, err := m.CreateAppointment(ctx, clinic.NewAppointment{PatientID: p.ID, ClinicianID: "G1", DateTime: "2025-05-01 09:00"})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	if _, err := m.ModifyAppointment(ctx, a.ID, "2025-05-02 10:00", "moved"); err != nil {
		t.Fatalf("modify: %v", err)
	}
	if _, err := m.CreatePrescription(ctx, clinic.NewPrescription{PatientID: p.ID, ClinicianID: "G1", DrugName: "Amlodipine"}); err != nil {
		t.Fatalf("prescription: %v", err)
	}
	r, err := m.CreateReferral(ctx, clinic.NewReferral{PatientID: p.ID, GPID: "G1", SpecialistID: "S1", Reason: "Review"})
	if err != nil {
		t.Fatalf("referral: %v", err)
	}
	if _, err := m.UpdateReferralStatus(ctx, r.ID, referral.StatusAccepted); err != nil {
		t.Fatalf("status: %v", err)
	}

	// A fresh manager sees the same state and continues the id sequences.
	restarted := newPostgresManager(t, sink)
	got, err := restarted.Appointment(a.ID)
	if err != nil {
		t.Fatalf("lookup appointment: %v", err)
	}
	if got.Notes != "moved" || !got.DateTime.Equal(time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("appointment after restart = %+v", got)
	}
	refs := restarted.ReferralsForPatient(p.ID)
	if len(refs) != 1 || refs[0].Status != referral.StatusAccepted {
		t.Errorf("referrals after restart = %+v", refs)
	}
	next := restarted.NextIDs()
	if next[clinic.PrefixPatient] != 1001 || next[clinic.PrefixPrescription] != 2001 || next[clinic.PrefixReferral] != 3001 {
		t.Errorf("next ids after restart = %v", next)
	}

	ehr := sink.Entries(notification.ChannelEHR)
	if len(ehr) != 1 || !strings.Contains(ehr[0].Body, "Referral ID: "+r.ID) {
		t.Errorf("ehr entries = %+v", ehr)
	}
}

func TestClinicFlow_DeleteUnknownPatientKeepsRows(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	m := newPostgresManager(t, &notification.MemorySink{})

	if _, err := m.AddPatient(ctx, clinic.NewPatient{FirstName: "Alan", LastName: "Turing", DateOfBirth: "1972-06-23"}); err != nil {
		t.Fatal(err)
	}
	if err := m.DeletePatient(ctx, "P9999"); err == nil {
		t.Fatal("expected not found")
	}

	rows, err := postgres.New(globalPool).Load(ctx, store.Patients)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 1 || rows[0][0] != "P1000" {
		t.Errorf("patients rows = %v", rows)
	}
}
