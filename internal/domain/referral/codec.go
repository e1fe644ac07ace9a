package referral

import (
	"github.com/clinic/clinic/internal/platform/store"
	"github.com/clinic/clinic/pkg/datefmt"
)

var _ store.Codec[Referral] = Codec{}

// Codec lays a Referral out as
// ReferralId,PatientId,GpId,SpecialistId,ReferralDate,Reason,Urgency,Status,Notes.
type Codec struct{}

func (Codec) Entity() store.Entity { return store.Referrals }

func (Codec) Header() []string {
	return []string{"ReferralId", "PatientId", "GpId", "SpecialistId", "ReferralDate", "Reason", "Urgency", "Status", "Notes"}
}

func (Codec) Key(r Referral) string { return r.ID }

func (Codec) Encode(r Referral) []string {
	return []string{
		r.ID, r.PatientID, r.GPID, r.SpecialistID, datefmt.FormatDate(r.Date),
		r.Reason, r.Urgency, r.Status, r.Notes,
	}
}

func (Codec) Decode(row []string) (Referral, error) {
	if err := store.CheckColumns(row, 9); err != nil {
		return Referral{}, err
	}
	row = store.TrimColumns(row, 0, 1, 2, 3, 4, 6, 7)
	date, err := datefmt.ParseDate(row[4])
	if err != nil {
		return Referral{}, err
	}
	return Referral{
		ID:           row[0],
		PatientID:    row[1],
		GPID:         row[2],
		SpecialistID: row[3],
		Date:         date,
		Reason:       row[5],
		Urgency:      row[6],
		Status:       row[7],
		Notes:        row[8],
	}, nil
}
