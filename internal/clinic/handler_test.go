package clinic

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/domain/referral"
	"github.com/clinic/clinic/internal/platform/export"
	"github.com/clinic/clinic/internal/platform/notification"
	"github.com/clinic/clinic/pkg/pagination"
)

func newTestServer(t *testing.T) (*echo.Echo, fixture) {
	t.Helper()
	f := newFixture(t, baseSeed())
	e := echo.New()
	NewHandler(f.m).RegisterRoutes(e.Group("/api/v1"))
	return e, f
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type pageOf[T any] struct {
	Data    []T               `json:"data"`
	Total   int               `json:"total"`
	HasMore bool              `json:"has_more"`
	Links   []pagination.Link `json:"links"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHandler_CreateAndGetPatient(t *testing.T) {
	e, _ := newTestServer(t)

	rec := do(e, http.MethodPost, "/api/v1/patients",
		`{"first_name":"Grace","last_name":"Hopper","date_of_birth":"1906-12-09","gp_id":"G1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decode[identity.Patient](t, rec)
	if created.ID != "P1006" {
		t.Errorf("id = %s, want P1006", created.ID)
	}

	rec = do(e, http.MethodGet, "/api/v1/patients/P1006", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[identity.Patient](t, rec); got.LastName != "Hopper" {
		t.Errorf("unexpected patient %+v", got)
	}
}

func TestHandler_CreatePatientValidation(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodPost, "/api/v1/patients", `{"first_name":"","last_name":"X","date_of_birth":"1906-12-09"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_DeletePatient(t *testing.T) {
	e, _ := newTestServer(t)
	if rec := do(e, http.MethodDelete, "/api/v1/patients/P1000", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(e, http.MethodDelete, "/api/v1/patients/P1000", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestHandler_ListPaginates(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodGet, "/api/v1/appointments?limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[pageOf[map[string]any]](t, rec)
	if len(got.Data) != 2 || got.Total != 3 || !got.HasMore {
		t.Errorf("unexpected page %+v", got)
	}
	if len(got.Links) != 2 || got.Links[1].URL != "/api/v1/appointments?offset=2&limit=2" {
		t.Errorf("links = %+v", got.Links)
	}
}

func TestHandler_CliniciansByType(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodGet, "/api/v1/clinicians?type=GP", "")
	got := decode[pageOf[identity.Clinician]](t, rec)
	if len(got.Data) != 1 || got.Data[0].ID != "G1" {
		t.Errorf("unexpected clinicians %+v", got.Data)
	}
	if got.Links[0].URL != "/api/v1/clinicians?offset=0&limit=20&type=GP" {
		t.Errorf("self link = %q", got.Links[0].URL)
	}
}

func TestHandler_AppointmentLifecycle(t *testing.T) {
	e, _ := newTestServer(t)

	rec := do(e, http.MethodPut, "/api/v1/appointments/APT1000", `{"date_time":"2025-08-01 16:00","notes":"moved"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("modify status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"notes":"moved"`) {
		t.Errorf("modify body = %s", rec.Body.String())
	}

	rec = do(e, http.MethodPut, "/api/v1/appointments/APT1000", `{"date_time":"soon"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", rec.Code)
	}

	rec = do(e, http.MethodPost, "/api/v1/appointments/APT1000/cancel", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "CANCELLED") {
		t.Errorf("cancel status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if rec := do(e, http.MethodPost, "/api/v1/appointments/APT9/cancel", ""); rec.Code != http.StatusNotFound {
		t.Errorf("cancel unknown status = %d, want 404", rec.Code)
	}
}

func TestHandler_ReferralFlow(t *testing.T) {
	e, f := newTestServer(t)

	rec := do(e, http.MethodPost, "/api/v1/referrals",
		`{"patient_id":"P1000","gp_id":"G1","specialist_id":"S1","reason":"Chest pain","urgency":"URGENT"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	r := decode[referral.Referral](t, rec)
	if r.ID != "REF3000" || r.Urgency != referral.UrgencyUrgent {
		t.Errorf("unexpected referral %+v", r)
	}

	rec = do(e, http.MethodPut, "/api/v1/referrals/REF3000/status", `{"status":"ACCEPTED"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status update = %d", rec.Code)
	}

	rec = do(e, http.MethodGet, "/api/v1/patients/P1000/referrals", "")
	got := decode[pageOf[referral.Referral]](t, rec)
	if len(got.Data) != 1 || got.Data[0].Status != referral.StatusAccepted {
		t.Errorf("patient referrals = %+v", got.Data)
	}
	if n := len(f.sink.Entries(notification.ChannelEHR)); n != 1 {
		t.Errorf("ehr blocks = %d, want 1", n)
	}

	if rec := do(e, http.MethodPut, "/api/v1/referrals/REF3000/status", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty status = %d, want 400", rec.Code)
	}
}

func TestHandler_GetMissingRecords(t *testing.T) {
	e, _ := newTestServer(t)
	for _, path := range []string{
		"/api/v1/patients/P9", "/api/v1/clinicians/C9", "/api/v1/staff/A9",
		"/api/v1/appointments/APT9", "/api/v1/prescriptions/PRC9", "/api/v1/referrals/REF9",
	} {
		if rec := do(e, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, rec.Code)
		}
	}
}

func TestHTTPError_Mapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrValidation, http.StatusBadRequest},
		{ErrNotFound, http.StatusNotFound},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		var he *echo.HTTPError
		if !errors.As(httpError(tt.err), &he) || he.Code != tt.want {
			t.Errorf("httpError(%v) = %v, want %d", tt.err, he, tt.want)
		}
	}
}

func TestHandler_Export(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodGet, "/api/v1/export.xlsx", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != xlsxContentType {
		t.Errorf("content type = %q", ct)
	}

	sheets, err := export.ReadSheets(rec.Body)
	if err != nil {
		t.Fatalf("read workbook: %v", err)
	}
	if len(sheets) != 6 || sheets[0].Name != "Patients" || len(sheets[0].Rows) != 2 {
		t.Errorf("unexpected sheets %+v", sheets)
	}
}
