package clinic

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/export"
	"github.com/clinic/clinic/pkg/pagination"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.ListPatients)
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients/:id", h.GetPatient)
	api.DELETE("/patients/:id", h.DeletePatient)
	api.GET("/patients/:id/appointments", h.PatientAppointments)
	api.GET("/patients/:id/prescriptions", h.PatientPrescriptions)
	api.GET("/patients/:id/referrals", h.PatientReferrals)

	api.GET("/clinicians", h.ListClinicians)
	api.GET("/clinicians/:id", h.GetClinician)
	api.GET("/clinicians/:id/appointments", h.ClinicianAppointments)
	api.GET("/clinicians/:id/prescriptions", h.ClinicianPrescriptions)
	api.GET("/clinicians/:id/referrals", h.SpecialistReferrals)

	api.GET("/staff", h.ListStaff)
	api.GET("/staff/:id", h.GetStaff)

	api.GET("/appointments", h.ListAppointments)
	api.POST("/appointments", h.CreateAppointment)
	api.GET("/appointments/:id", h.GetAppointment)
	api.PUT("/appointments/:id", h.ModifyAppointment)
	api.POST("/appointments/:id/cancel", h.CancelAppointment)

	api.GET("/prescriptions", h.ListPrescriptions)
	api.POST("/prescriptions", h.CreatePrescription)
	api.GET("/prescriptions/:id", h.GetPrescription)

	api.GET("/referrals", h.ListReferrals)
	api.POST("/referrals", h.CreateReferral)
	api.GET("/referrals/:id", h.GetReferral)
	api.PUT("/referrals/:id/status", h.UpdateReferralStatus)

	api.GET("/next-ids", h.NextIDs)
	api.GET("/export.xlsx", h.Export)
}

// httpError maps manager errors onto status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func page[T any](c echo.Context, items []T, extra string) error {
	pg := pagination.FromContext(c)
	resp := pagination.Page(items, pg)
	resp.Links = pg.Links(c.Request().URL.Path, extra, resp.Total)
	return c.JSON(http.StatusOK, resp)
}

// -- Patients --

func (h *Handler) ListPatients(c echo.Context) error {
	return page(c, h.mgr.Patients(), "")
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var in NewPatient
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.mgr.AddPatient(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.mgr.Patient(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	if err := h.mgr.DeletePatient(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) PatientAppointments(c echo.Context) error {
	return page(c, h.mgr.AppointmentsForPatient(c.Param("id")), "")
}

func (h *Handler) PatientPrescriptions(c echo.Context) error {
	return page(c, h.mgr.PrescriptionsForPatient(c.Param("id")), "")
}

func (h *Handler) PatientReferrals(c echo.Context) error {
	return page(c, h.mgr.ReferralsForPatient(c.Param("id")), "")
}

// -- Clinicians and staff --

func (h *Handler) ListClinicians(c echo.Context) error {
	kind := identity.ClinicianType(c.QueryParam("type"))
	var extra string
	if kind != "" {
		extra = "type=" + url.QueryEscape(string(kind))
	}
	return page(c, h.mgr.Clinicians(kind), extra)
}

func (h *Handler) GetClinician(c echo.Context) error {
	cl, err := h.mgr.Clinician(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) ClinicianAppointments(c echo.Context) error {
	return page(c, h.mgr.AppointmentsForClinician(c.Param("id")), "")
}

func (h *Handler) ClinicianPrescriptions(c echo.Context) error {
	return page(c, h.mgr.PrescriptionsForClinician(c.Param("id")), "")
}

func (h *Handler) SpecialistReferrals(c echo.Context) error {
	return page(c, h.mgr.ReferralsForSpecialist(c.Param("id")), "")
}

func (h *Handler) ListStaff(c echo.Context) error {
	return page(c, h.mgr.Staff(), "")
}

func (h *Handler) GetStaff(c echo.Context) error {
	s, err := h.mgr.StaffMember(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s)
}

// -- Appointments --

func (h *Handler) ListAppointments(c echo.Context) error {
	return page(c, h.mgr.Appointments(), "")
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var in NewAppointment
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.mgr.CreateAppointment(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	a, err := h.mgr.Appointment(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

type appointmentChange struct {
	DateTime string `json:"date_time"`
	Notes    string `json:"notes"`
}

func (h *Handler) ModifyAppointment(c echo.Context) error {
	var in appointmentChange
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.mgr.ModifyAppointment(c.Request().Context(), c.Param("id"), in.DateTime, in.Notes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	a, err := h.mgr.CancelAppointment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// -- Prescriptions --

func (h *Handler) ListPrescriptions(c echo.Context) error {
	return page(c, h.mgr.Prescriptions(), "")
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	var in NewPrescription
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.mgr.CreatePrescription(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	p, err := h.mgr.Prescription(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// -- Referrals --

func (h *Handler) ListReferrals(c echo.Context) error {
	return page(c, h.mgr.Referrals(), "")
}

func (h *Handler) CreateReferral(c echo.Context) error {
	var in NewReferral
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r, err := h.mgr.CreateReferral(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetReferral(c echo.Context) error {
	r, err := h.mgr.Referral(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, r)
}

type statusChange struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateReferralStatus(c echo.Context) error {
	var in statusChange
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if in.Status == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "status is required")
	}
	r, err := h.mgr.UpdateReferralStatus(c.Request().Context(), c.Param("id"), in.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, r)
}

// -- Misc --

func (h *Handler) NextIDs(c echo.Context) error {
	return c.JSON(http.StatusOK, h.mgr.NextIDs())
}

// Export streams every collection as one .xlsx workbook.
func (h *Handler) Export(c echo.Context) error {
	data, err := export.Workbook(h.mgr.Sheets())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="clinic.xlsx"`)
	return c.Stream(http.StatusOK, xlsxContentType, bytes.NewReader(data))
}
