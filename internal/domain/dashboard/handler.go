package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

// AppointmentStats counts a patient's appointments by status.
type AppointmentStats interface {
	CountForPatient(ctx context.Context, patientID uuid.UUID, status string) (int, error)
}

// BalanceSource reports a patient's outstanding invoice total.
type BalanceSource interface {
	UnpaidTotal(ctx context.Context, patientID uuid.UUID) (float64, error)
}

// PatientResolver maps an authenticated user to their patient profile id.
type PatientResolver interface {
	PatientIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// VisitAppointment is the history view of an appointment.
type VisitAppointment struct {
	ID     uuid.UUID `json:"id"`
	Date   string    `json:"date"`
	Time   string    `json:"time"`
	Status string    `json:"status"`
	Notes  *string   `json:"notes,omitempty"`
}

// VisitLabTest is the history view of an ordered lab test.
type VisitLabTest struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Status      string          `json:"status"`
	Result      json.RawMessage `json:"result,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	OrderedAt   time.Time       `json:"ordered_at"`
}

// AppointmentLog lists a patient's appointments for the history view.
type AppointmentLog interface {
	VisitAppointments(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]VisitAppointment, int, error)
}

// LabLog lists a patient's lab tests for the history view.
type LabLog interface {
	VisitLabTests(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]VisitLabTest, int, error)
}

type Handler struct {
	appointments AppointmentStats
	balance      BalanceSource
	patients     PatientResolver
	visits       AppointmentLog
	labs         LabLog
}

func NewHandler(appointments AppointmentStats, balance BalanceSource, patients PatientResolver, visits AppointmentLog, labs LabLog) *Handler {
	return &Handler{appointments: appointments, balance: balance, patients: patients, visits: visits, labs: labs}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patient/dashboard", h.PatientDashboard, auth.RequireRole("patient"))
	api.GET("/patient/history", h.PatientHistory, auth.RequireRole("patient"))
}

type patientDashboard struct {
	PendingAppointments   int     `json:"pending_appointments"`
	ApprovedAppointments  int     `json:"approved_appointments"`
	CompletedAppointments int     `json:"completed_appointments"`
	UnpaidTotal           float64 `json:"unpaid_total"`
}

func (h *Handler) PatientDashboard(c echo.Context) error {
	userID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	ctx := c.Request().Context()
	patientID, err := h.patients.PatientIDForUser(ctx, userID)
	if err != nil {
		return err
	}

	var out patientDashboard
	counts := []struct {
		status string
		dest   *int
	}{
		{"pending", &out.PendingAppointments},
		{"approved", &out.ApprovedAppointments},
		{"completed", &out.CompletedAppointments},
	}
	for _, q := range counts {
		n, err := h.appointments.CountForPatient(ctx, patientID, q.status)
		if err != nil {
			return err
		}
		*q.dest = n
	}

	if out.UnpaidTotal, err = h.balance.UnpaidTotal(ctx, patientID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

type patientHistory struct {
	Appointments []VisitAppointment `json:"appointments"`
	LabTests     []VisitLabTest     `json:"lab_tests"`
}

// PatientHistory returns the patient's visit record: their appointments and
// ordered lab tests.
func (h *Handler) PatientHistory(c echo.Context) error {
	patientID, err := h.currentPatientID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)

	appts, _, err := h.visits.VisitAppointments(ctx, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	tests, _, err := h.labs.VisitLabTests(ctx, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if appts == nil {
		appts = []VisitAppointment{}
	}
	if tests == nil {
		tests = []VisitLabTest{}
	}
	return c.JSON(http.StatusOK, patientHistory{Appointments: appts, LabTests: tests})
}

func (h *Handler) currentPatientID(c echo.Context) (uuid.UUID, error) {
	userID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	return h.patients.PatientIDForUser(c.Request().Context(), userID)
}
