package scheduling

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

// PatientResolver maps an authenticated user to their patient profile id.
type PatientResolver interface {
	PatientIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// DoctorResolver maps an authenticated user to their doctor profile id.
type DoctorResolver interface {
	DoctorIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

type Handler struct {
	svc      *Service
	patients PatientResolver
	doctors  DoctorResolver
}

func NewHandler(svc *Service, patients PatientResolver, doctors DoctorResolver) *Handler {
	return &Handler{svc: svc, patients: patients, doctors: doctors}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/slots", h.Slots, auth.RequireRole("patient", "doctor"))

	patientGroup := api.Group("/patient", auth.RequireRole("patient"))
	patientGroup.GET("/appointments", h.ListOwnAppointments)
	patientGroup.POST("/appointments", h.Book)
	patientGroup.PUT("/appointments/:id/cancel", h.Cancel)

	doctorGroup := api.Group("/doctor", auth.RequireRole("doctor"))
	doctorGroup.GET("/slots", h.OwnSlots)
	doctorGroup.GET("/appointments", h.ListDoctorAppointments)
	doctorGroup.GET("/appointments/:id", h.GetAppointment)
	doctorGroup.PUT("/appointments/:id", h.UpdateAppointment)
	doctorGroup.DELETE("/appointments/:id", h.DeleteAppointment)

	adminGroup := api.Group("/appointments", auth.RequireRole("admin", "cashier"))
	adminGroup.GET("", h.SearchAppointments)
	adminGroup.GET("/:id", h.GetAppointment)
}

type slotsResponse struct {
	Message string     `json:"message,omitempty"`
	Slots   []SlotView `json:"slots"`
}

func (h *Handler) Slots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctor_id"))
	if err != nil {
		return apperr.Validation("doctor_id is required")
	}
	result, err := h.svc.Slots(c.Request().Context(), doctorID, c.QueryParam("date"))
	if err != nil {
		return err
	}
	if result.NoShift {
		return c.JSON(http.StatusOK, slotsResponse{Message: "No shift timings defined", Slots: []SlotView{}})
	}
	return c.JSON(http.StatusOK, slotsResponse{Slots: result.Slots})
}

type freeSlotsResponse struct {
	Message string   `json:"message,omitempty"`
	Slots   []string `json:"slots"`
}

// OwnSlots reports the free slot start times for the authenticated doctor.
func (h *Handler) OwnSlots(c echo.Context) error {
	doctorID, err := h.currentDoctorID(c)
	if err != nil {
		return err
	}
	result, err := h.svc.Slots(c.Request().Context(), doctorID, c.QueryParam("date"))
	if err != nil {
		return err
	}
	if result.NoShift {
		return c.JSON(http.StatusOK, freeSlotsResponse{Message: "No shift timings defined", Slots: []string{}})
	}
	free := FreeTimes(result.Slots)
	if free == nil {
		free = []string{}
	}
	return c.JSON(http.StatusOK, freeSlotsResponse{Slots: free})
}

func (h *Handler) Book(c echo.Context) error {
	patientID, err := h.currentPatientID(c)
	if err != nil {
		return err
	}
	var in BookingInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.Book(c.Request().Context(), patientID, &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) Cancel(c echo.Context) error {
	patientID, err := h.currentPatientID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if appt.PatientID != patientID {
		return echo.NewHTTPError(http.StatusForbidden, "appointment belongs to another patient")
	}
	cancelled, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cancelled)
}

func (h *Handler) ListOwnAppointments(c echo.Context) error {
	patientID, err := h.currentPatientID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListDoctorAppointments(c echo.Context) error {
	doctorID, err := h.currentDoctorID(c)
	if err != nil {
		return err
	}
	params := map[string]string{}
	if scope := c.QueryParam("scope"); scope != "" {
		params["scope"] = scope
	}
	if status := c.QueryParam("status"); status != "" {
		params["status"] = status
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForDoctor(c.Request().Context(), doctorID, params, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) SearchAppointments(c echo.Context) error {
	params := map[string]string{}
	for _, key := range []string{"patient_id", "doctor_id", "status", "date"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in AppointmentUpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.UpdateByDoctor(c.Request().Context(), id, &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) currentPatientID(c echo.Context) (uuid.UUID, error) {
	userID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	return h.patients.PatientIDForUser(c.Request().Context(), userID)
}

func (h *Handler) currentDoctorID(c echo.Context) (uuid.UUID, error) {
	userID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	return h.doctors.DoctorIDForUser(c.Request().Context(), userID)
}
