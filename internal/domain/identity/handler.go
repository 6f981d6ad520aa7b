package identity

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the public auth endpoints and the authenticated
// directory and profile endpoints.
func (h *Handler) RegisterRoutes(public *echo.Group, api *echo.Group) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)

	authGroup := api.Group("/auth")
	authGroup.GET("/doctors", h.ListDoctors)
	authGroup.GET("/doctors/:id", h.GetDoctor)
	authGroup.GET("/patients", h.ListPatients, auth.RequireRole("doctor", "cashier", "pharmacist", "lab_tech"))
	authGroup.GET("/patients/:id", h.GetPatient, auth.RequireRole("doctor", "cashier", "pharmacist", "lab_tech"))
	authGroup.GET("/patient-search", h.SearchPatientByCNIC, auth.RequireRole("doctor", "cashier", "pharmacist", "lab_tech"))

	patientGroup := api.Group("/patient", auth.RequireRole("patient"))
	patientGroup.GET("/profile", h.GetOwnPatientProfile)
	patientGroup.PUT("/profile", h.UpdateOwnPatientProfile)

	doctorGroup := api.Group("/doctor", auth.RequireRole("doctor"))
	doctorGroup.GET("/profile", h.GetOwnDoctorProfile)
	doctorGroup.PUT("/profile", h.UpdateOwnDoctorProfile)
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	session, err := h.svc.Register(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, session)
}

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	session, err := h.svc.Login(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doctor, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doctor)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	patient, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, patient)
}

func (h *Handler) SearchPatientByCNIC(c echo.Context) error {
	patient, err := h.svc.SearchPatientByCNIC(c.Request().Context(), c.QueryParam("cnic"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, patient)
}

// currentUserID resolves the authenticated user id from the request context.
func currentUserID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	return id, nil
}

func (h *Handler) GetOwnPatientProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	patient, err := h.svc.GetPatientByUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, patient)
}

func (h *Handler) UpdateOwnPatientProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	current, err := h.svc.GetPatientByUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	var in Patient
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in.ID = current.ID
	in.UserID = current.UserID
	if err := h.svc.UpdatePatient(c.Request().Context(), &in); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, in)
}

func (h *Handler) GetOwnDoctorProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	doctor, err := h.svc.GetDoctorByUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doctor)
}

func (h *Handler) UpdateOwnDoctorProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	current, err := h.svc.GetDoctorByUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	var in Doctor
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in.ID = current.ID
	in.UserID = current.UserID
	if err := h.svc.UpdateDoctor(c.Request().Context(), &in); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, in)
}
