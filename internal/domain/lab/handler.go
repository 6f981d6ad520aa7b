package lab

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

// DoctorResolver maps an authenticated user to their doctor profile id.
type DoctorResolver interface {
	DoctorIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// PatientResolver maps an authenticated user to their patient profile id.
type PatientResolver interface {
	PatientIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

type Handler struct {
	svc      *Service
	doctors  DoctorResolver
	patients PatientResolver
}

func NewHandler(svc *Service, doctors DoctorResolver, patients PatientResolver) *Handler {
	return &Handler{svc: svc, doctors: doctors, patients: patients}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	labGroup := api.Group("/lab", auth.RequireRole("lab_tech", "admin"))
	labGroup.GET("/categories", h.ListCategories)
	labGroup.POST("/categories", h.CreateCategory)
	labGroup.PUT("/categories/:id", h.UpdateCategory)
	labGroup.GET("/definitions", h.ListDefinitions)
	labGroup.POST("/definitions", h.CreateDefinition)
	labGroup.PUT("/definitions/:id", h.UpdateDefinition)
	labGroup.DELETE("/definitions/:id", h.DeleteDefinition)
	labGroup.GET("/tests", h.ListTests)
	labGroup.GET("/tests/:id", h.GetTest)
	labGroup.PUT("/tests/:id/result", h.RecordResult)

	doctorGroup := api.Group("/doctor", auth.RequireRole("doctor"))
	doctorGroup.POST("/lab-tests", h.OrderTest)
	doctorGroup.GET("/lab-tests/:id", h.GetTest)
	doctorGroup.GET("/test-categories", h.ListCategories)
	doctorGroup.GET("/test-definitions", h.ListDefinitions)

	patientGroup := api.Group("/patient", auth.RequireRole("patient"))
	patientGroup.GET("/lab-tests", h.ListOwnTests)
}

func (h *Handler) ListCategories(c echo.Context) error {
	items, err := h.svc.ListCategories(c.Request().Context(), c.QueryParam("lab_type"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateCategory(c echo.Context) error {
	var in CategoryInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	category, err := h.svc.CreateCategory(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, category)
}

func (h *Handler) UpdateCategory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in CategoryInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	category, err := h.svc.UpdateCategory(c.Request().Context(), id, &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, category)
}

func (h *Handler) ListDefinitions(c echo.Context) error {
	categoryID, err := uuid.Parse(c.QueryParam("category_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "category_id is required")
	}
	items, err := h.svc.ListDefinitions(c.Request().Context(), categoryID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateDefinition(c echo.Context) error {
	var in DefinitionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	def, err := h.svc.CreateDefinition(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, def)
}

func (h *Handler) UpdateDefinition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in DefinitionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	def, err := h.svc.UpdateDefinition(c.Request().Context(), id, &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, def)
}

func (h *Handler) DeleteDefinition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteDefinition(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListTests(c echo.Context) error {
	status := c.QueryParam("status")
	if status == "" {
		status = StatusPending
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListTestsByStatus(c.Request().Context(), status, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetTest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.GetTest(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

type resultInput struct {
	Result json.RawMessage `json:"result"`
}

func (h *Handler) RecordResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in resultInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.RecordResult(c.Request().Context(), id, in.Result)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) OrderTest(c echo.Context) error {
	userID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	doctorID, err := h.doctors.DoctorIDForUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	var in OrderInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.OrderTest(c.Request().Context(), doctorID, &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) ListOwnTests(c echo.Context) error {
	userID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	patientID, err := h.patients.PatientIDForUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListTestsForPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
