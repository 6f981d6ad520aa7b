package clinical

import (
	"context"
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
	doctorGroup := api.Group("/doctor", auth.RequireRole("doctor"))
	doctorGroup.POST("/prescriptions", h.CreatePrescription)
	doctorGroup.GET("/prescriptions", h.ListDoctorPrescriptions)
	doctorGroup.GET("/prescriptions/:id", h.GetPrescription)
	doctorGroup.PUT("/prescriptions/:id", h.UpdatePrescription)
	doctorGroup.DELETE("/prescriptions/:id", h.DeletePrescription)
	doctorGroup.GET("/diagnoses", h.ListDiagnoses)
	doctorGroup.POST("/diagnoses", h.SaveDiagnosis)
	doctorGroup.DELETE("/diagnoses/:id", h.DeleteDiagnosis)
	doctorGroup.GET("/medicine-groups", h.ListMedicineGroups)
	doctorGroup.POST("/medicine-groups", h.CreateMedicineGroup)
	doctorGroup.PUT("/medicine-groups/:id", h.UpdateMedicineGroup)
	doctorGroup.DELETE("/medicine-groups/:id", h.DeleteMedicineGroup)

	patientGroup := api.Group("/patient", auth.RequireRole("patient"))
	patientGroup.GET("/prescriptions", h.ListOwnPrescriptions)

	pharmacyGroup := api.Group("/pharmacy", auth.RequireRole("pharmacist", "admin"))
	pharmacyGroup.GET("/prescriptions", h.ListPendingDispense)
	pharmacyGroup.GET("/prescriptions/:id", h.GetPrescription)
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	doctorID, err := h.currentDoctorID(c)
	if err != nil {
		return err
	}
	var in CreatePrescriptionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.CreatePrescription(c.Request().Context(), doctorID, &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdatePrescription(c echo.Context) error {
	doctorID, err := h.currentDoctorID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in UpdatePrescriptionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.UpdatePrescription(c.Request().Context(), id, doctorID, &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePrescription(c echo.Context) error {
	doctorID, err := h.currentDoctorID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeletePrescription(c.Request().Context(), id, doctorID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPrescription(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListDoctorPrescriptions(c echo.Context) error {
	doctorID, err := h.currentDoctorID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForDoctor(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListOwnPrescriptions(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	patientID, err := h.patients.PatientIDForUser(c.Request().Context(), userID)
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

func (h *Handler) ListPendingDispense(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.PendingDispense(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type saveDiagnosisInput struct {
	Text string `json:"text"`
}

func (h *Handler) SaveDiagnosis(c echo.Context) error {
	doctorID, err := h.currentDoctorID(c)
	if err != nil {
		return err
	}
	var in saveDiagnosisInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.SaveDiagnosis(c.Request().Context(), doctorID, in.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) ListDiagnoses(c echo.Context) error {
	doctorID, err := h.currentDoctorID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListDiagnoses(c.Request().Context(), doctorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DeleteDiagnosis(c echo.Context) error {
	doctorID, err := h.currentDoctorID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteDiagnosis(c.Request().Context(), id, doctorID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type medicineGroupInput struct {
	Name      string         `json:"name"`
	Medicines []MedicineLine `json:"medicines"`
}

func (h *Handler) CreateMedicineGroup(c echo.Context) error {
	doctorID, err := h.currentDoctorID(c)
	if err != nil {
		return err
	}
	var in medicineGroupInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	g, err := h.svc.CreateMedicineGroup(c.Request().Context(), doctorID, in.Name, in.Medicines)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *Handler) ListMedicineGroups(c echo.Context) error {
	doctorID, err := h.currentDoctorID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListMedicineGroups(c.Request().Context(), doctorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateMedicineGroup(c echo.Context) error {
	doctorID, err := h.currentDoctorID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in medicineGroupInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	g := &MedicineGroup{ID: id, DoctorID: doctorID, Name: in.Name, Medicines: in.Medicines}
	if err := h.svc.UpdateMedicineGroup(c.Request().Context(), g); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handler) DeleteMedicineGroup(c echo.Context) error {
	doctorID, err := h.currentDoctorID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteMedicineGroup(c.Request().Context(), id, doctorID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func currentUserID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	return id, nil
}

func (h *Handler) currentDoctorID(c echo.Context) (uuid.UUID, error) {
	userID, err := currentUserID(c)
	if err != nil {
		return uuid.Nil, err
	}
	return h.doctors.DoctorIDForUser(c.Request().Context(), userID)
}
