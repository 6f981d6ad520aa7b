package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
)

type stubStats struct {
	counts map[string]int
}

func (s stubStats) CountForPatient(_ context.Context, _ uuid.UUID, status string) (int, error) {
	return s.counts[status], nil
}

type stubBalance struct {
	total float64
}

func (s stubBalance) UnpaidTotal(context.Context, uuid.UUID) (float64, error) {
	return s.total, nil
}

type stubResolver struct {
	id uuid.UUID
}

func (s stubResolver) PatientIDForUser(context.Context, uuid.UUID) (uuid.UUID, error) {
	return s.id, nil
}

type stubVisitLog struct {
	appts []VisitAppointment
}

func (s stubVisitLog) VisitAppointments(context.Context, uuid.UUID, int, int) ([]VisitAppointment, int, error) {
	return s.appts, len(s.appts), nil
}

type stubLabLog struct {
	tests []VisitLabTest
}

func (s stubLabLog) VisitLabTests(context.Context, uuid.UUID, int, int) ([]VisitLabTest, int, error) {
	return s.tests, len(s.tests), nil
}

func patientContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder) echo.Context {
	ctx := context.WithValue(req.Context(), auth.UserIDKey, uuid.NewString())
	return e.NewContext(req.WithContext(ctx), rec)
}

func TestPatientDashboard(t *testing.T) {
	h := NewHandler(
		stubStats{counts: map[string]int{"pending": 2, "approved": 1, "completed": 4}},
		stubBalance{total: 350},
		stubResolver{id: uuid.New()},
		stubVisitLog{}, stubLabLog{})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/patient/dashboard", nil)
	rec := httptest.NewRecorder()

	if err := h.PatientDashboard(patientContext(e, req, rec)); err != nil {
		t.Fatalf("PatientDashboard: %v", err)
	}
	var out patientDashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.PendingAppointments != 2 || out.ApprovedAppointments != 1 || out.CompletedAppointments != 4 {
		t.Errorf("counts = %+v", out)
	}
	if out.UnpaidTotal != 350 {
		t.Errorf("unpaid total = %v", out.UnpaidTotal)
	}
}

func TestPatientHistory(t *testing.T) {
	notes := "routine checkup"
	completed := time.Now()
	h := NewHandler(
		stubStats{}, stubBalance{}, stubResolver{id: uuid.New()},
		stubVisitLog{appts: []VisitAppointment{
			{ID: uuid.New(), Date: "2026-08-20", Time: "09:40", Status: "completed", Notes: &notes},
		}},
		stubLabLog{tests: []VisitLabTest{
			{ID: uuid.New(), Name: "CBC", Status: "completed", CompletedAt: &completed, OrderedAt: completed},
		}})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/patient/history", nil)
	rec := httptest.NewRecorder()

	if err := h.PatientHistory(patientContext(e, req, rec)); err != nil {
		t.Fatalf("PatientHistory: %v", err)
	}
	var out patientHistory
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Appointments) != 1 || out.Appointments[0].Time != "09:40" {
		t.Errorf("appointments = %+v", out.Appointments)
	}
	if len(out.LabTests) != 1 || out.LabTests[0].Name != "CBC" {
		t.Errorf("lab tests = %+v", out.LabTests)
	}
}

func TestPatientHistory_EmptyLists(t *testing.T) {
	h := NewHandler(stubStats{}, stubBalance{}, stubResolver{id: uuid.New()},
		stubVisitLog{}, stubLabLog{})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/patient/history", nil)
	rec := httptest.NewRecorder()

	if err := h.PatientHistory(patientContext(e, req, rec)); err != nil {
		t.Fatalf("PatientHistory: %v", err)
	}
	body := rec.Body.String()
	var out struct {
		Appointments []VisitAppointment `json:"appointments"`
		LabTests     []VisitLabTest     `json:"lab_tests"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Appointments == nil || out.LabTests == nil {
		t.Errorf("expected empty arrays, got %s", body)
	}
}
