package lab

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apperr"
)

type mockCategoryRepo struct {
	items map[uuid.UUID]*TestCategory
}

func (m *mockCategoryRepo) Create(_ context.Context, c *TestCategory) error {
	for _, existing := range m.items {
		if existing.Code == c.Code {
			return apperr.Validation("A category with this code already exists")
		}
	}
	c.ID = uuid.New()
	m.items[c.ID] = c
	return nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id uuid.UUID) (*TestCategory, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("Test category not found")
	}
	return c, nil
}

func (m *mockCategoryRepo) List(_ context.Context, labType string) ([]*TestCategory, error) {
	var out []*TestCategory
	for _, c := range m.items {
		if labType == "" || c.LabType == labType {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCategoryRepo) Update(_ context.Context, c *TestCategory) error {
	if _, ok := m.items[c.ID]; !ok {
		return apperr.NotFound("Test category not found")
	}
	m.items[c.ID] = c
	return nil
}

type mockDefinitionRepo struct {
	items map[uuid.UUID]*TestDefinition
}

func (m *mockDefinitionRepo) Create(_ context.Context, d *TestDefinition) error {
	d.ID = uuid.New()
	m.items[d.ID] = d
	return nil
}

func (m *mockDefinitionRepo) GetByID(_ context.Context, id uuid.UUID) (*TestDefinition, error) {
	d, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("Test definition not found")
	}
	return d, nil
}

func (m *mockDefinitionRepo) ListByCategory(_ context.Context, categoryID uuid.UUID) ([]*TestDefinition, error) {
	var out []*TestDefinition
	for _, d := range m.items {
		if d.CategoryID == categoryID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDefinitionRepo) Update(_ context.Context, d *TestDefinition) error {
	if _, ok := m.items[d.ID]; !ok {
		return apperr.NotFound("Test definition not found")
	}
	m.items[d.ID] = d
	return nil
}

func (m *mockDefinitionRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("Test definition not found")
	}
	delete(m.items, id)
	return nil
}

type mockTestRepo struct {
	items map[uuid.UUID]*LabTest
}

func (m *mockTestRepo) Create(_ context.Context, t *LabTest) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	m.items[t.ID] = t
	return nil
}

func (m *mockTestRepo) GetByID(_ context.Context, id uuid.UUID) (*LabTest, error) {
	t, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("Lab test not found")
	}
	cp := *t
	return &cp, nil
}

func (m *mockTestRepo) RecordResult(_ context.Context, id uuid.UUID, result json.RawMessage) error {
	t, ok := m.items[id]
	if !ok || t.Status != StatusPending {
		return apperr.NotFound("Lab test not found")
	}
	now := time.Now()
	t.Status = StatusCompleted
	t.Result = result
	t.CompletedAt = &now
	return nil
}

func (m *mockTestRepo) ListByStatus(_ context.Context, status string, _, _ int) ([]*LabTest, int, error) {
	var out []*LabTest
	for _, t := range m.items {
		if t.Status == status {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *mockTestRepo) ListByPatient(_ context.Context, patientID uuid.UUID, _, _ int) ([]*LabTest, int, error) {
	var out []*LabTest
	for _, t := range m.items {
		if t.PatientID == patientID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

type recordingCharges struct {
	amount float64
	calls  int
}

func (r *recordingCharges) CreateCharge(_ context.Context, _ uuid.UUID, amount float64, _ string) error {
	r.amount = amount
	r.calls++
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *recordingCharges) {
	charges := &recordingCharges{}
	svc := NewService(
		&mockCategoryRepo{items: map[uuid.UUID]*TestCategory{}},
		&mockDefinitionRepo{items: map[uuid.UUID]*TestDefinition{}},
		&mockTestRepo{items: map[uuid.UUID]*LabTest{}},
		passthroughTx{}, zerolog.Nop())
	svc.SetChargeCreator(charges)
	return svc, charges
}

func seedDefinition(t *testing.T, svc *Service, price float64) *TestDefinition {
	t.Helper()
	ctx := context.Background()
	category, err := svc.CreateCategory(ctx, &CategoryInput{Code: "CBC", Name: "Hematology", LabType: LabTypePathology})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	def, err := svc.CreateDefinition(ctx, &DefinitionInput{CategoryID: category.ID, Name: "Complete Blood Count", Price: price})
	if err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}
	return def
}

func TestCreateCategory_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		in   CategoryInput
	}{
		{"missing code", CategoryInput{Name: "Hematology", LabType: LabTypePathology}},
		{"missing name", CategoryInput{Code: "CBC", LabType: LabTypePathology}},
		{"bad lab type", CategoryInput{Code: "CBC", Name: "Hematology", LabType: "chemistry"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateCategory(ctx, &tc.in)
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateCategory_DuplicateCode(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	in := CategoryInput{Code: "CBC", Name: "Hematology", LabType: LabTypePathology}
	first, err := svc.CreateCategory(ctx, &in)
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if first.Status != CategoryActive {
		t.Errorf("new category should default to active, got %s", first.Status)
	}

	_, err = svc.CreateCategory(ctx, &in)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for duplicate code, got %v", err)
	}
}

func TestCreateDefinition_InactiveCategory(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, &CategoryInput{Code: "XR", Name: "X-Ray", LabType: LabTypeRadiology})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := svc.UpdateCategory(ctx, category.ID, &CategoryInput{
		Code: "XR", Name: "X-Ray", LabType: LabTypeRadiology, Status: CategoryInactive,
	}); err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}

	_, err = svc.CreateDefinition(ctx, &DefinitionInput{CategoryID: category.ID, Name: "Chest X-Ray", Price: 500})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for inactive category, got %v", err)
	}
}

func TestOrderTest_BillsPatient(t *testing.T) {
	svc, charges := newTestService()
	ctx := context.Background()
	def := seedDefinition(t, svc, 750)

	test, err := svc.OrderTest(ctx, uuid.New(), &OrderInput{PatientID: uuid.New(), DefinitionID: def.ID})
	if err != nil {
		t.Fatalf("OrderTest: %v", err)
	}
	if test.Status != StatusPending {
		t.Errorf("status = %s, want %s", test.Status, StatusPending)
	}
	if charges.calls != 1 || charges.amount != 750 {
		t.Errorf("charge = %+v", charges)
	}
}

func TestRecordResult(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	def := seedDefinition(t, svc, 100)

	test, err := svc.OrderTest(ctx, uuid.New(), &OrderInput{PatientID: uuid.New(), DefinitionID: def.ID})
	if err != nil {
		t.Fatalf("OrderTest: %v", err)
	}

	if _, err := svc.RecordResult(ctx, test.ID, nil); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("empty result should fail validation, got %v", err)
	}

	result := json.RawMessage(`{"hemoglobin": 13.5, "unit": "g/dL"}`)
	completed, err := svc.RecordResult(ctx, test.ID, result)
	if err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	if completed.Status != StatusCompleted || completed.CompletedAt == nil {
		t.Errorf("test not completed: %+v", completed)
	}

	_, err = svc.RecordResult(ctx, test.ID, result)
	if apperr.KindOf(err) != apperr.KindInvalidTransition {
		t.Fatalf("second result should be rejected, got %v", err)
	}
}

func TestListTestsByStatus_RejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService()
	_, _, err := svc.ListTestsByStatus(context.Background(), "archived", 10, 0)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
