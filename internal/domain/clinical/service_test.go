package clinical

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apperr"
)

type mockPrescriptionRepo struct {
	items map[uuid.UUID]*Prescription
}

func newMockPrescriptionRepo() *mockPrescriptionRepo {
	return &mockPrescriptionRepo{items: map[uuid.UUID]*Prescription{}}
}

func (m *mockPrescriptionRepo) Create(_ context.Context, p *Prescription) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *mockPrescriptionRepo) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("Prescription not found")
	}
	cp := *p
	return &cp, nil
}

func (m *mockPrescriptionRepo) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*Prescription, error) {
	for _, p := range m.items {
		if p.AppointmentID == appointmentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Prescription not found")
}

func (m *mockPrescriptionRepo) ListByPatient(_ context.Context, patientID uuid.UUID, _, _ int) ([]*Prescription, int, error) {
	var out []*Prescription
	for _, p := range m.items {
		if p.PatientID == patientID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *mockPrescriptionRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, _, _ int) ([]*Prescription, int, error) {
	var out []*Prescription
	for _, p := range m.items {
		if p.DoctorID == doctorID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *mockPrescriptionRepo) ListPendingDispense(_ context.Context, _, _ int) ([]*Prescription, int, error) {
	var out []*Prescription
	for _, p := range m.items {
		if !p.Dispensed {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *mockPrescriptionRepo) Update(_ context.Context, p *Prescription) error {
	stored, ok := m.items[p.ID]
	if !ok || stored.Dispensed {
		return apperr.NotFound("Prescription not found")
	}
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *mockPrescriptionRepo) Delete(_ context.Context, id, doctorID uuid.UUID) error {
	p, ok := m.items[id]
	if !ok || p.DoctorID != doctorID || p.Dispensed {
		return apperr.NotFound("Prescription not found")
	}
	delete(m.items, id)
	return nil
}

func (m *mockPrescriptionRepo) MarkDispensed(_ context.Context, id uuid.UUID) error {
	p, ok := m.items[id]
	if !ok || p.Dispensed {
		return apperr.NotFound("Prescription not found")
	}
	now := time.Now()
	p.Dispensed = true
	p.DispensedAt = &now
	return nil
}

type mockDiagnosisRepo struct {
	items map[uuid.UUID]*SavedDiagnosis
}

func (m *mockDiagnosisRepo) Create(_ context.Context, d *SavedDiagnosis) error {
	d.ID = uuid.New()
	m.items[d.ID] = d
	return nil
}

func (m *mockDiagnosisRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*SavedDiagnosis, error) {
	var out []*SavedDiagnosis
	for _, d := range m.items {
		if d.DoctorID == doctorID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDiagnosisRepo) Delete(_ context.Context, id, doctorID uuid.UUID) error {
	d, ok := m.items[id]
	if !ok || d.DoctorID != doctorID {
		return apperr.NotFound("Diagnosis not found")
	}
	delete(m.items, id)
	return nil
}

type mockGroupRepo struct {
	items map[uuid.UUID]*MedicineGroup
}

func (m *mockGroupRepo) Create(_ context.Context, g *MedicineGroup) error {
	g.ID = uuid.New()
	m.items[g.ID] = g
	return nil
}

func (m *mockGroupRepo) GetByID(_ context.Context, id uuid.UUID) (*MedicineGroup, error) {
	g, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("Medicine group not found")
	}
	return g, nil
}

func (m *mockGroupRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*MedicineGroup, error) {
	var out []*MedicineGroup
	for _, g := range m.items {
		if g.DoctorID == doctorID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockGroupRepo) Update(_ context.Context, g *MedicineGroup) error {
	existing, ok := m.items[g.ID]
	if !ok || existing.DoctorID != g.DoctorID {
		return apperr.NotFound("Medicine group not found")
	}
	m.items[g.ID] = g
	return nil
}

func (m *mockGroupRepo) Delete(_ context.Context, id, doctorID uuid.UUID) error {
	g, ok := m.items[id]
	if !ok || g.DoctorID != doctorID {
		return apperr.NotFound("Medicine group not found")
	}
	delete(m.items, id)
	return nil
}

type mockAppointments struct {
	refs      map[uuid.UUID]*AppointmentRef
	completed []uuid.UUID
}

func (m *mockAppointments) AppointmentRef(_ context.Context, id uuid.UUID) (*AppointmentRef, error) {
	ref, ok := m.refs[id]
	if !ok {
		return nil, apperr.NotFound("Appointment not found")
	}
	return ref, nil
}

func (m *mockAppointments) Complete(_ context.Context, id uuid.UUID) error {
	m.completed = append(m.completed, id)
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *mockPrescriptionRepo, *mockAppointments) {
	prescriptions := newMockPrescriptionRepo()
	appointments := &mockAppointments{refs: map[uuid.UUID]*AppointmentRef{}}
	svc := NewService(prescriptions,
		&mockDiagnosisRepo{items: map[uuid.UUID]*SavedDiagnosis{}},
		&mockGroupRepo{items: map[uuid.UUID]*MedicineGroup{}},
		appointments, passthroughTx{}, zerolog.Nop())
	return svc, prescriptions, appointments
}

func approvedAppointment(appointments *mockAppointments, doctorID uuid.UUID) *AppointmentRef {
	ref := &AppointmentRef{ID: uuid.New(), PatientID: uuid.New(), DoctorID: doctorID, Status: "approved"}
	appointments.refs[ref.ID] = ref
	return ref
}

func TestCreatePrescription_CompletesAppointment(t *testing.T) {
	svc, _, appointments := newTestService()
	ctx := context.Background()
	doctorID := uuid.New()
	ref := approvedAppointment(appointments, doctorID)

	p, err := svc.CreatePrescription(ctx, doctorID, &CreatePrescriptionInput{
		AppointmentID: ref.ID,
		Complaints:    "persistent cough",
		Medicines: []MedicineLine{
			{InventoryID: uuid.New(), Name: "Amoxicillin 500mg", Quantity: 14, Dosage: "1 capsule twice daily"},
		},
	})
	if err != nil {
		t.Fatalf("CreatePrescription: %v", err)
	}
	if p.PatientID != ref.PatientID {
		t.Errorf("patient id not taken from appointment")
	}
	if len(appointments.completed) != 1 || appointments.completed[0] != ref.ID {
		t.Errorf("appointment was not completed: %v", appointments.completed)
	}
}

func TestCreatePrescription_Validation(t *testing.T) {
	svc, _, appointments := newTestService()
	ctx := context.Background()
	doctorID := uuid.New()
	ref := approvedAppointment(appointments, doctorID)

	cases := []struct {
		name string
		in   CreatePrescriptionInput
	}{
		{"missing appointment", CreatePrescriptionInput{Complaints: "fever"}},
		{"missing complaints", CreatePrescriptionInput{AppointmentID: ref.ID}},
		{"unnamed medicine", CreatePrescriptionInput{AppointmentID: ref.ID, Complaints: "fever",
			Medicines: []MedicineLine{{InventoryID: uuid.New(), Quantity: 2}}}},
		{"zero quantity", CreatePrescriptionInput{AppointmentID: ref.ID, Complaints: "fever",
			Medicines: []MedicineLine{{InventoryID: uuid.New(), Name: "Panadol", Quantity: 0}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreatePrescription(ctx, doctorID, &tc.in)
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreatePrescription_WrongDoctor(t *testing.T) {
	svc, _, appointments := newTestService()
	ref := approvedAppointment(appointments, uuid.New())

	_, err := svc.CreatePrescription(context.Background(), uuid.New(), &CreatePrescriptionInput{
		AppointmentID: ref.ID, Complaints: "fever",
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreatePrescription_TerminalAppointment(t *testing.T) {
	svc, _, appointments := newTestService()
	doctorID := uuid.New()
	ref := approvedAppointment(appointments, doctorID)
	ref.Status = "completed"

	_, err := svc.CreatePrescription(context.Background(), doctorID, &CreatePrescriptionInput{
		AppointmentID: ref.ID, Complaints: "fever",
	})
	if apperr.KindOf(err) != apperr.KindInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestCreatePrescription_DuplicateForAppointment(t *testing.T) {
	svc, _, appointments := newTestService()
	ctx := context.Background()
	doctorID := uuid.New()
	ref := approvedAppointment(appointments, doctorID)

	if _, err := svc.CreatePrescription(ctx, doctorID, &CreatePrescriptionInput{
		AppointmentID: ref.ID, Complaints: "fever",
	}); err != nil {
		t.Fatalf("first prescription: %v", err)
	}

	_, err := svc.CreatePrescription(ctx, doctorID, &CreatePrescriptionInput{
		AppointmentID: ref.ID, Complaints: "fever again",
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMarkDispensed(t *testing.T) {
	svc, repo, appointments := newTestService()
	ctx := context.Background()
	doctorID := uuid.New()
	ref := approvedAppointment(appointments, doctorID)

	p, err := svc.CreatePrescription(ctx, doctorID, &CreatePrescriptionInput{
		AppointmentID: ref.ID, Complaints: "fever",
	})
	if err != nil {
		t.Fatalf("CreatePrescription: %v", err)
	}

	if err := svc.MarkDispensed(ctx, p.ID); err != nil {
		t.Fatalf("MarkDispensed: %v", err)
	}
	got, _ := repo.GetByID(ctx, p.ID)
	if !got.Dispensed || got.DispensedAt == nil {
		t.Errorf("prescription not marked dispensed: %+v", got)
	}

	pending, _, err := svc.PendingDispense(ctx, 10, 0)
	if err != nil {
		t.Fatalf("PendingDispense: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("dispensed prescription still pending")
	}
}

func TestSaveDiagnosis_RequiresText(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.SaveDiagnosis(context.Background(), uuid.New(), ""); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMedicineGroups(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	doctorID := uuid.New()

	if _, err := svc.CreateMedicineGroup(ctx, doctorID, "", nil); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("empty name should fail, got %v", err)
	}
	if _, err := svc.CreateMedicineGroup(ctx, doctorID, "Flu pack", nil); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("empty medicines should fail, got %v", err)
	}

	g, err := svc.CreateMedicineGroup(ctx, doctorID, "Flu pack", []MedicineLine{
		{InventoryID: uuid.New(), Name: "Panadol", Quantity: 10},
	})
	if err != nil {
		t.Fatalf("CreateMedicineGroup: %v", err)
	}

	groups, err := svc.ListMedicineGroups(ctx, doctorID)
	if err != nil || len(groups) != 1 {
		t.Fatalf("ListMedicineGroups = %v, %v", groups, err)
	}

	if err := svc.DeleteMedicineGroup(ctx, g.ID, uuid.New()); !apperr.IsNotFound(err) {
		t.Errorf("deleting another doctor's group should 404, got %v", err)
	}
	if err := svc.DeleteMedicineGroup(ctx, g.ID, doctorID); err != nil {
		t.Errorf("DeleteMedicineGroup: %v", err)
	}
}

func TestUpdatePrescription(t *testing.T) {
	svc, repo, appointments := newTestService()
	ctx := context.Background()
	doctorID := uuid.New()
	ref := approvedAppointment(appointments, doctorID)

	p, err := svc.CreatePrescription(ctx, doctorID, &CreatePrescriptionInput{
		AppointmentID: ref.ID,
		Complaints:    "headache",
		Medicines:     []MedicineLine{{InventoryID: uuid.New(), Name: "Paracetamol", Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("CreatePrescription: %v", err)
	}

	updated, err := svc.UpdatePrescription(ctx, p.ID, doctorID, &UpdatePrescriptionInput{
		Complaints: "headache with fever",
		Medicines:  []MedicineLine{{InventoryID: uuid.New(), Name: "Ibuprofen", Quantity: 12}},
	})
	if err != nil {
		t.Fatalf("UpdatePrescription: %v", err)
	}
	if updated.Complaints != "headache with fever" {
		t.Errorf("complaints = %q", updated.Complaints)
	}
	stored := repo.items[p.ID]
	if len(stored.Medicines) != 1 || stored.Medicines[0].Name != "Ibuprofen" {
		t.Errorf("medicines not replaced: %+v", stored.Medicines)
	}

	if _, err := svc.UpdatePrescription(ctx, p.ID, uuid.New(), &UpdatePrescriptionInput{Complaints: "x"}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for other doctor, got %v", err)
	}

	if err := svc.MarkDispensed(ctx, p.ID); err != nil {
		t.Fatalf("MarkDispensed: %v", err)
	}
	if _, err := svc.UpdatePrescription(ctx, p.ID, doctorID, &UpdatePrescriptionInput{Complaints: "late edit"}); apperr.KindOf(err) != apperr.KindInvalidTransition {
		t.Errorf("expected invalid transition after dispense, got %v", err)
	}
}

func TestDeletePrescription(t *testing.T) {
	svc, repo, appointments := newTestService()
	ctx := context.Background()
	doctorID := uuid.New()
	ref := approvedAppointment(appointments, doctorID)

	p, err := svc.CreatePrescription(ctx, doctorID, &CreatePrescriptionInput{
		AppointmentID: ref.ID,
		Complaints:    "sore throat",
	})
	if err != nil {
		t.Fatalf("CreatePrescription: %v", err)
	}

	if err := svc.DeletePrescription(ctx, p.ID, doctorID); err != nil {
		t.Fatalf("DeletePrescription: %v", err)
	}
	if _, ok := repo.items[p.ID]; ok {
		t.Error("prescription still stored after delete")
	}
}

func TestDeletePrescription_DispensedRejected(t *testing.T) {
	svc, _, appointments := newTestService()
	ctx := context.Background()
	doctorID := uuid.New()
	ref := approvedAppointment(appointments, doctorID)

	p, err := svc.CreatePrescription(ctx, doctorID, &CreatePrescriptionInput{
		AppointmentID: ref.ID,
		Complaints:    "rash",
	})
	if err != nil {
		t.Fatalf("CreatePrescription: %v", err)
	}
	if err := svc.MarkDispensed(ctx, p.ID); err != nil {
		t.Fatalf("MarkDispensed: %v", err)
	}
	if err := svc.DeletePrescription(ctx, p.ID, doctorID); apperr.KindOf(err) != apperr.KindInvalidTransition {
		t.Errorf("expected invalid transition, got %v", err)
	}
}
