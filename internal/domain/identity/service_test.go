package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperr"
)

type mockUserRepo struct {
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(ctx context.Context, u *User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperr.Validation("Email is already registered")
		}
	}
	u.ID = uuid.New()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("User not found")
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperr.NotFound("User not found")
}

type mockPatientRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	if p, ok := m.patients[id]; ok {
		return p, nil
	}
	return nil, apperr.NotFound("Patient not found")
}

func (m *mockPatientRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	for _, p := range m.patients {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, apperr.NotFound("Patient not found")
}

func (m *mockPatientRepo) GetByCNIC(ctx context.Context, cnic string) (*Patient, error) {
	for _, p := range m.patients {
		if p.CNIC != nil && *p.CNIC == cnic {
			return p, nil
		}
	}
	return nil, apperr.NotFound("Patient not found")
}

func (m *mockPatientRepo) Update(ctx context.Context, p *Patient) error {
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var items []*Patient
	for _, p := range m.patients {
		items = append(items, p)
	}
	return items, len(items), nil
}

type mockDoctorRepo struct {
	doctors map[uuid.UUID]*Doctor
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[uuid.UUID]*Doctor)}
}

func (m *mockDoctorRepo) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	if d, ok := m.doctors[id]; ok {
		return d, nil
	}
	return nil, apperr.NotFound("Doctor not found")
}

func (m *mockDoctorRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	for _, d := range m.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, apperr.NotFound("Doctor not found")
}

func (m *mockDoctorRepo) Update(ctx context.Context, d *Doctor) error {
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var items []*Doctor
	for _, d := range m.doctors {
		items = append(items, d)
	}
	return items, len(items), nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type staticTokens struct{}

func (staticTokens) Issue(userID uuid.UUID, role string) (string, error) {
	return "token-" + role, nil
}

func newTestService() (*Service, *mockUserRepo, *mockPatientRepo, *mockDoctorRepo) {
	users := newMockUserRepo()
	patients := newMockPatientRepo()
	doctors := newMockDoctorRepo()
	svc := NewService(users, patients, doctors, passthroughTx{}, staticTokens{})
	return svc, users, patients, doctors
}

func TestRegister_PatientCreatesProfile(t *testing.T) {
	svc, _, patients, _ := newTestService()

	cnic := "12345-6789012-3"
	session, err := svc.Register(context.Background(), &RegisterInput{
		Name:     "Ayesha Khan",
		Email:    "Ayesha@Example.com",
		Password: "secret1",
		Role:     RolePatient,
		CNIC:     &cnic,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Token == "" {
		t.Error("expected a session token")
	}
	if session.User.Email != "ayesha@example.com" {
		t.Errorf("expected normalized email, got %s", session.User.Email)
	}

	p, err := patients.GetByUserID(context.Background(), session.User.ID)
	if err != nil {
		t.Fatalf("expected patient profile: %v", err)
	}
	if p.CNIC == nil || *p.CNIC != cnic {
		t.Error("expected CNIC carried to patient profile")
	}
}

func TestRegister_DoctorCreatesProfile(t *testing.T) {
	svc, _, _, doctors := newTestService()

	spec := "Cardiology"
	session, err := svc.Register(context.Background(), &RegisterInput{
		Name:            "Dr. Imran",
		Email:           "imran@example.com",
		Password:        "secret1",
		Role:            RoleDoctor,
		Specialization:  &spec,
		ConsultationFee: 1500,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, err := doctors.GetByUserID(context.Background(), session.User.ID)
	if err != nil {
		t.Fatalf("expected doctor profile: %v", err)
	}
	if d.ConsultationFee != 1500 {
		t.Errorf("expected fee 1500, got %f", d.ConsultationFee)
	}
	if d.ShiftStart != nil {
		t.Error("expected new doctor to have no shift timings")
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _, _ := newTestService()

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"missing name", RegisterInput{Email: "a@b.c", Password: "secret1"}},
		{"missing email", RegisterInput{Name: "A", Password: "secret1"}},
		{"short password", RegisterInput{Name: "A", Email: "a@b.c", Password: "abc"}},
		{"bad role", RegisterInput{Name: "A", Email: "a@b.c", Password: "secret1", Role: "surgeon"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), &tc.in)
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService()

	in := RegisterInput{Name: "A", Email: "a@b.c", Password: "secret1", Role: RolePatient}
	if _, err := svc.Register(context.Background(), &in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.Register(context.Background(), &in)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error on duplicate email, got %v", err)
	}
}

func TestRegister_DefaultsToPatientRole(t *testing.T) {
	svc, _, _, _ := newTestService()

	session, err := svc.Register(context.Background(), &RegisterInput{
		Name: "A", Email: "a@b.c", Password: "secret1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.User.Role != RolePatient {
		t.Errorf("expected patient role, got %s", session.User.Role)
	}
}

func TestLogin(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Register(context.Background(), &RegisterInput{
		Name: "A", Email: "a@b.c", Password: "secret1", Role: RoleCashier,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	session, err := svc.Login(context.Background(), &LoginInput{Email: "a@b.c", Password: "secret1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Token != "token-cashier" {
		t.Errorf("unexpected token: %s", session.Token)
	}

	if _, err := svc.Login(context.Background(), &LoginInput{Email: "a@b.c", Password: "wrong"}); err == nil {
		t.Error("expected error for wrong password")
	}
	_, err = svc.Login(context.Background(), &LoginInput{Email: "nobody@b.c", Password: "secret1"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for unknown email, got %v", err)
	}
}

func TestUpdateDoctor_ShiftValidation(t *testing.T) {
	svc, _, _, doctors := newTestService()

	d := &Doctor{UserID: uuid.New(), Name: "Dr. Sana", ConsultationFee: 900}
	if err := doctors.Create(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start, end := "9:00", "17:00"
	d.ShiftStart, d.ShiftEnd = &start, &end
	if err := svc.UpdateDoctor(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *d.ShiftStart != "09:00" {
		t.Errorf("expected normalized shift_start 09:00, got %s", *d.ShiftStart)
	}

	onlyStart := "09:00"
	bad := &Doctor{ID: d.ID, Name: "Dr. Sana", ShiftStart: &onlyStart}
	if err := svc.UpdateDoctor(context.Background(), bad); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for dangling shift_start, got %v", err)
	}

	s2, e2 := "17:00", "09:00"
	inverted := &Doctor{ID: d.ID, Name: "Dr. Sana", ShiftStart: &s2, ShiftEnd: &e2}
	if err := svc.UpdateDoctor(context.Background(), inverted); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for inverted shift, got %v", err)
	}
}

func TestSearchPatientByCNIC(t *testing.T) {
	svc, _, patients, _ := newTestService()

	cnic := "42201-1234567-1"
	p := &Patient{UserID: uuid.New(), Name: "Bilal", CNIC: &cnic}
	if err := patients.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, err := svc.SearchPatientByCNIC(context.Background(), cnic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.Name != "Bilal" {
		t.Errorf("unexpected patient: %s", found.Name)
	}

	if _, err := svc.SearchPatientByCNIC(context.Background(), ""); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for empty cnic, got %v", err)
	}
	if _, err := svc.SearchPatientByCNIC(context.Background(), "00000-0000000-0"); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
