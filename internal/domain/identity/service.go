package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hms/hms/internal/platform/apperr"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TokenIssuer signs access tokens at login.
type TokenIssuer interface {
	Issue(userID uuid.UUID, role string) (string, error)
}

type Service struct {
	users    UserRepository
	patients PatientRepository
	doctors  DoctorRepository
	tx       TxRunner
	tokens   TokenIssuer
}

func NewService(users UserRepository, patients PatientRepository, doctors DoctorRepository, tx TxRunner, tokens TokenIssuer) *Service {
	return &Service{users: users, patients: patients, doctors: doctors, tx: tx, tokens: tokens}
}

// Register creates a user and its role profile in one transaction, then
// returns a signed session.
func (s *Service) Register(ctx context.Context, in *RegisterInput) (*Session, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("Name is required")
	}
	if strings.TrimSpace(in.Email) == "" {
		return nil, apperr.Validation("Email is required")
	}
	if len(in.Password) < 6 {
		return nil, apperr.Validation("Password must be at least 6 characters")
	}
	if in.Role == "" {
		in.Role = RolePatient
	}
	if !validRoles[in.Role] {
		return nil, apperr.Validation("Invalid role: %s", in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		Name:         in.Name,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
		Role:         in.Role,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		switch user.Role {
		case RolePatient:
			return s.patients.Create(ctx, &Patient{
				UserID:      user.ID,
				Name:        user.Name,
				CNIC:        in.CNIC,
				Gender:      in.Gender,
				ContactInfo: in.ContactInfo,
			})
		case RoleDoctor:
			return s.doctors.Create(ctx, &Doctor{
				UserID:          user.ID,
				Name:            user.Name,
				Specialization:  in.Specialization,
				ConsultationFee: in.ConsultationFee,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

// Login verifies credentials and returns a signed session. Credential
// failures are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, in *LoginInput) (*Session, error) {
	if in.Email == "" || in.Password == "" {
		return nil, apperr.Validation("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Validation("Invalid email or password")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return nil, apperr.Validation("Invalid email or password")
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// -- Patient profile --

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatientByUser(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return s.patients.GetByUserID(ctx, userID)
}

func (s *Service) SearchPatientByCNIC(ctx context.Context, cnic string) (*Patient, error) {
	if strings.TrimSpace(cnic) == "" {
		return nil, apperr.Validation("CNIC is required")
	}
	return s.patients.GetByCNIC(ctx, cnic)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return apperr.Validation("Name is required")
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

// -- Doctor profile --

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) GetDoctorByUser(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByUserID(ctx, userID)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if d.Name == "" {
		return apperr.Validation("Name is required")
	}
	if d.ConsultationFee < 0 {
		return apperr.Validation("Consultation fee cannot be negative")
	}
	if (d.ShiftStart == nil) != (d.ShiftEnd == nil) {
		return apperr.Validation("Both shift_start and shift_end must be set together")
	}
	if d.ShiftStart != nil {
		start, err := normalizeShift(*d.ShiftStart)
		if err != nil {
			return apperr.Validation("Invalid shift_start: %s", *d.ShiftStart)
		}
		end, err := normalizeShift(*d.ShiftEnd)
		if err != nil {
			return apperr.Validation("Invalid shift_end: %s", *d.ShiftEnd)
		}
		if start >= end {
			return apperr.Validation("shift_start must be before shift_end")
		}
		d.ShiftStart, d.ShiftEnd = &start, &end
	}
	return s.doctors.Update(ctx, d)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

// -- Profile id resolution for other domains --

func (s *Service) PatientIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	p, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

func (s *Service) DoctorIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	d, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	return d.ID, nil
}
