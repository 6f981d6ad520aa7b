package clinical

import (
	"context"

	"github.com/google/uuid"
)

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Prescription, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Prescription, int, error)
	ListPendingDispense(ctx context.Context, limit, offset int) ([]*Prescription, int, error)
	Update(ctx context.Context, p *Prescription) error
	Delete(ctx context.Context, id, doctorID uuid.UUID) error
	MarkDispensed(ctx context.Context, id uuid.UUID) error
}

type DiagnosisRepository interface {
	Create(ctx context.Context, d *SavedDiagnosis) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*SavedDiagnosis, error)
	Delete(ctx context.Context, id, doctorID uuid.UUID) error
}

type MedicineGroupRepository interface {
	Create(ctx context.Context, g *MedicineGroup) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicineGroup, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*MedicineGroup, error)
	Update(ctx context.Context, g *MedicineGroup) error
	Delete(ctx context.Context, id, doctorID uuid.UUID) error
}
