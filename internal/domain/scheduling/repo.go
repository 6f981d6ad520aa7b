package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ExistsAt reports whether a non-cancelled appointment occupies the slot.
	ExistsAt(ctx context.Context, doctorID uuid.UUID, date time.Time, slot string) (bool, error)
	// SlotTakenByOther is ExistsAt ignoring the given appointment, for
	// reschedules onto a slot the appointment may already hold.
	SlotTakenByOther(ctx context.Context, doctorID uuid.UUID, date time.Time, slot string, excludeID uuid.UUID) (bool, error)
	// BookedTimes returns the times of non-cancelled appointments for the
	// doctor on the given date.
	BookedTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, params map[string]string, limit, offset int) ([]*Appointment, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error)
	CountByPatientStatus(ctx context.Context, patientID uuid.UUID, status string) (int, error)
}
