package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperr"
)

// Appointment statuses. A booking starts out pending; payment moves it to
// approved, a prescription completes it, and cancellation is terminal.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusApproved  = "approved"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var validStatuses = map[string]bool{
	StatusPending: true, StatusConfirmed: true, StatusApproved: true,
	StatusCompleted: true, StatusCancelled: true,
}

// Appointment maps to the appointments table. Time is a normalized HH:MM
// string; together with Date it identifies the booked slot.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date      time.Time `db:"date" json:"date"`
	Time      string    `db:"time" json:"time"`
	Status    string    `db:"status" json:"status"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CanCancel reports whether the appointment may move to cancelled.
func (a *Appointment) CanCancel() error {
	switch a.Status {
	case StatusCompleted:
		return apperr.InvalidTransition("Cannot cancel a completed appointment")
	case StatusCancelled:
		return apperr.InvalidTransition("Appointment is already cancelled")
	}
	return nil
}

// IsTerminal reports whether the appointment has reached a final status.
func (a *Appointment) IsTerminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusCancelled
}

// BookingInput carries the booking payload.
type BookingInput struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	Time     string    `json:"time"`
	Notes    *string   `json:"notes,omitempty"`
}

// AppointmentUpdateInput carries the fields a doctor may change on an
// appointment: status, notes, and a reschedule to a new date and time.
type AppointmentUpdateInput struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
	Date   string  `json:"date"`
	Time   string  `json:"time"`
}

// Doctor is the scheduling view of a doctor profile: enough to price the
// consultation and generate slots.
type Doctor struct {
	ID              uuid.UUID
	ConsultationFee float64
	ShiftStart      *string
	ShiftEnd        *string
}
