package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apperr"
)

const dateLayout = "2006-01-02"

// DoctorDirectory resolves doctor profiles for slot generation and pricing.
type DoctorDirectory interface {
	DoctorInfo(ctx context.Context, id uuid.UUID) (*Doctor, error)
}

// InvoiceIssuer creates the consultation invoice after a booking commits.
type InvoiceIssuer interface {
	IssueForAppointment(ctx context.Context, patientID, appointmentID uuid.UUID, amount float64) error
}

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	appointments AppointmentRepository
	doctors      DoctorDirectory
	tx           TxRunner
	invoices     InvoiceIssuer
	logger       zerolog.Logger
}

func NewService(appointments AppointmentRepository, doctors DoctorDirectory, tx TxRunner, logger zerolog.Logger) *Service {
	return &Service{appointments: appointments, doctors: doctors, tx: tx, logger: logger}
}

// SetInvoiceIssuer wires the billing side after construction; booking and
// billing reference each other, so one of the two hooks up late.
func (s *Service) SetInvoiceIssuer(issuer InvoiceIssuer) {
	s.invoices = issuer
}

// SlotResult is the outcome of slot generation for one doctor-day.
type SlotResult struct {
	Slots   []SlotView
	NoShift bool
}

// Slots generates the doctor's slots for a date. A doctor without shift
// timings yields an empty result flagged NoShift rather than an error.
func (s *Service) Slots(ctx context.Context, doctorID uuid.UUID, date string) (*SlotResult, error) {
	if date == "" {
		return nil, apperr.Validation("Date is required")
	}
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, apperr.Validation("Invalid date: %s", date)
	}

	doctor, err := s.doctors.DoctorInfo(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if doctor.ShiftStart == nil || doctor.ShiftEnd == nil {
		return &SlotResult{NoShift: true}, nil
	}

	booked, err := s.appointments.BookedTimes(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}

	slots, err := GenerateSlots(*doctor.ShiftStart, *doctor.ShiftEnd, booked)
	if err != nil {
		return nil, err
	}
	return &SlotResult{Slots: slots}, nil
}

// Book atomically claims the slot and creates a pending appointment. The
// check and insert share one transaction; the partial unique index decides
// races between concurrent callers, so at most one booking per slot commits.
// The consultation invoice is issued after commit and is non-fatal.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, in *BookingInput) (*Appointment, error) {
	if patientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if in.DoctorID == uuid.Nil {
		return nil, apperr.Validation("doctor_id is required")
	}
	if in.Date == "" {
		return nil, apperr.Validation("Date is required")
	}
	if in.Time == "" {
		return nil, apperr.Validation("Time is required")
	}

	day, err := time.Parse(dateLayout, in.Date)
	if err != nil {
		return nil, apperr.Validation("Invalid date: %s", in.Date)
	}
	slot, err := NormalizeClock(in.Time)
	if err != nil {
		return nil, err
	}

	doctor, err := s.doctors.DoctorInfo(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}

	appt := &Appointment{
		PatientID: patientID,
		DoctorID:  in.DoctorID,
		Date:      day,
		Time:      slot,
		Status:    StatusPending,
		Notes:     in.Notes,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		taken, err := s.appointments.ExistsAt(ctx, in.DoctorID, day, slot)
		if err != nil {
			return err
		}
		if taken {
			return apperr.SlotUnavailable("Time slot is not available")
		}
		return s.appointments.Create(ctx, appt)
	})
	if err != nil {
		return nil, err
	}

	if s.invoices != nil {
		if err := s.invoices.IssueForAppointment(ctx, patientID, appt.ID, doctor.ConsultationFee); err != nil {
			s.logger.Error().Err(err).
				Str("appointment_id", appt.ID.String()).
				Msg("consultation invoice not issued")
		}
	}

	return appt, nil
}

// Cancel releases the appointment's slot. Completed appointments cannot be
// cancelled, and cancelling twice is rejected.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := appt.CanCancel(); err != nil {
		return nil, err
	}
	if err := s.appointments.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		return nil, err
	}
	appt.Status = StatusCancelled
	return appt, nil
}

// Approve marks the appointment approved once its invoice is paid.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) error {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if appt.IsTerminal() {
		return apperr.InvalidTransition("Cannot approve a %s appointment", appt.Status)
	}
	return s.appointments.UpdateStatus(ctx, id, StatusApproved)
}

// Complete marks the appointment completed when its prescription is issued.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if appt.IsTerminal() {
		return apperr.InvalidTransition("Cannot complete a %s appointment", appt.Status)
	}
	return s.appointments.UpdateStatus(ctx, id, StatusCompleted)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByDoctor(ctx, doctorID, params, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.Search(ctx, params, limit, offset)
}

// UpdateByDoctor lets a doctor adjust status or notes, or reschedule the
// appointment to a different slot. Completed and cancelled appointments are
// immutable. A reschedule claims the new slot under the same transaction and
// uniqueness rules as a fresh booking.
func (s *Service) UpdateByDoctor(ctx context.Context, id uuid.UUID, in *AppointmentUpdateInput) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.IsTerminal() {
		return nil, apperr.InvalidTransition("Cannot update a %s appointment", appt.Status)
	}
	if in.Status != "" {
		if !validStatuses[in.Status] {
			return nil, apperr.Validation("Invalid appointment status: %s", in.Status)
		}
		appt.Status = in.Status
	}
	if in.Notes != nil {
		appt.Notes = in.Notes
	}

	rescheduled := false
	if in.Date != "" {
		day, err := time.Parse(dateLayout, in.Date)
		if err != nil {
			return nil, apperr.Validation("Invalid date: %s", in.Date)
		}
		appt.Date = day
		rescheduled = true
	}
	if in.Time != "" {
		slot, err := NormalizeClock(in.Time)
		if err != nil {
			return nil, err
		}
		appt.Time = slot
		rescheduled = true
	}

	if !rescheduled {
		if err := s.appointments.Update(ctx, appt); err != nil {
			return nil, err
		}
		return appt, nil
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		taken, err := s.appointments.SlotTakenByOther(ctx, appt.DoctorID, appt.Date, appt.Time, appt.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.SlotUnavailable("Time slot is not available")
		}
		return s.appointments.Update(ctx, appt)
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// Delete removes an appointment record outright. Kept for administrative
// corrections; cancellation is the normal path.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.appointments.GetByID(ctx, id); err != nil {
		return err
	}
	return s.appointments.Delete(ctx, id)
}

// CountForPatient returns the number of the patient's appointments in the
// given status, for dashboard figures.
func (s *Service) CountForPatient(ctx context.Context, patientID uuid.UUID, status string) (int, error) {
	return s.appointments.CountByPatientStatus(ctx, patientID, status)
}
