package clinical

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apperr"
)

// AppointmentRef is the slice of an appointment the clinical side needs.
type AppointmentRef struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Status    string
}

// AppointmentCompleter looks up appointments and marks them completed when
// their prescription is written.
type AppointmentCompleter interface {
	AppointmentRef(ctx context.Context, id uuid.UUID) (*AppointmentRef, error)
	Complete(ctx context.Context, id uuid.UUID) error
}

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	prescriptions PrescriptionRepository
	diagnoses     DiagnosisRepository
	groups        MedicineGroupRepository
	appointments  AppointmentCompleter
	tx            TxRunner
	logger        zerolog.Logger
}

func NewService(prescriptions PrescriptionRepository, diagnoses DiagnosisRepository, groups MedicineGroupRepository, appointments AppointmentCompleter, tx TxRunner, logger zerolog.Logger) *Service {
	return &Service{
		prescriptions: prescriptions,
		diagnoses:     diagnoses,
		groups:        groups,
		appointments:  appointments,
		tx:            tx,
		logger:        logger,
	}
}

// CreatePrescription writes the prescription and completes the appointment
// in one transaction.
func (s *Service) CreatePrescription(ctx context.Context, doctorID uuid.UUID, in *CreatePrescriptionInput) (*Prescription, error) {
	if in.AppointmentID == uuid.Nil {
		return nil, apperr.Validation("appointment_id is required")
	}
	if in.Complaints == "" {
		return nil, apperr.Validation("Complaints are required")
	}
	for _, m := range in.Medicines {
		if m.Name == "" {
			return nil, apperr.Validation("Medicine name is required")
		}
		if m.Quantity <= 0 {
			return nil, apperr.Validation("Quantity for %s must be greater than zero", m.Name)
		}
	}

	appt, err := s.appointments.AppointmentRef(ctx, in.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != doctorID {
		return nil, apperr.Validation("Appointment belongs to another doctor")
	}
	if appt.Status == "completed" || appt.Status == "cancelled" {
		return nil, apperr.InvalidTransition("Appointment is already %s", appt.Status)
	}
	if _, err := s.prescriptions.GetByAppointment(ctx, in.AppointmentID); err == nil {
		return nil, apperr.Validation("Appointment already has a prescription")
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	p := &Prescription{
		AppointmentID: in.AppointmentID,
		PatientID:     appt.PatientID,
		DoctorID:      doctorID,
		Complaints:    in.Complaints,
		Diagnosis:     in.Diagnosis,
		Medicines:     in.Medicines,
		Remarks:       in.Remarks,
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.prescriptions.Create(ctx, p); err != nil {
			return err
		}
		return s.appointments.Complete(ctx, in.AppointmentID)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePrescriptionInput carries the fields a doctor may revise before the
// pharmacy dispenses.
type UpdatePrescriptionInput struct {
	Complaints string         `json:"complaints"`
	Diagnosis  *string        `json:"diagnosis"`
	Medicines  []MedicineLine `json:"medicines"`
	Remarks    *string        `json:"remarks"`
}

func (s *Service) UpdatePrescription(ctx context.Context, id, doctorID uuid.UUID, in *UpdatePrescriptionInput) (*Prescription, error) {
	if in.Complaints == "" {
		return nil, apperr.Validation("Complaints are required")
	}
	for _, m := range in.Medicines {
		if m.Name == "" {
			return nil, apperr.Validation("Medicine name is required")
		}
		if m.Quantity <= 0 {
			return nil, apperr.Validation("Quantity for %s must be greater than zero", m.Name)
		}
	}

	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.DoctorID != doctorID {
		return nil, apperr.Validation("Prescription belongs to another doctor")
	}
	if p.Dispensed {
		return nil, apperr.InvalidTransition("Prescription is already dispensed")
	}

	p.Complaints = in.Complaints
	p.Diagnosis = in.Diagnosis
	p.Medicines = in.Medicines
	p.Remarks = in.Remarks
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePrescription(ctx context.Context, id, doctorID uuid.UUID) error {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.Dispensed {
		return apperr.InvalidTransition("Prescription is already dispensed")
	}
	return s.prescriptions.Delete(ctx, id, doctorID)
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.prescriptions.GetByID(ctx, id)
}

func (s *Service) PrescriptionForAppointment(ctx context.Context, appointmentID uuid.UUID) (*Prescription, error) {
	return s.prescriptions.GetByAppointment(ctx, appointmentID)
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.ListByDoctor(ctx, doctorID, limit, offset)
}

// PendingDispense lists prescriptions the pharmacy has not yet fulfilled.
func (s *Service) PendingDispense(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.ListPendingDispense(ctx, limit, offset)
}

// MarkDispensed flags the prescription as fulfilled. The pharmacy calls this
// inside its dispense transaction.
func (s *Service) MarkDispensed(ctx context.Context, id uuid.UUID) error {
	return s.prescriptions.MarkDispensed(ctx, id)
}

// -- Saved diagnoses --

func (s *Service) SaveDiagnosis(ctx context.Context, doctorID uuid.UUID, text string) (*SavedDiagnosis, error) {
	if text == "" {
		return nil, apperr.Validation("Diagnosis text is required")
	}
	d := &SavedDiagnosis{DoctorID: doctorID, Text: text}
	if err := s.diagnoses.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) ListDiagnoses(ctx context.Context, doctorID uuid.UUID) ([]*SavedDiagnosis, error) {
	return s.diagnoses.ListByDoctor(ctx, doctorID)
}

func (s *Service) DeleteDiagnosis(ctx context.Context, id, doctorID uuid.UUID) error {
	return s.diagnoses.Delete(ctx, id, doctorID)
}

// -- Medicine groups --

func (s *Service) CreateMedicineGroup(ctx context.Context, doctorID uuid.UUID, name string, medicines []MedicineLine) (*MedicineGroup, error) {
	if name == "" {
		return nil, apperr.Validation("Group name is required")
	}
	if len(medicines) == 0 {
		return nil, apperr.Validation("A medicine group needs at least one medicine")
	}
	g := &MedicineGroup{DoctorID: doctorID, Name: name, Medicines: medicines}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) ListMedicineGroups(ctx context.Context, doctorID uuid.UUID) ([]*MedicineGroup, error) {
	return s.groups.ListByDoctor(ctx, doctorID)
}

func (s *Service) UpdateMedicineGroup(ctx context.Context, g *MedicineGroup) error {
	if g.Name == "" {
		return apperr.Validation("Group name is required")
	}
	return s.groups.Update(ctx, g)
}

func (s *Service) DeleteMedicineGroup(ctx context.Context, id, doctorID uuid.UUID) error {
	return s.groups.Delete(ctx, id, doctorID)
}
