package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apperr"
)

// AppointmentApprover moves an appointment forward once its invoice is paid.
type AppointmentApprover interface {
	Approve(ctx context.Context, appointmentID uuid.UUID) error
}

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	invoices InvoiceRepository
	tx       TxRunner
	approver AppointmentApprover
	logger   zerolog.Logger
}

func NewService(invoices InvoiceRepository, tx TxRunner, logger zerolog.Logger) *Service {
	return &Service{invoices: invoices, tx: tx, logger: logger}
}

// SetAppointmentApprover wires the scheduling side after construction.
func (s *Service) SetAppointmentApprover(approver AppointmentApprover) {
	s.approver = approver
}

// IssueForAppointment creates the unpaid consultation invoice for a fresh
// booking. Called by scheduling right after the booking commits.
func (s *Service) IssueForAppointment(ctx context.Context, patientID, appointmentID uuid.UUID, amount float64) error {
	desc := "Consultation fee"
	inv := &Invoice{
		PatientID:     patientID,
		AppointmentID: &appointmentID,
		Amount:        amount,
		Status:        StatusUnpaid,
		Description:   &desc,
	}
	return s.invoices.Create(ctx, inv)
}

// CreateSettledCharge records a charge collected at the point of service,
// such as a pharmacy counter sale. The invoice is written already paid.
func (s *Service) CreateSettledCharge(ctx context.Context, patientID uuid.UUID, amount float64, description string) (*Invoice, error) {
	if patientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if amount <= 0 {
		return nil, apperr.Validation("Amount must be greater than zero")
	}
	now := time.Now()
	inv := &Invoice{
		PatientID:   patientID,
		Amount:      amount,
		Status:      StatusPaid,
		Description: &description,
		PaidAt:      &now,
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// CreateInvoice records a cashier-entered charge.
func (s *Service) CreateInvoice(ctx context.Context, in *CreateInvoiceInput) (*Invoice, error) {
	if in.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if in.Amount <= 0 {
		return nil, apperr.Validation("Amount must be greater than zero")
	}
	inv := &Invoice{
		PatientID:   in.PatientID,
		Amount:      in.Amount,
		Status:      StatusUnpaid,
		Description: in.Description,
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// ProcessPayment settles an invoice. When the invoice belongs to an
// appointment, the appointment is approved in the same transaction so a
// payment can never land without its booking moving forward.
func (s *Service) ProcessPayment(ctx context.Context, invoiceID uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == StatusPaid {
		return nil, apperr.Validation("Invoice is already paid")
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.invoices.MarkPaid(ctx, invoiceID); err != nil {
			return err
		}
		if inv.AppointmentID != nil && s.approver != nil {
			return s.approver.Approve(ctx, *inv.AppointmentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.invoices.GetByID(ctx, invoiceID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.invoices.GetByID(ctx, id)
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	return s.invoices.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Invoice, int, error) {
	return s.invoices.Search(ctx, params, limit, offset)
}

// UnpaidTotal reports the patient's outstanding balance.
func (s *Service) UnpaidTotal(ctx context.Context, patientID uuid.UUID) (float64, error) {
	return s.invoices.SumUnpaidByPatient(ctx, patientID)
}
