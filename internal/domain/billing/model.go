package billing

import (
	"time"

	"github.com/google/uuid"
)

// Invoice statuses.
const (
	StatusUnpaid = "unpaid"
	StatusPaid   = "paid"
)

// Invoice maps to the invoices table. AppointmentID links consultation
// invoices back to their booking; ad-hoc charges leave it nil.
type Invoice struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	AppointmentID *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	Amount        float64    `db:"amount" json:"amount"`
	Status        string     `db:"status" json:"status"`
	Description   *string    `db:"description" json:"description,omitempty"`
	PaidAt        *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// CreateInvoiceInput carries a cashier-entered charge.
type CreateInvoiceInput struct {
	PatientID   uuid.UUID `json:"patient_id"`
	Amount      float64   `json:"amount"`
	Description *string   `json:"description"`
}
