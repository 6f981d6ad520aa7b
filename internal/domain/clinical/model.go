package clinical

import (
	"time"

	"github.com/google/uuid"
)

// MedicineLine is one prescribed item. InventoryID ties the line to the
// pharmacy stock it will be dispensed from.
type MedicineLine struct {
	InventoryID uuid.UUID `json:"inventory_id"`
	Name        string    `json:"name"`
	Quantity    int       `json:"quantity"`
	Dosage      string    `json:"dosage,omitempty"`
}

// Prescription maps to the prescriptions table. Medicines is stored as jsonb.
type Prescription struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	AppointmentID uuid.UUID      `db:"appointment_id" json:"appointment_id"`
	PatientID     uuid.UUID      `db:"patient_id" json:"patient_id"`
	DoctorID      uuid.UUID      `db:"doctor_id" json:"doctor_id"`
	Complaints    string         `db:"complaints" json:"complaints"`
	Diagnosis     *string        `db:"diagnosis" json:"diagnosis,omitempty"`
	Medicines     []MedicineLine `db:"medicines" json:"medicines"`
	Remarks       *string        `db:"remarks" json:"remarks,omitempty"`
	Dispensed     bool           `db:"dispensed" json:"dispensed"`
	DispensedAt   *time.Time     `db:"dispensed_at" json:"dispensed_at,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// CreatePrescriptionInput carries the doctor's prescription payload.
type CreatePrescriptionInput struct {
	AppointmentID uuid.UUID      `json:"appointment_id"`
	Complaints    string         `json:"complaints"`
	Diagnosis     *string        `json:"diagnosis"`
	Medicines     []MedicineLine `json:"medicines"`
	Remarks       *string        `json:"remarks"`
}

// SavedDiagnosis is a doctor's reusable diagnosis text.
type SavedDiagnosis struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Text      string    `db:"text" json:"text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MedicineGroup is a doctor's reusable bundle of medicine lines.
type MedicineGroup struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	DoctorID  uuid.UUID      `db:"doctor_id" json:"doctor_id"`
	Name      string         `db:"name" json:"name"`
	Medicines []MedicineLine `db:"medicines" json:"medicines"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
