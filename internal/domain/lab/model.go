package lab

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Category lab types.
const (
	LabTypePathology = "pathology"
	LabTypeRadiology = "radiology"
	LabTypeOther     = "other"
)

var validLabTypes = map[string]bool{
	LabTypePathology: true, LabTypeRadiology: true, LabTypeOther: true,
}

// Category statuses.
const (
	CategoryActive   = "active"
	CategoryInactive = "inactive"
)

// Test statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// TestCategory groups test definitions under a unique short code.
type TestCategory struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	LabType   string    `db:"lab_type" json:"lab_type"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TestDefinition is an orderable test with its price.
type TestDefinition struct {
	ID         uuid.UUID `db:"id" json:"id"`
	CategoryID uuid.UUID `db:"category_id" json:"category_id"`
	Name       string    `db:"name" json:"name"`
	Price      float64   `db:"price" json:"price"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// LabTest is one ordered test. Result is free-form jsonb filled in by the
// lab technician on completion.
type LabTest struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	PatientID    uuid.UUID       `db:"patient_id" json:"patient_id"`
	DoctorID     *uuid.UUID      `db:"doctor_id" json:"doctor_id,omitempty"`
	DefinitionID uuid.UUID       `db:"definition_id" json:"definition_id"`
	TestName     *string         `db:"test_name" json:"test_name,omitempty"`
	Status       string          `db:"status" json:"status"`
	Result       json.RawMessage `db:"result" json:"result,omitempty"`
	CompletedAt  *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// CategoryInput carries the create/update payload for a category.
type CategoryInput struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	LabType string `json:"lab_type"`
	Status  string `json:"status"`
}

// DefinitionInput carries the create/update payload for a test definition.
type DefinitionInput struct {
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
}

// OrderInput carries a doctor's test order.
type OrderInput struct {
	PatientID    uuid.UUID `json:"patient_id"`
	DefinitionID uuid.UUID `json:"definition_id"`
}
