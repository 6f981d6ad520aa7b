package lab

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

type CategoryRepository interface {
	Create(ctx context.Context, c *TestCategory) error
	GetByID(ctx context.Context, id uuid.UUID) (*TestCategory, error)
	List(ctx context.Context, labType string) ([]*TestCategory, error)
	Update(ctx context.Context, c *TestCategory) error
}

type DefinitionRepository interface {
	Create(ctx context.Context, d *TestDefinition) error
	GetByID(ctx context.Context, id uuid.UUID) (*TestDefinition, error)
	ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]*TestDefinition, error)
	Update(ctx context.Context, d *TestDefinition) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type TestRepository interface {
	Create(ctx context.Context, t *LabTest) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabTest, error)
	RecordResult(ctx context.Context, id uuid.UUID, result json.RawMessage) error
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*LabTest, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*LabTest, int, error)
}
