package lab

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apperr"
)

// ChargeCreator bills the patient for an ordered test.
type ChargeCreator interface {
	CreateCharge(ctx context.Context, patientID uuid.UUID, amount float64, description string) error
}

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	categories  CategoryRepository
	definitions DefinitionRepository
	tests       TestRepository
	charges     ChargeCreator
	tx          TxRunner
	logger      zerolog.Logger
}

func NewService(categories CategoryRepository, definitions DefinitionRepository, tests TestRepository, tx TxRunner, logger zerolog.Logger) *Service {
	return &Service{
		categories:  categories,
		definitions: definitions,
		tests:       tests,
		tx:          tx,
		logger:      logger,
	}
}

// SetChargeCreator wires the billing side after construction.
func (s *Service) SetChargeCreator(charges ChargeCreator) {
	s.charges = charges
}

// -- Categories --

func (s *Service) CreateCategory(ctx context.Context, in *CategoryInput) (*TestCategory, error) {
	if err := validateCategory(in); err != nil {
		return nil, err
	}
	c := &TestCategory{Code: in.Code, Name: in.Name, LabType: in.LabType, Status: in.Status}
	if c.Status == "" {
		c.Status = CategoryActive
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, in *CategoryInput) (*TestCategory, error) {
	if err := validateCategory(in); err != nil {
		return nil, err
	}
	if in.Status != CategoryActive && in.Status != CategoryInactive {
		return nil, apperr.Validation("Invalid category status: %s", in.Status)
	}
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Code = in.Code
	c.Name = in.Name
	c.LabType = in.LabType
	c.Status = in.Status
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func validateCategory(in *CategoryInput) error {
	if in.Code == "" {
		return apperr.Validation("Code is required")
	}
	if in.Name == "" {
		return apperr.Validation("Name is required")
	}
	if !validLabTypes[in.LabType] {
		return apperr.Validation("Invalid lab type: %s", in.LabType)
	}
	return nil
}

func (s *Service) ListCategories(ctx context.Context, labType string) ([]*TestCategory, error) {
	if labType != "" && !validLabTypes[labType] {
		return nil, apperr.Validation("Invalid lab type: %s", labType)
	}
	return s.categories.List(ctx, labType)
}

// -- Definitions --

func (s *Service) CreateDefinition(ctx context.Context, in *DefinitionInput) (*TestDefinition, error) {
	if in.Name == "" {
		return nil, apperr.Validation("Name is required")
	}
	if in.Price < 0 {
		return nil, apperr.Validation("Price cannot be negative")
	}
	category, err := s.categories.GetByID(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if category.Status != CategoryActive {
		return nil, apperr.Validation("Category %s is inactive", category.Code)
	}
	d := &TestDefinition{CategoryID: in.CategoryID, Name: in.Name, Price: in.Price}
	if err := s.definitions.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) ListDefinitions(ctx context.Context, categoryID uuid.UUID) ([]*TestDefinition, error) {
	return s.definitions.ListByCategory(ctx, categoryID)
}

func (s *Service) UpdateDefinition(ctx context.Context, id uuid.UUID, in *DefinitionInput) (*TestDefinition, error) {
	if in.Name == "" {
		return nil, apperr.Validation("Name is required")
	}
	if in.Price < 0 {
		return nil, apperr.Validation("Price cannot be negative")
	}
	d, err := s.definitions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Name = in.Name
	d.Price = in.Price
	if in.CategoryID != uuid.Nil {
		d.CategoryID = in.CategoryID
	}
	if err := s.definitions.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) DeleteDefinition(ctx context.Context, id uuid.UUID) error {
	return s.definitions.Delete(ctx, id)
}

// -- Tests --

// OrderTest creates a pending test and bills the patient for it in one
// transaction.
func (s *Service) OrderTest(ctx context.Context, doctorID uuid.UUID, in *OrderInput) (*LabTest, error) {
	if in.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	def, err := s.definitions.GetByID(ctx, in.DefinitionID)
	if err != nil {
		return nil, err
	}

	t := &LabTest{
		PatientID:    in.PatientID,
		DefinitionID: def.ID,
		Status:       StatusPending,
	}
	if doctorID != uuid.Nil {
		t.DoctorID = &doctorID
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.tests.Create(ctx, t); err != nil {
			return err
		}
		if s.charges != nil && def.Price > 0 {
			return s.charges.CreateCharge(ctx, in.PatientID, def.Price, "Lab test: "+def.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// RecordResult completes a pending test with its result payload.
func (s *Service) RecordResult(ctx context.Context, id uuid.UUID, result json.RawMessage) (*LabTest, error) {
	if len(result) == 0 {
		return nil, apperr.Validation("Result is required")
	}
	t, err := s.tests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == StatusCompleted {
		return nil, apperr.InvalidTransition("Result is already recorded")
	}
	if err := s.tests.RecordResult(ctx, id, result); err != nil {
		return nil, err
	}
	return s.tests.GetByID(ctx, id)
}

func (s *Service) GetTest(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	return s.tests.GetByID(ctx, id)
}

func (s *Service) ListTestsByStatus(ctx context.Context, status string, limit, offset int) ([]*LabTest, int, error) {
	if status != StatusPending && status != StatusCompleted {
		return nil, 0, apperr.Validation("Invalid test status: %s", status)
	}
	return s.tests.ListByStatus(ctx, status, limit, offset)
}

func (s *Service) ListTestsForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*LabTest, int, error) {
	return s.tests.ListByPatient(ctx, patientID, limit, offset)
}
