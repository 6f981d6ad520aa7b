package pharmacy

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apperr"
)

// PrescriptionSource exposes the clinical side of dispensing: the lines to
// fulfil and the flag that marks the prescription done.
type PrescriptionSource interface {
	PrescriptionLines(ctx context.Context, prescriptionID uuid.UUID) (patientID uuid.UUID, lines []DispenseLine, err error)
	MarkDispensed(ctx context.Context, prescriptionID uuid.UUID) error
}

// ChargeCreator bills the patient for dispensed medicines.
type ChargeCreator interface {
	CreateCharge(ctx context.Context, patientID uuid.UUID, amount float64, description string) error
}

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	inventory     InventoryRepository
	prescriptions PrescriptionSource
	charges       ChargeCreator
	tx            TxRunner
	logger        zerolog.Logger
}

func NewService(inventory InventoryRepository, prescriptions PrescriptionSource, tx TxRunner, logger zerolog.Logger) *Service {
	return &Service{inventory: inventory, prescriptions: prescriptions, tx: tx, logger: logger}
}

// SetChargeCreator wires the billing side after construction.
func (s *Service) SetChargeCreator(charges ChargeCreator) {
	s.charges = charges
}

// Dispense fulfils a prescription in one transaction. Every line is checked
// against locked stock before anything is decremented, so a shortage on any
// item leaves the whole inventory untouched.
func (s *Service) Dispense(ctx context.Context, prescriptionID uuid.UUID) (*DispenseResult, error) {
	var result *DispenseResult
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		patientID, lines, err := s.prescriptions.PrescriptionLines(ctx, prescriptionID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperr.Validation("Prescription has no medicines to dispense")
		}

		// Requested quantities accumulate per item so duplicate lines for
		// one medicine are validated against stock jointly, not one by one.
		items := make([]*InventoryItem, len(lines))
		requested := map[uuid.UUID]int{}
		for i, line := range lines {
			item, err := s.inventory.GetForUpdate(ctx, line.InventoryID)
			if err != nil {
				return err
			}
			requested[line.InventoryID] += line.Quantity
			if item.Quantity < requested[line.InventoryID] {
				return apperr.InsufficientStock(
					"Insufficient stock for %s: requested %d, available %d",
					item.Name, requested[line.InventoryID], item.Quantity)
			}
			items[i] = item
		}

		var total float64
		for i, line := range lines {
			if err := s.inventory.Decrement(ctx, line.InventoryID, line.Quantity); err != nil {
				return err
			}
			total += float64(line.Quantity) * items[i].UnitPrice
		}

		if err := s.prescriptions.MarkDispensed(ctx, prescriptionID); err != nil {
			return err
		}
		if s.charges != nil && total > 0 {
			if err := s.charges.CreateCharge(ctx, patientID, total, "Pharmacy charges"); err != nil {
				return err
			}
		}
		result = &DispenseResult{
			PrescriptionID: prescriptionID,
			ItemsDispensed: len(lines),
			TotalCharge:    total,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// -- Inventory management --

func (s *Service) CreateItem(ctx context.Context, in *ItemInput) (*InventoryItem, error) {
	if err := validateItem(in); err != nil {
		return nil, err
	}
	item := &InventoryItem{
		Name:       in.Name,
		Category:   in.Category,
		Quantity:   in.Quantity,
		UnitPrice:  in.UnitPrice,
		MinStock:   in.MinStock,
		ExpiryDate: in.ExpiryDate,
	}
	if err := s.inventory.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) UpdateItem(ctx context.Context, id uuid.UUID, in *ItemInput) (*InventoryItem, error) {
	if err := validateItem(in); err != nil {
		return nil, err
	}
	item, err := s.inventory.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Name = in.Name
	item.Category = in.Category
	item.Quantity = in.Quantity
	item.UnitPrice = in.UnitPrice
	item.MinStock = in.MinStock
	item.ExpiryDate = in.ExpiryDate
	if err := s.inventory.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func validateItem(in *ItemInput) error {
	if in.Name == "" {
		return apperr.Validation("Name is required")
	}
	if in.Quantity < 0 {
		return apperr.Validation("Quantity cannot be negative")
	}
	if in.UnitPrice < 0 {
		return apperr.Validation("Unit price cannot be negative")
	}
	if in.MinStock < 0 {
		return apperr.Validation("Minimum stock cannot be negative")
	}
	return nil
}

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*InventoryItem, error) {
	return s.inventory.GetByID(ctx, id)
}

func (s *Service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return s.inventory.Delete(ctx, id)
}

func (s *Service) SearchItems(ctx context.Context, params map[string]string, limit, offset int) ([]*InventoryItem, int, error) {
	return s.inventory.Search(ctx, params, limit, offset)
}

func (s *Service) LowStockItems(ctx context.Context) ([]*InventoryItem, error) {
	return s.inventory.ListLowStock(ctx)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.inventory.Stats(ctx)
}
