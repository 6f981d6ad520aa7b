package pharmacy

import (
	"context"

	"github.com/google/uuid"
)

type InventoryRepository interface {
	Create(ctx context.Context, item *InventoryItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*InventoryItem, error)
	// GetForUpdate locks the row for the duration of the surrounding
	// transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*InventoryItem, error)
	Update(ctx context.Context, item *InventoryItem) error
	Decrement(ctx context.Context, id uuid.UUID, by int) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*InventoryItem, int, error)
	ListLowStock(ctx context.Context) ([]*InventoryItem, error)
	Stats(ctx context.Context) (*Stats, error)
}
