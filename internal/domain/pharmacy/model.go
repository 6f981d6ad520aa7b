package pharmacy

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem maps to the inventory table.
type InventoryItem struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Category   *string    `db:"category" json:"category,omitempty"`
	Quantity   int        `db:"quantity" json:"quantity"`
	UnitPrice  float64    `db:"unit_price" json:"unit_price"`
	MinStock   int        `db:"min_stock" json:"min_stock"`
	ExpiryDate *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// LowStock reports whether the item has fallen to its reorder level.
func (i *InventoryItem) LowStock() bool {
	return i.Quantity <= i.MinStock
}

// ItemInput carries the create/update payload for an inventory item.
type ItemInput struct {
	Name       string     `json:"name"`
	Category   *string    `json:"category"`
	Quantity   int        `json:"quantity"`
	UnitPrice  float64    `json:"unit_price"`
	MinStock   int        `json:"min_stock"`
	ExpiryDate *time.Time `json:"expiry_date"`
}

// Stats summarizes the inventory for the pharmacy dashboard.
type Stats struct {
	TotalItems    int     `json:"total_items"`
	TotalQuantity int     `json:"total_quantity"`
	LowStockCount int     `json:"low_stock_count"`
	TotalValue    float64 `json:"total_value"`
}

// DispenseLine is one prescribed item to fulfil from stock.
type DispenseLine struct {
	InventoryID uuid.UUID
	Name        string
	Quantity    int
}

// DispenseResult reports what a completed dispense consumed and charged.
type DispenseResult struct {
	PrescriptionID uuid.UUID `json:"prescription_id"`
	ItemsDispensed int       `json:"items_dispensed"`
	TotalCharge    float64   `json:"total_charge"`
}
