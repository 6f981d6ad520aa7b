package pharmacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type inventoryRepoPG struct{ pool *pgxpool.Pool }

func NewInventoryRepoPG(pool *pgxpool.Pool) InventoryRepository {
	return &inventoryRepoPG{pool: pool}
}

func (r *inventoryRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const itemCols = `id, name, category, quantity, unit_price, min_stock, expiry_date, created_at, updated_at`

func scanItem(row pgx.Row) (*InventoryItem, error) {
	var i InventoryItem
	err := row.Scan(&i.ID, &i.Name, &i.Category, &i.Quantity, &i.UnitPrice, &i.MinStock,
		&i.ExpiryDate, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Inventory item not found")
	}
	return &i, err
}

func (r *inventoryRepoPG) Create(ctx context.Context, item *InventoryItem) error {
	item.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO inventory (id, name, category, quantity, unit_price, min_stock, expiry_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		item.ID, item.Name, item.Category, item.Quantity, item.UnitPrice, item.MinStock, item.ExpiryDate)
	return err
}

func (r *inventoryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*InventoryItem, error) {
	return scanItem(r.conn(ctx).QueryRow(ctx, `SELECT `+itemCols+` FROM inventory WHERE id = $1`, id))
}

func (r *inventoryRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*InventoryItem, error) {
	return scanItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+itemCols+` FROM inventory WHERE id = $1 FOR UPDATE`, id))
}

func (r *inventoryRepoPG) Update(ctx context.Context, item *InventoryItem) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE inventory SET name=$2, category=$3, quantity=$4, unit_price=$5,
			min_stock=$6, expiry_date=$7, updated_at=NOW()
		WHERE id = $1`,
		item.ID, item.Name, item.Category, item.Quantity, item.UnitPrice, item.MinStock, item.ExpiryDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Inventory item not found")
	}
	return nil
}

// Decrement guards against the quantity going negative even though callers
// hold a row lock; a zero-row update means the stock check was stale.
func (r *inventoryRepoPG) Decrement(ctx context.Context, id uuid.UUID, by int) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE inventory SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1 AND quantity >= $2`, id, by)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var name string
		var available int
		err := r.conn(ctx).QueryRow(ctx,
			`SELECT name, quantity FROM inventory WHERE id = $1`, id).Scan(&name, &available)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("Inventory item not found")
		}
		if err != nil {
			return err
		}
		return apperr.InsufficientStock(
			"Insufficient stock for %s: requested %d, available %d", name, by, available)
	}
	return nil
}

func (r *inventoryRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM inventory WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Inventory item not found")
	}
	return nil
}

func (r *inventoryRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*InventoryItem, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	idx := 1
	if v, ok := params["name"]; ok {
		where += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+v+"%")
		idx++
	}
	if v, ok := params["category"]; ok {
		where += fmt.Sprintf(` AND category = $%d`, idx)
		args = append(args, v)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM inventory`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + itemCols + ` FROM inventory` + where +
		fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, item)
	}
	return out, total, rows.Err()
}

func (r *inventoryRepoPG) ListLowStock(ctx context.Context) ([]*InventoryItem, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+itemCols+` FROM inventory WHERE quantity <= min_stock ORDER BY quantity`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *inventoryRepoPG) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(quantity), 0),
			COUNT(*) FILTER (WHERE quantity <= min_stock),
			COALESCE(SUM(quantity * unit_price), 0)
		FROM inventory`).Scan(&s.TotalItems, &s.TotalQuantity, &s.LowStockCount, &s.TotalValue)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
