package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const stockItemColumns = `code, description, entry_month, entry_day, entered_qty, entered_unit,
    entered_total_cost, unit_cost, on_hand_qty, stock_unit, sale_price, supplier, invoice,
    due_date, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStockItem(row rowScanner) (StockItem, error) {
	var i StockItem
	err := row.Scan(
		&i.Code,
		&i.Description,
		&i.EntryMonth,
		&i.EntryDay,
		&i.EnteredQty,
		&i.EnteredUnit,
		&i.EnteredTotalCost,
		&i.UnitCost,
		&i.OnHandQty,
		&i.StockUnit,
		&i.SalePrice,
		&i.Supplier,
		&i.Invoice,
		&i.DueDate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const adjustStockOnHand = `-- name: AdjustStockOnHand :one
UPDATE stock_items
SET on_hand_qty = on_hand_qty + $2, updated_at = now()
WHERE code = $1
RETURNING on_hand_qty
`

type AdjustStockOnHandParams struct {
	Code  int64
	Delta int64
}

// AdjustStockOnHand applies a relative change and returns the new on-hand
// quantity. pgx.ErrNoRows means the item no longer exists.
func (q *Queries) AdjustStockOnHand(ctx context.Context, arg AdjustStockOnHandParams) (int64, error) {
	row := q.db.QueryRow(ctx, adjustStockOnHand, arg.Code, arg.Delta)
	var onHand int64
	err := row.Scan(&onHand)
	return onHand, err
}

const createStockItem = `-- name: CreateStockItem :one
INSERT INTO stock_items (
    description, entry_month, entry_day, entered_qty, entered_unit, entered_total_cost,
    unit_cost, on_hand_qty, stock_unit, sale_price, supplier, invoice, due_date
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
)
RETURNING ` + stockItemColumns

type CreateStockItemParams struct {
	Description      string
	EntryMonth       pgtype.Text
	EntryDay         pgtype.Int4
	EnteredQty       int64
	EnteredUnit      pgtype.Text
	EnteredTotalCost decimal.Decimal
	UnitCost         decimal.Decimal
	OnHandQty        int64
	StockUnit        pgtype.Text
	SalePrice        decimal.NullDecimal
	Supplier         pgtype.Text
	Invoice          pgtype.Text
	DueDate          pgtype.Date
}

func (q *Queries) CreateStockItem(ctx context.Context, arg CreateStockItemParams) (StockItem, error) {
	row := q.db.QueryRow(ctx, createStockItem,
		arg.Description,
		arg.EntryMonth,
		arg.EntryDay,
		arg.EnteredQty,
		arg.EnteredUnit,
		arg.EnteredTotalCost,
		arg.UnitCost,
		arg.OnHandQty,
		arg.StockUnit,
		arg.SalePrice,
		arg.Supplier,
		arg.Invoice,
		arg.DueDate,
	)
	return scanStockItem(row)
}

const deleteStockItem = `-- name: DeleteStockItem :execrows
DELETE FROM stock_items WHERE code = $1
`

func (q *Queries) DeleteStockItem(ctx context.Context, code int64) (int64, error) {
	result, err := q.db.Exec(ctx, deleteStockItem, code)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getStockItem = `-- name: GetStockItem :one
SELECT ` + stockItemColumns + `
FROM stock_items WHERE code = $1
`

func (q *Queries) GetStockItem(ctx context.Context, code int64) (StockItem, error) {
	return scanStockItem(q.db.QueryRow(ctx, getStockItem, code))
}

const getStockItemForUpdate = `-- name: GetStockItemForUpdate :one
SELECT ` + stockItemColumns + `
FROM stock_items WHERE code = $1
FOR UPDATE
`

func (q *Queries) GetStockItemForUpdate(ctx context.Context, code int64) (StockItem, error) {
	return scanStockItem(q.db.QueryRow(ctx, getStockItemForUpdate, code))
}

const getStockItemByDescription = `-- name: GetStockItemByDescription :one
SELECT ` + stockItemColumns + `
FROM stock_items WHERE description = $1
`

func (q *Queries) GetStockItemByDescription(ctx context.Context, description string) (StockItem, error) {
	return scanStockItem(q.db.QueryRow(ctx, getStockItemByDescription, description))
}

const getStockItemByDescriptionForUpdate = `-- name: GetStockItemByDescriptionForUpdate :one
SELECT ` + stockItemColumns + `
FROM stock_items WHERE description = $1
FOR UPDATE
`

func (q *Queries) GetStockItemByDescriptionForUpdate(ctx context.Context, description string) (StockItem, error) {
	return scanStockItem(q.db.QueryRow(ctx, getStockItemByDescriptionForUpdate, description))
}

const listStockItems = `-- name: ListStockItems :many
SELECT ` + stockItemColumns + `
FROM stock_items
ORDER BY description ASC
`

func (q *Queries) ListStockItems(ctx context.Context) ([]StockItem, error) {
	rows, err := q.db.Query(ctx, listStockItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []StockItem{}
	for rows.Next() {
		i, err := scanStockItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateStockItem = `-- name: UpdateStockItem :one
UPDATE stock_items SET
    description = $2,
    entry_month = $3,
    entry_day = $4,
    entered_qty = $5,
    entered_unit = $6,
    entered_total_cost = $7,
    unit_cost = $8,
    on_hand_qty = on_hand_qty + $9,
    stock_unit = $10,
    sale_price = $11,
    supplier = $12,
    invoice = $13,
    due_date = $14,
    updated_at = now()
WHERE code = $1
RETURNING ` + stockItemColumns

type UpdateStockItemParams struct {
	Code             int64
	Description      string
	EntryMonth       pgtype.Text
	EntryDay         pgtype.Int4
	EnteredQty       int64
	EnteredUnit      pgtype.Text
	EnteredTotalCost decimal.Decimal
	UnitCost         decimal.Decimal
	OnHandDelta      int64
	StockUnit        pgtype.Text
	SalePrice        decimal.NullDecimal
	Supplier         pgtype.Text
	Invoice          pgtype.Text
	DueDate          pgtype.Date
}

// UpdateStockItem replaces the descriptive fields and shifts on-hand by
// OnHandDelta relative to the stored value.
func (q *Queries) UpdateStockItem(ctx context.Context, arg UpdateStockItemParams) (StockItem, error) {
	row := q.db.QueryRow(ctx, updateStockItem,
		arg.Code,
		arg.Description,
		arg.EntryMonth,
		arg.EntryDay,
		arg.EnteredQty,
		arg.EnteredUnit,
		arg.EnteredTotalCost,
		arg.UnitCost,
		arg.OnHandDelta,
		arg.StockUnit,
		arg.SalePrice,
		arg.Supplier,
		arg.Invoice,
		arg.DueDate,
	)
	return scanStockItem(row)
}
