package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, description, qty, responsible, store, locality, day, month, unit_price,
    total_price, unit_profit, total_profit, margin, discount_applied, stock_code, created_at,
    updated_at`

func scanOrder(row rowScanner) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.Description,
		&i.Qty,
		&i.Responsible,
		&i.Store,
		&i.Locality,
		&i.Day,
		&i.Month,
		&i.UnitPrice,
		&i.TotalPrice,
		&i.UnitProfit,
		&i.TotalProfit,
		&i.Margin,
		&i.DiscountApplied,
		&i.StockCode,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectOrders(ctx context.Context, q *Queries, sql string, args ...interface{}) ([]Order, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
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

const orderFilter = `
WHERE ($1::text = '' OR description ILIKE '%' || $1 || '%'
        OR responsible ILIKE '%' || $1 || '%'
        OR store ILIKE '%' || $1 || '%'
        OR locality ILIKE '%' || $1 || '%')
  AND ($2::text = '' OR month = $2)
`

const countOrders = `-- name: CountOrders :one
SELECT count(*) FROM orders` + orderFilter

type CountOrdersParams struct {
	Query string
	Month string
}

func (q *Queries) CountOrders(ctx context.Context, arg CountOrdersParams) (int64, error) {
	row := q.db.QueryRow(ctx, countOrders, arg.Query, arg.Month)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (
    description, qty, responsible, store, locality, day, month, unit_price, total_price,
    unit_profit, total_profit, margin, discount_applied, stock_code
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	Description     string
	Qty             int64
	Responsible     string
	Store           string
	Locality        string
	Day             int32
	Month           string
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
	UnitProfit      decimal.Decimal
	TotalProfit     decimal.Decimal
	Margin          string
	DiscountApplied bool
	StockCode       pgtype.Int8
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.Description,
		arg.Qty,
		arg.Responsible,
		arg.Store,
		arg.Locality,
		arg.Day,
		arg.Month,
		arg.UnitPrice,
		arg.TotalPrice,
		arg.UnitProfit,
		arg.TotalProfit,
		arg.Margin,
		arg.DiscountApplied,
		arg.StockCode,
	)
	return scanOrder(row)
}

const deleteOrder = `-- name: DeleteOrder :execrows
DELETE FROM orders WHERE id = $1
`

func (q *Queries) DeleteOrder(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.Exec(ctx, deleteOrder, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getLastOrderByResponsible = `-- name: GetLastOrderByResponsible :one
SELECT ` + orderColumns + `
FROM orders
WHERE lower(responsible) = lower($1)
ORDER BY id DESC
LIMIT 1
`

func (q *Queries) GetLastOrderByResponsible(ctx context.Context, responsible string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getLastOrderByResponsible, responsible))
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + `
FROM orders WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + `
FROM orders WHERE id = $1
FOR UPDATE
`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listAllOrders = `-- name: ListAllOrders :many
SELECT ` + orderColumns + `
FROM orders
ORDER BY id ASC
`

func (q *Queries) ListAllOrders(ctx context.Context) ([]Order, error) {
	return collectOrders(ctx, q, listAllOrders)
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + `
FROM orders` + orderFilter + `
ORDER BY id DESC
LIMIT $3 OFFSET $4
`

type ListOrdersParams struct {
	Query  string
	Month  string
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	return collectOrders(ctx, q, listOrders, arg.Query, arg.Month, arg.Limit, arg.Offset)
}

const updateOrder = `-- name: UpdateOrder :one
UPDATE orders SET
    description = $2,
    qty = $3,
    responsible = $4,
    store = $5,
    locality = $6,
    day = $7,
    month = $8,
    unit_price = $9,
    total_price = $10,
    unit_profit = $11,
    total_profit = $12,
    margin = $13,
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderParams struct {
	ID          int64
	Description string
	Qty         int64
	Responsible string
	Store       string
	Locality    string
	Day         int32
	Month       string
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
	UnitProfit  decimal.Decimal
	TotalProfit decimal.Decimal
	Margin      string
}

func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrder,
		arg.ID,
		arg.Description,
		arg.Qty,
		arg.Responsible,
		arg.Store,
		arg.Locality,
		arg.Day,
		arg.Month,
		arg.UnitPrice,
		arg.TotalPrice,
		arg.UnitProfit,
		arg.TotalProfit,
		arg.Margin,
	)
	return scanOrder(row)
}
