package db

import (
	"context"
)

type Querier interface {
	AdjustStockOnHand(ctx context.Context, arg AdjustStockOnHandParams) (int64, error)
	CountOrders(ctx context.Context, arg CountOrdersParams) (int64, error)
	CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error)
	CreateStockItem(ctx context.Context, arg CreateStockItemParams) (StockItem, error)
	DeleteOrder(ctx context.Context, id int64) (int64, error)
	DeleteStockItem(ctx context.Context, code int64) (int64, error)
	GetLastOrderByResponsible(ctx context.Context, responsible string) (Order, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	GetStockItem(ctx context.Context, code int64) (StockItem, error)
	GetStockItemByDescription(ctx context.Context, description string) (StockItem, error)
	GetStockItemByDescriptionForUpdate(ctx context.Context, description string) (StockItem, error)
	GetStockItemForUpdate(ctx context.Context, code int64) (StockItem, error)
	ListAllOrders(ctx context.Context) ([]Order, error)
	ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error)
	ListStockItems(ctx context.Context) ([]StockItem, error)
	UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error)
	UpdateStockItem(ctx context.Context, arg UpdateStockItemParams) (StockItem, error)
}

var _ Querier = (*Queries)(nil)
