// Package dbtest provides an in-memory db.Store for service and handler tests.
package dbtest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/vinicius77777/acai-do-max/internal/db"
)

// MemStore mimics the Postgres behaviour the services depend on: unique
// descriptions, the orders -> stock_items foreign key, pgx.ErrNoRows and
// transactional rollback.
type MemStore struct {
	mu     sync.Mutex
	stock  map[int64]db.StockItem
	orders map[int64]db.Order
	seq    int64
	now    func() time.Time

	// Fail makes the named query return the given error.
	Fail map[string]error
	// Calls counts query invocations by name.
	Calls map[string]int
}

var _ db.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		stock:  map[int64]db.StockItem{},
		orders: map[int64]db.Order{},
		now:    time.Now,
		Fail:   map[string]error{},
		Calls:  map[string]int{},
	}
}

// ExecTx snapshots state and restores it when fn fails.
func (m *MemStore) ExecTx(ctx context.Context, fn func(db.Querier) error) error {
	m.mu.Lock()
	stock := make(map[int64]db.StockItem, len(m.stock))
	for k, v := range m.stock {
		stock[k] = v
	}
	orders := make(map[int64]db.Order, len(m.orders))
	for k, v := range m.orders {
		orders[k] = v
	}
	seq := m.seq
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.stock, m.orders, m.seq = stock, orders, seq
		m.mu.Unlock()
		return err
	}
	return nil
}

// PutStock inserts or replaces an item directly, bypassing constraints.
func (m *MemStore) PutStock(item db.StockItem) db.StockItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.Code == 0 {
		m.seq++
		item.Code = m.seq
	}
	m.stock[item.Code] = item
	return item
}

// RemoveStock drops an item without checking references.
func (m *MemStore) RemoveStock(code int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stock, code)
}

// Stock returns the stored item and whether it exists.
func (m *MemStore) Stock(code int64) (db.StockItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.stock[code]
	return item, ok
}

// OrderCount returns the number of stored orders.
func (m *MemStore) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *MemStore) enter(name string) error {
	m.Calls[name]++
	return m.Fail[name]
}

func (m *MemStore) timestamp() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: m.now(), Valid: true}
}

func (m *MemStore) AdjustStockOnHand(ctx context.Context, arg db.AdjustStockOnHandParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("AdjustStockOnHand"); err != nil {
		return 0, err
	}
	item, ok := m.stock[arg.Code]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	item.OnHandQty += arg.Delta
	item.UpdatedAt = m.timestamp()
	m.stock[arg.Code] = item
	return item.OnHandQty, nil
}

func (m *MemStore) CountOrders(ctx context.Context, arg db.CountOrdersParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CountOrders"); err != nil {
		return 0, err
	}
	return int64(len(m.filterOrders(arg.Query, arg.Month))), nil
}

func (m *MemStore) CreateOrder(ctx context.Context, arg db.CreateOrderParams) (db.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateOrder"); err != nil {
		return db.Order{}, err
	}
	if arg.StockCode.Valid {
		if _, ok := m.stock[arg.StockCode.Int64]; !ok {
			return db.Order{}, &pgconn.PgError{Code: db.ForeignKeyViolation}
		}
	}
	m.seq++
	o := db.Order{
		ID:              m.seq,
		Description:     arg.Description,
		Qty:             arg.Qty,
		Responsible:     arg.Responsible,
		Store:           arg.Store,
		Locality:        arg.Locality,
		Day:             arg.Day,
		Month:           arg.Month,
		UnitPrice:       arg.UnitPrice,
		TotalPrice:      arg.TotalPrice,
		UnitProfit:      arg.UnitProfit,
		TotalProfit:     arg.TotalProfit,
		Margin:          arg.Margin,
		DiscountApplied: arg.DiscountApplied,
		StockCode:       arg.StockCode,
		CreatedAt:       m.timestamp(),
		UpdatedAt:       m.timestamp(),
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *MemStore) CreateStockItem(ctx context.Context, arg db.CreateStockItemParams) (db.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateStockItem"); err != nil {
		return db.StockItem{}, err
	}
	if m.descriptionTaken(arg.Description, 0) {
		return db.StockItem{}, &pgconn.PgError{Code: db.UniqueViolation}
	}
	m.seq++
	item := db.StockItem{
		Code:             m.seq,
		Description:      arg.Description,
		EntryMonth:       arg.EntryMonth,
		EntryDay:         arg.EntryDay,
		EnteredQty:       arg.EnteredQty,
		EnteredUnit:      arg.EnteredUnit,
		EnteredTotalCost: arg.EnteredTotalCost,
		UnitCost:         arg.UnitCost,
		OnHandQty:        arg.OnHandQty,
		StockUnit:        arg.StockUnit,
		SalePrice:        arg.SalePrice,
		Supplier:         arg.Supplier,
		Invoice:          arg.Invoice,
		DueDate:          arg.DueDate,
		CreatedAt:        m.timestamp(),
		UpdatedAt:        m.timestamp(),
	}
	m.stock[item.Code] = item
	return item, nil
}

func (m *MemStore) DeleteOrder(ctx context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteOrder"); err != nil {
		return 0, err
	}
	if _, ok := m.orders[id]; !ok {
		return 0, nil
	}
	delete(m.orders, id)
	return 1, nil
}

func (m *MemStore) DeleteStockItem(ctx context.Context, code int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteStockItem"); err != nil {
		return 0, err
	}
	if _, ok := m.stock[code]; !ok {
		return 0, nil
	}
	for _, o := range m.orders {
		if o.StockCode.Valid && o.StockCode.Int64 == code {
			return 0, &pgconn.PgError{Code: db.ForeignKeyViolation}
		}
	}
	delete(m.stock, code)
	return 1, nil
}

func (m *MemStore) GetLastOrderByResponsible(ctx context.Context, responsible string) (db.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetLastOrderByResponsible"); err != nil {
		return db.Order{}, err
	}
	var (
		last  db.Order
		found bool
	)
	for _, o := range m.orders {
		if strings.EqualFold(o.Responsible, responsible) && o.ID > last.ID {
			last, found = o, true
		}
	}
	if !found {
		return db.Order{}, pgx.ErrNoRows
	}
	return last, nil
}

func (m *MemStore) GetOrder(ctx context.Context, id int64) (db.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetOrder"); err != nil {
		return db.Order{}, err
	}
	o, ok := m.orders[id]
	if !ok {
		return db.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *MemStore) GetOrderForUpdate(ctx context.Context, id int64) (db.Order, error) {
	return m.GetOrder(ctx, id)
}

func (m *MemStore) GetStockItem(ctx context.Context, code int64) (db.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetStockItem"); err != nil {
		return db.StockItem{}, err
	}
	item, ok := m.stock[code]
	if !ok {
		return db.StockItem{}, pgx.ErrNoRows
	}
	return item, nil
}

func (m *MemStore) GetStockItemForUpdate(ctx context.Context, code int64) (db.StockItem, error) {
	return m.GetStockItem(ctx, code)
}

func (m *MemStore) GetStockItemByDescription(ctx context.Context, description string) (db.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetStockItemByDescription"); err != nil {
		return db.StockItem{}, err
	}
	for _, item := range m.stock {
		if item.Description == description {
			return item, nil
		}
	}
	return db.StockItem{}, pgx.ErrNoRows
}

func (m *MemStore) GetStockItemByDescriptionForUpdate(ctx context.Context, description string) (db.StockItem, error) {
	return m.GetStockItemByDescription(ctx, description)
}

func (m *MemStore) ListAllOrders(ctx context.Context) ([]db.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListAllOrders"); err != nil {
		return nil, err
	}
	out := m.filterOrders("", "")
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) ListOrders(ctx context.Context, arg db.ListOrdersParams) ([]db.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListOrders"); err != nil {
		return nil, err
	}
	out := m.filterOrders(arg.Query, arg.Month)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	start := int(arg.Offset)
	if start > len(out) {
		start = len(out)
	}
	end := start + int(arg.Limit)
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (m *MemStore) ListStockItems(ctx context.Context) ([]db.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListStockItems"); err != nil {
		return nil, err
	}
	out := make([]db.StockItem, 0, len(m.stock))
	for _, item := range m.stock {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Description < out[j].Description })
	return out, nil
}

func (m *MemStore) UpdateOrder(ctx context.Context, arg db.UpdateOrderParams) (db.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateOrder"); err != nil {
		return db.Order{}, err
	}
	o, ok := m.orders[arg.ID]
	if !ok {
		return db.Order{}, pgx.ErrNoRows
	}
	o.Description = arg.Description
	o.Qty = arg.Qty
	o.Responsible = arg.Responsible
	o.Store = arg.Store
	o.Locality = arg.Locality
	o.Day = arg.Day
	o.Month = arg.Month
	o.UnitPrice = arg.UnitPrice
	o.TotalPrice = arg.TotalPrice
	o.UnitProfit = arg.UnitProfit
	o.TotalProfit = arg.TotalProfit
	o.Margin = arg.Margin
	o.UpdatedAt = m.timestamp()
	m.orders[arg.ID] = o
	return o, nil
}

func (m *MemStore) UpdateStockItem(ctx context.Context, arg db.UpdateStockItemParams) (db.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateStockItem"); err != nil {
		return db.StockItem{}, err
	}
	item, ok := m.stock[arg.Code]
	if !ok {
		return db.StockItem{}, pgx.ErrNoRows
	}
	if m.descriptionTaken(arg.Description, arg.Code) {
		return db.StockItem{}, &pgconn.PgError{Code: db.UniqueViolation}
	}
	item.Description = arg.Description
	item.EntryMonth = arg.EntryMonth
	item.EntryDay = arg.EntryDay
	item.EnteredQty = arg.EnteredQty
	item.EnteredUnit = arg.EnteredUnit
	item.EnteredTotalCost = arg.EnteredTotalCost
	item.UnitCost = arg.UnitCost
	item.OnHandQty += arg.OnHandDelta
	item.StockUnit = arg.StockUnit
	item.SalePrice = arg.SalePrice
	item.Supplier = arg.Supplier
	item.Invoice = arg.Invoice
	item.DueDate = arg.DueDate
	item.UpdatedAt = m.timestamp()
	m.stock[arg.Code] = item
	return item, nil
}

func (m *MemStore) descriptionTaken(description string, except int64) bool {
	for code, item := range m.stock {
		if code != except && item.Description == description {
			return true
		}
	}
	return false
}

func (m *MemStore) filterOrders(query, month string) []db.Order {
	query = strings.ToLower(query)
	out := []db.Order{}
	for _, o := range m.orders {
		if month != "" && o.Month != month {
			continue
		}
		if query != "" && !containsAny(query, o.Description, o.Responsible, o.Store, o.Locality) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func containsAny(query string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}
