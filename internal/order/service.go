package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vinicius77777/acai-do-max/internal/common"
	"github.com/vinicius77777/acai-do-max/internal/db"
	"github.com/vinicius77777/acai-do-max/internal/obs"
	"github.com/vinicius77777/acai-do-max/internal/pricing"
)

// Invalidator drops derived data after a write.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service records sales and keeps stock on-hand in step with them.
type Service struct {
	Store    db.Store
	Rules    pricing.Rules
	Cache    Invalidator
	Logger   zerolog.Logger
	Location *time.Location
	Now      func() time.Time
}

// PreviewInput asks for a price without persisting anything.
type PreviewInput struct {
	Description string `json:"description" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"gte=0"`
	Responsible string `json:"responsible"`
	Store       string `json:"store"`
}

// CreateInput is one order line.
type CreateInput struct {
	Description string           `json:"description" validate:"required"`
	Quantity    int64            `json:"quantity" validate:"gt=0"`
	Responsible string           `json:"responsible"`
	Store       string           `json:"store"`
	Locality    string           `json:"locality"`
	Day         *int32           `json:"day" validate:"omitempty,min=1,max=31"`
	Month       *string          `json:"month"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
}

// EditInput changes an order. Nil fields keep the stored value.
type EditInput struct {
	Description *string          `json:"description"`
	Quantity    *int64           `json:"quantity" validate:"omitempty,gt=0"`
	Responsible *string          `json:"responsible"`
	Store       *string          `json:"store"`
	Locality    *string          `json:"locality"`
	Day         *int32           `json:"day" validate:"omitempty,min=1,max=31"`
	Month       *string          `json:"month"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
}

// ListParams filters the order listing.
type ListParams struct {
	Query  string
	Month  string
	Limit  int
	Offset int
}

// LastOrder is the autofill hint for a responsible.
type LastOrder struct {
	Responsible string          `json:"responsible"`
	Store       string          `json:"store"`
	Locality    string          `json:"locality"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Description string          `json:"description"`
}

// Preview prices a line exactly as Create would without an override.
func (s *Service) Preview(ctx context.Context, in PreviewInput) (pricing.Quote, error) {
	if err := common.ValidateStruct(in); err != nil {
		return pricing.Quote{}, err
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return pricing.Quote{}, common.ValidationError("description is required", map[string]string{"description": "required"})
	}
	qty := in.Quantity
	if qty <= 0 {
		qty = 1
	}
	item, err := s.Store.GetStockItemByDescription(ctx, desc)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return pricing.Quote{}, err
	}
	return s.Rules.Quote(pricing.Request{
		Description: desc,
		Quantity:    qty,
		Responsible: strings.TrimSpace(in.Responsible),
		Store:       strings.TrimSpace(in.Store),
		Item:        pricingItem(item, err == nil),
	}), nil
}

// Create persists an order and decrements matched stock in one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (db.Order, error) {
	orders, err := s.CreateBatch(ctx, []CreateInput{in})
	if err != nil {
		return db.Order{}, err
	}
	return orders[0], nil
}

// CreateBatch persists several lines atomically; any invalid line rejects all.
func (s *Service) CreateBatch(ctx context.Context, lines []CreateInput) ([]db.Order, error) {
	if len(lines) == 0 {
		return nil, common.ValidationError("at least one order line is required", nil)
	}
	normalized := make([]CreateInput, len(lines))
	for i, in := range lines {
		n, err := s.normalizeCreate(in)
		if err != nil {
			if appErr, ok := common.AsAppError(err); ok && len(lines) > 1 {
				appErr.Details = map[string]any{"line": i, "errors": appErr.Details}
			}
			return nil, err
		}
		normalized[i] = n
	}

	created := make([]db.Order, 0, len(normalized))
	err := s.Store.ExecTx(ctx, func(q db.Querier) error {
		created = created[:0]
		for _, in := range normalized {
			o, err := s.createLine(ctx, q, in)
			if err != nil {
				return err
			}
			created = append(created, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, o := range created {
		obs.RecordOrderCreated(o.DiscountApplied, o.TotalPrice.InexactFloat64(), o.TotalProfit.InexactFloat64())
		s.Logger.Info().
			Int64("order_id", o.ID).
			Str("description", o.Description).
			Int64("qty", o.Qty).
			Str("unit_price", o.UnitPrice.StringFixed(2)).
			Bool("discount_applied", o.DiscountApplied).
			Bool("stock_matched", o.StockCode.Valid).
			Msg("order created")
	}
	s.invalidate(ctx)
	return created, nil
}

func (s *Service) createLine(ctx context.Context, q db.Querier, in CreateInput) (db.Order, error) {
	item, err := q.GetStockItemByDescriptionForUpdate(ctx, in.Description)
	matched := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return db.Order{}, err
	}

	quote := s.Rules.Quote(pricing.Request{
		Description: in.Description,
		Quantity:    in.Quantity,
		Responsible: in.Responsible,
		Store:       in.Store,
		Item:        pricingItem(item, matched),
	})
	unitPrice, total := quote.UnitPrice, quote.TotalPrice
	if in.UnitPrice != nil && in.UnitPrice.IsPositive() && quote.Rule != pricing.RuleFixedPrice {
		unitPrice = in.UnitPrice.Round(2)
		total = unitPrice.Mul(decimal.NewFromInt(in.Quantity)).Round(2)
	}
	profit := lineProfit(unitPrice, quote.UnitCost, in.Quantity, matched)

	day, month := s.saleDate(in.Day, in.Month)
	params := db.CreateOrderParams{
		Description:     in.Description,
		Qty:             in.Quantity,
		Responsible:     in.Responsible,
		Store:           in.Store,
		Locality:        in.Locality,
		Day:             day,
		Month:           month,
		UnitPrice:       unitPrice,
		TotalPrice:      total,
		UnitProfit:      profit.UnitProfit,
		TotalProfit:     profit.TotalProfit,
		Margin:          profit.Margin,
		DiscountApplied: quote.DiscountApplied,
	}
	if matched {
		params.StockCode = pgtype.Int8{Int64: item.Code, Valid: true}
	}
	o, err := q.CreateOrder(ctx, params)
	if err != nil {
		return db.Order{}, err
	}
	if matched {
		if _, err := q.AdjustStockOnHand(ctx, db.AdjustStockOnHandParams{Code: item.Code, Delta: -in.Quantity}); err != nil {
			return db.Order{}, err
		}
	}
	return o, nil
}

// Edit updates an order and recomputes profit from the current unit cost of
// the stock item captured at creation. On-hand quantity is left alone.
func (s *Service) Edit(ctx context.Context, id int64, in EditInput) (db.Order, error) {
	if err := common.ValidateStruct(in); err != nil {
		return db.Order{}, err
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return db.Order{}, common.ValidationError("unit_price must not be negative", map[string]string{"unit_price": "gte"})
	}
	var month *string
	if in.Month != nil && strings.TrimSpace(*in.Month) != "" {
		mm, ok := common.NormalizeMonth(*in.Month)
		if !ok {
			return db.Order{}, common.ValidationError("invalid month", map[string]string{"month": "expected 1-12"})
		}
		month = &mm
	}

	var updated db.Order
	err := s.Store.ExecTx(ctx, func(q db.Querier) error {
		cur, err := q.GetOrderForUpdate(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFoundError("order not found")
		}
		if err != nil {
			return err
		}

		unitCost := decimal.Zero
		matched := false
		if cur.StockCode.Valid {
			item, err := q.GetStockItem(ctx, cur.StockCode.Int64)
			switch {
			case err == nil:
				unitCost, matched = item.UnitCost, true
			case !errors.Is(err, pgx.ErrNoRows):
				return err
			}
		}

		qty := cur.Qty
		if in.Quantity != nil {
			qty = *in.Quantity
		}
		unitPrice := cur.UnitPrice
		if in.UnitPrice != nil && in.UnitPrice.IsPositive() {
			unitPrice = in.UnitPrice.Round(2)
		}
		profit := lineProfit(unitPrice, unitCost, qty, matched)

		params := db.UpdateOrderParams{
			ID:          cur.ID,
			Description: keep(in.Description, cur.Description),
			Qty:         qty,
			Responsible: keep(in.Responsible, cur.Responsible),
			Store:       keep(in.Store, cur.Store),
			Locality:    keep(in.Locality, cur.Locality),
			Day:         cur.Day,
			Month:       cur.Month,
			UnitPrice:   unitPrice,
			TotalPrice:  unitPrice.Mul(decimal.NewFromInt(qty)).Round(2),
			UnitProfit:  profit.UnitProfit,
			TotalProfit: profit.TotalProfit,
			Margin:      profit.Margin,
		}
		if in.Day != nil {
			params.Day = *in.Day
		}
		if month != nil {
			params.Month = *month
		}
		updated, err = q.UpdateOrder(ctx, params)
		return err
	})
	if err != nil {
		return db.Order{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Delete reverses an order: matched stock gets its quantity back, then the
// order row is removed. A stock item that no longer exists is skipped.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var (
		removed  db.Order
		restored bool
	)
	err := s.Store.ExecTx(ctx, func(q db.Querier) error {
		o, err := q.GetOrderForUpdate(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFoundError("order not found")
		}
		if err != nil {
			return err
		}
		removed = o
		if o.StockCode.Valid {
			_, err := q.AdjustStockOnHand(ctx, db.AdjustStockOnHandParams{Code: o.StockCode.Int64, Delta: o.Qty})
			switch {
			case err == nil:
				restored = true
			case errors.Is(err, pgx.ErrNoRows):
				s.Logger.Debug().Int64("order_id", o.ID).Int64("stock_code", o.StockCode.Int64).Msg("stock item gone, skipping restore")
			default:
				return err
			}
		}
		_, err = q.DeleteOrder(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	obs.RecordOrderDeleted(restored, removed.TotalProfit.InexactFloat64())
	s.Logger.Info().Int64("order_id", id).Bool("stock_restored", restored).Msg("order deleted")
	s.invalidate(ctx)
	return nil
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, id int64) (db.Order, error) {
	o, err := s.Store.GetOrder(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.Order{}, common.NotFoundError("order not found")
	}
	return o, err
}

// List returns a page of orders, newest first, and the filtered total.
func (s *Service) List(ctx context.Context, p ListParams) ([]db.Order, int64, error) {
	month := ""
	if strings.TrimSpace(p.Month) != "" {
		mm, ok := common.NormalizeMonth(p.Month)
		if !ok {
			return nil, 0, common.ValidationError("invalid month", map[string]string{"month": "expected 1-12"})
		}
		month = mm
	}
	query := strings.TrimSpace(p.Query)
	total, err := s.Store.CountOrders(ctx, db.CountOrdersParams{Query: query, Month: month})
	if err != nil {
		return nil, 0, err
	}
	orders, err := s.Store.ListOrders(ctx, db.ListOrdersParams{
		Query:  query,
		Month:  month,
		Limit:  int32(p.Limit),
		Offset: int32(p.Offset),
	})
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Last returns locality and price of the newest order placed by responsible.
func (s *Service) Last(ctx context.Context, responsible string) (LastOrder, error) {
	responsible = strings.TrimSpace(responsible)
	if responsible == "" {
		return LastOrder{}, common.ValidationError("responsible is required", map[string]string{"responsible": "required"})
	}
	o, err := s.Store.GetLastOrderByResponsible(ctx, responsible)
	if errors.Is(err, pgx.ErrNoRows) {
		return LastOrder{}, common.NotFoundError("no orders for responsible")
	}
	if err != nil {
		return LastOrder{}, err
	}
	return LastOrder{
		Responsible: o.Responsible,
		Store:       o.Store,
		Locality:    o.Locality,
		UnitPrice:   o.UnitPrice,
		Description: o.Description,
	}, nil
}

func (s *Service) normalizeCreate(in CreateInput) (CreateInput, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.Responsible = strings.TrimSpace(in.Responsible)
	in.Store = strings.TrimSpace(in.Store)
	in.Locality = strings.TrimSpace(in.Locality)
	if err := common.ValidateStruct(in); err != nil {
		return in, err
	}
	if in.Description == "" {
		return in, common.ValidationError("description is required", map[string]string{"description": "required"})
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return in, common.ValidationError("unit_price must not be negative", map[string]string{"unit_price": "gte"})
	}
	if in.Month != nil {
		if strings.TrimSpace(*in.Month) == "" {
			in.Month = nil
		} else {
			mm, ok := common.NormalizeMonth(*in.Month)
			if !ok {
				return in, common.ValidationError("invalid month", map[string]string{"month": "expected 1-12"})
			}
			in.Month = &mm
		}
	}
	return in, nil
}

// saleDate resolves explicit day/month against today's date in the
// configured location.
func (s *Service) saleDate(day *int32, month *string) (int32, string) {
	now := s.now()
	d := int32(now.Day())
	m := fmt.Sprintf("%02d", int(now.Month()))
	if day != nil {
		d = *day
	}
	if month != nil {
		m = *month
	}
	return d, m
}

func (s *Service) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if s.Location != nil {
		return now().In(s.Location)
	}
	return now()
}

func (s *Service) invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx); err != nil {
		s.Logger.Warn().Err(err).Msg("report cache invalidation failed")
	}
}

func pricingItem(item db.StockItem, matched bool) *pricing.Item {
	if !matched {
		return nil
	}
	return &pricing.Item{UnitCost: item.UnitCost, SalePrice: item.SalePrice.Decimal}
}

func keep(v *string, fallback string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return fallback
	}
	return strings.TrimSpace(*v)
}

// lineProfit reports zero profit for lines with no stock item behind them,
// since there is no cost to measure against.
func lineProfit(unitPrice, unitCost decimal.Decimal, qty int64, matched bool) pricing.Profit {
	if !matched {
		return pricing.Profit{UnitProfit: decimal.Zero, TotalProfit: decimal.Zero, Margin: "0%"}
	}
	return pricing.Profitability(unitPrice, unitCost, qty)
}
