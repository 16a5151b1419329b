package stock

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
	"github.com/vinicius77777/acai-do-max/internal/lock"
	"github.com/vinicius77777/acai-do-max/internal/obs"
)

// Policy decides how an entry for an existing description is folded in.
type Policy string

const (
	// PolicyAccumulate adds the entry to the running entered quantity and cost.
	PolicyAccumulate Policy = "accumulate"
	// PolicyReset replaces entered quantity and cost with the latest entry.
	PolicyReset Policy = "reset"
)

// ParsePolicy validates a policy name.
func ParsePolicy(value string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(value))); p {
	case PolicyAccumulate, PolicyReset:
		return p, nil
	case "":
		return PolicyAccumulate, nil
	default:
		return "", fmt.Errorf("unknown stock re-entry policy %q", value)
	}
}

// Locker serialises work on a key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Invalidator drops derived data after a write.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service maintains the stock ledger.
type Service struct {
	Store    db.Store
	Locker   Locker
	LockTTL  time.Duration
	Policy   Policy
	Cache    Invalidator
	Logger   zerolog.Logger
	Location *time.Location
	Now      func() time.Time
}

// EntryInput is a goods receipt for one description.
type EntryInput struct {
	Description      string           `json:"description" validate:"required"`
	EnteredQty       int64            `json:"entered_qty" validate:"gte=0"`
	EnteredTotalCost decimal.Decimal  `json:"entered_total_cost"`
	SalePrice        *decimal.Decimal `json:"sale_price"`
	EnteredUnit      *string          `json:"entered_unit"`
	StockUnit        *string          `json:"stock_unit"`
	Supplier         *string          `json:"supplier"`
	Invoice          *string          `json:"invoice"`
	DueDate          *string          `json:"due_date"`
	EntryMonth       *string          `json:"entry_month"`
	EntryDay         *int32           `json:"entry_day" validate:"omitempty,min=1,max=31"`
}

// UpdateInput edits an item in place. Nil or blank fields keep the stored value.
type UpdateInput struct {
	Description      *string          `json:"description"`
	EnteredQty       *int64           `json:"entered_qty" validate:"omitempty,gte=0"`
	EnteredTotalCost *decimal.Decimal `json:"entered_total_cost"`
	SalePrice        *decimal.Decimal `json:"sale_price"`
	EnteredUnit      *string          `json:"entered_unit"`
	StockUnit        *string          `json:"stock_unit"`
	Supplier         *string          `json:"supplier"`
	Invoice          *string          `json:"invoice"`
	DueDate          *string          `json:"due_date"`
	EntryMonth       *string          `json:"entry_month"`
	EntryDay         *int32           `json:"entry_day" validate:"omitempty,min=1,max=31"`
}

// Entry records goods for a description, creating the item on first sight.
// The returned flag is true when a new item was created.
func (s *Service) Entry(ctx context.Context, in EntryInput) (db.StockItem, bool, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := validateEntry(in); err != nil {
		return db.StockItem{}, false, err
	}
	fields, err := s.parseFields(in.DueDate, in.EntryMonth, in.EntryDay)
	if err != nil {
		return db.StockItem{}, false, err
	}

	var (
		item    db.StockItem
		created bool
	)
	run := func(ctx context.Context) error {
		return s.Store.ExecTx(ctx, func(q db.Querier) error {
			existing, err := q.GetStockItemByDescriptionForUpdate(ctx, in.Description)
			if errors.Is(err, pgx.ErrNoRows) {
				created = true
				item, err = q.CreateStockItem(ctx, s.newItem(in, fields))
				return err
			}
			if err != nil {
				return err
			}
			created = false
			item, err = q.UpdateStockItem(ctx, s.Policy.reentry(existing, in, fields))
			return err
		})
	}

	err = s.withLock(ctx, in.Description, run)
	if db.IsUniqueViolation(err) {
		// another writer inserted the description first; fold into it
		err = s.withLock(ctx, in.Description, run)
	}
	if err != nil {
		return db.StockItem{}, false, err
	}

	result := "reentered"
	if created {
		result = "created"
	}
	obs.RecordStockEntry(result)
	s.Logger.Info().
		Int64("code", item.Code).
		Str("description", item.Description).
		Int64("qty", in.EnteredQty).
		Str("result", result).
		Str("policy", string(s.policy())).
		Msg("stock entry")
	s.invalidate(ctx)
	return item, created, nil
}

// Update edits an item. A new entered quantity shifts on-hand by the
// difference from the previous entered quantity.
func (s *Service) Update(ctx context.Context, code int64, in UpdateInput) (db.StockItem, error) {
	if err := validateUpdate(in); err != nil {
		return db.StockItem{}, err
	}
	fields, err := s.parseFields(in.DueDate, in.EntryMonth, in.EntryDay)
	if err != nil {
		return db.StockItem{}, err
	}

	var item db.StockItem
	err = s.Store.ExecTx(ctx, func(q db.Querier) error {
		current, err := q.GetStockItemForUpdate(ctx, code)
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFoundError("stock item not found")
		}
		if err != nil {
			return err
		}
		item, err = q.UpdateStockItem(ctx, applyUpdate(current, in, fields))
		return err
	})
	if db.IsUniqueViolation(err) {
		return db.StockItem{}, common.ConflictError("another stock item already uses this description", err)
	}
	if err != nil {
		return db.StockItem{}, err
	}
	s.invalidate(ctx)
	return item, nil
}

// Delete removes an item that no order references.
func (s *Service) Delete(ctx context.Context, code int64) error {
	n, err := s.Store.DeleteStockItem(ctx, code)
	if db.IsForeignKeyViolation(err) {
		return common.ConflictError("stock item is referenced by orders", err)
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return common.NotFoundError("stock item not found")
	}
	s.invalidate(ctx)
	return nil
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, code int64) (db.StockItem, error) {
	item, err := s.Store.GetStockItem(ctx, code)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.StockItem{}, common.NotFoundError("stock item not found")
	}
	return item, err
}

// List returns every item ordered by description.
func (s *Service) List(ctx context.Context) ([]db.StockItem, error) {
	return s.Store.ListStockItems(ctx)
}

func (s *Service) withLock(ctx context.Context, description string, fn func(context.Context) error) error {
	if s.Locker == nil {
		return fn(ctx)
	}
	ran := false
	err := s.Locker.WithLock(ctx, lock.StockEntryKey(description), s.LockTTL, func(ctx context.Context) error {
		ran = true
		return fn(ctx)
	})
	if ran || err == nil || ctx.Err() != nil {
		return err
	}
	// the row lock inside the transaction still orders concurrent writers
	s.Logger.Warn().Err(err).Str("description", description).Msg("stock lock unavailable, continuing without it")
	return fn(ctx)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx); err != nil {
		s.Logger.Warn().Err(err).Msg("report cache invalidation failed")
	}
}

func (s *Service) policy() Policy {
	if s.Policy == "" {
		return PolicyAccumulate
	}
	return s.Policy
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

// optionalFields carries parsed optional inputs.
type optionalFields struct {
	DueDate    pgtype.Date
	EntryMonth pgtype.Text
	EntryDay   pgtype.Int4
}

func (s *Service) parseFields(dueDate, month *string, day *int32) (optionalFields, error) {
	var f optionalFields
	if dueDate != nil && strings.TrimSpace(*dueDate) != "" {
		raw := strings.TrimSpace(*dueDate)
		if len(raw) > 10 {
			raw = raw[:10]
		}
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return f, common.ValidationError("invalid due_date", map[string]string{"due_date": "expected YYYY-MM-DD"})
		}
		f.DueDate = pgtype.Date{Time: t, Valid: true}
	}
	if month != nil && strings.TrimSpace(*month) != "" {
		mm, ok := common.NormalizeMonth(*month)
		if !ok {
			return f, common.ValidationError("invalid entry_month", map[string]string{"entry_month": "expected 1-12"})
		}
		f.EntryMonth = pgtype.Text{String: mm, Valid: true}
	}
	if day != nil {
		f.EntryDay = pgtype.Int4{Int32: *day, Valid: true}
	}
	return f, nil
}

func (s *Service) newItem(in EntryInput, f optionalFields) db.CreateStockItemParams {
	if !f.EntryMonth.Valid && !f.EntryDay.Valid {
		now := s.now()
		f.EntryMonth = pgtype.Text{String: fmt.Sprintf("%02d", int(now.Month())), Valid: true}
		f.EntryDay = pgtype.Int4{Int32: int32(now.Day()), Valid: true}
	}
	return db.CreateStockItemParams{
		Description:      in.Description,
		EntryMonth:       f.EntryMonth,
		EntryDay:         f.EntryDay,
		EnteredQty:       in.EnteredQty,
		EnteredUnit:      text(in.EnteredUnit, pgtype.Text{}),
		EnteredTotalCost: in.EnteredTotalCost,
		UnitCost:         UnitCost(in.EnteredTotalCost, in.EnteredQty),
		OnHandQty:        in.EnteredQty,
		StockUnit:        text(in.StockUnit, pgtype.Text{}),
		SalePrice:        price(in.SalePrice, decimal.NullDecimal{}),
		Supplier:         text(in.Supplier, pgtype.Text{}),
		Invoice:          text(in.Invoice, pgtype.Text{}),
		DueDate:          f.DueDate,
	}
}

func (p Policy) reentry(cur db.StockItem, in EntryInput, f optionalFields) db.UpdateStockItemParams {
	params := db.UpdateStockItemParams{
		Code:        cur.Code,
		Description: cur.Description,
		EntryMonth:  keepText(f.EntryMonth, cur.EntryMonth),
		EntryDay:    keepInt4(f.EntryDay, cur.EntryDay),
		EnteredUnit: text(in.EnteredUnit, cur.EnteredUnit),
		OnHandDelta: in.EnteredQty,
		StockUnit:   text(in.StockUnit, cur.StockUnit),
		SalePrice:   price(in.SalePrice, cur.SalePrice),
		Supplier:    text(in.Supplier, cur.Supplier),
		Invoice:     text(in.Invoice, cur.Invoice),
		DueDate:     keepDate(f.DueDate, cur.DueDate),
	}
	switch p {
	case PolicyReset:
		params.EnteredQty = in.EnteredQty
		params.EnteredTotalCost = in.EnteredTotalCost
	default:
		params.EnteredQty = cur.EnteredQty + in.EnteredQty
		params.EnteredTotalCost = cur.EnteredTotalCost.Add(in.EnteredTotalCost)
	}
	params.UnitCost = UnitCost(params.EnteredTotalCost, params.EnteredQty)
	return params
}

func applyUpdate(cur db.StockItem, in UpdateInput, f optionalFields) db.UpdateStockItemParams {
	params := db.UpdateStockItemParams{
		Code:             cur.Code,
		Description:      cur.Description,
		EntryMonth:       keepText(f.EntryMonth, cur.EntryMonth),
		EntryDay:         keepInt4(f.EntryDay, cur.EntryDay),
		EnteredQty:       cur.EnteredQty,
		EnteredUnit:      text(in.EnteredUnit, cur.EnteredUnit),
		EnteredTotalCost: cur.EnteredTotalCost,
		StockUnit:        text(in.StockUnit, cur.StockUnit),
		SalePrice:        price(in.SalePrice, cur.SalePrice),
		Supplier:         text(in.Supplier, cur.Supplier),
		Invoice:          text(in.Invoice, cur.Invoice),
		DueDate:          keepDate(f.DueDate, cur.DueDate),
	}
	if in.Description != nil {
		params.Description = strings.TrimSpace(*in.Description)
	}
	if in.EnteredQty != nil {
		params.EnteredQty = *in.EnteredQty
		params.OnHandDelta = *in.EnteredQty - cur.EnteredQty
	}
	if in.EnteredTotalCost != nil {
		params.EnteredTotalCost = *in.EnteredTotalCost
	}
	params.UnitCost = UnitCost(params.EnteredTotalCost, params.EnteredQty)
	return params
}

// UnitCost is total/qty rounded to four places, or zero when qty is not positive.
func UnitCost(total decimal.Decimal, qty int64) decimal.Decimal {
	if qty <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(qty)).Round(4)
}

func validateEntry(in EntryInput) error {
	if err := common.ValidateStruct(in); err != nil {
		return err
	}
	if in.Description == "" {
		return common.ValidationError("description is required", map[string]string{"description": "required"})
	}
	if in.EnteredTotalCost.IsNegative() {
		return common.ValidationError("entered_total_cost must not be negative", map[string]string{"entered_total_cost": "gte"})
	}
	if in.SalePrice != nil && in.SalePrice.IsNegative() {
		return common.ValidationError("sale_price must not be negative", map[string]string{"sale_price": "gte"})
	}
	return nil
}

func validateUpdate(in UpdateInput) error {
	if err := common.ValidateStruct(in); err != nil {
		return err
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) == "" {
		return common.ValidationError("description must not be empty", map[string]string{"description": "required"})
	}
	if in.EnteredTotalCost != nil && in.EnteredTotalCost.IsNegative() {
		return common.ValidationError("entered_total_cost must not be negative", map[string]string{"entered_total_cost": "gte"})
	}
	if in.SalePrice != nil && in.SalePrice.IsNegative() {
		return common.ValidationError("sale_price must not be negative", map[string]string{"sale_price": "gte"})
	}
	return nil
}

func text(v *string, fallback pgtype.Text) pgtype.Text {
	if v == nil {
		return fallback
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return fallback
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

func price(v *decimal.Decimal, fallback decimal.NullDecimal) decimal.NullDecimal {
	if v == nil {
		return fallback
	}
	return decimal.NullDecimal{Decimal: v.Round(2), Valid: true}
}

func keepText(v, fallback pgtype.Text) pgtype.Text {
	if v.Valid {
		return v
	}
	return fallback
}

func keepInt4(v, fallback pgtype.Int4) pgtype.Int4 {
	if v.Valid {
		return v
	}
	return fallback
}

func keepDate(v, fallback pgtype.Date) pgtype.Date {
	if v.Valid {
		return v
	}
	return fallback
}
