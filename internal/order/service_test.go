package order

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vinicius77777/acai-do-max/internal/common"
	"github.com/vinicius77777/acai-do-max/internal/db"
	"github.com/vinicius77777/acai-do-max/internal/db/dbtest"
	"github.com/vinicius77777/acai-do-max/internal/pricing"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

type countingCache struct{ calls int }

func (c *countingCache) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func newService(t *testing.T) (*Service, *dbtest.MemStore) {
	t.Helper()
	store := dbtest.NewMemStore()
	return &Service{
		Store:  store,
		Rules:  pricing.DefaultRules(),
		Cache:  &countingCache{},
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return time.Date(2025, 1, 20, 23, 30, 0, 0, time.UTC) },
	}, store
}

func seed(store *dbtest.MemStore, desc, cost, price string, onHand int64) db.StockItem {
	return store.PutStock(db.StockItem{
		Description: desc,
		EnteredQty:  onHand,
		UnitCost:    dec(cost),
		OnHandQty:   onHand,
		SalePrice:   decimal.NullDecimal{Decimal: dec(price), Valid: true},
	})
}

func TestCreateThenDeleteRestoresStock(t *testing.T) {
	svc, store := newService(t)
	item := seed(store, "Granola", "10", "20", 30)
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateInput{Description: "Granola", Quantity: 7, Responsible: "Ana", Store: "Loja 1"})
	require.NoError(t, err)
	after, _ := store.Stock(item.Code)
	require.Equal(t, int64(23), after.OnHandQty)

	require.NoError(t, svc.Delete(ctx, o.ID))
	restored, _ := store.Stock(item.Code)
	require.Equal(t, int64(30), restored.OnHandQty)
	require.Zero(t, store.OrderCount())
}

func TestPreviewMatchesCreate(t *testing.T) {
	svc, store := newService(t)
	seed(store, "Granola", "10", "20", 5)
	ctx := context.Background()

	for _, pair := range []pricing.Pair{{Responsible: "Rodrigo", Store: "Barra Açaí"}, {Responsible: "Ana", Store: "Loja 1"}} {
		q, err := svc.Preview(ctx, PreviewInput{Description: "Granola", Quantity: 3, Responsible: pair.Responsible, Store: pair.Store})
		require.NoError(t, err)
		o, err := svc.Create(ctx, CreateInput{Description: "Granola", Quantity: 3, Responsible: pair.Responsible, Store: pair.Store})
		require.NoError(t, err)
		require.True(t, q.UnitPrice.Equal(o.UnitPrice), "%v: preview %s create %s", pair, q.UnitPrice, o.UnitPrice)
		require.True(t, q.TotalPrice.Equal(o.TotalPrice))
		require.Equal(t, q.DiscountApplied, o.DiscountApplied)
	}
}

func TestPreviewFixedPrice(t *testing.T) {
	svc, _ := newService(t)
	q, err := svc.Preview(context.Background(), PreviewInput{Description: "Açaí 500ml", Quantity: 2, Responsible: "Rodrigo", Store: "Barra Açaí"})
	require.NoError(t, err)
	require.Equal(t, "122.50", q.UnitPrice.StringFixed(2))
	require.Equal(t, "245.00", q.TotalPrice.StringFixed(2))
	require.True(t, q.DiscountApplied)
}

func TestPreviewDefaultsQuantityToOne(t *testing.T) {
	svc, store := newService(t)
	seed(store, "Granola", "10", "20", 5)
	q, err := svc.Preview(context.Background(), PreviewInput{Description: "Granola"})
	require.NoError(t, err)
	require.Equal(t, "20.00", q.TotalPrice.StringFixed(2))
	require.Zero(t, store.Calls["AdjustStockOnHand"])
}

func TestCreateLoyaltyProfit(t *testing.T) {
	svc, store := newService(t)
	seed(store, "Granola", "10", "20", 5)
	o, err := svc.Create(context.Background(), CreateInput{Description: "Granola", Quantity: 2, Responsible: "Rodrigo", Store: "Barra Açaí"})
	require.NoError(t, err)
	require.Equal(t, "15.00", o.UnitPrice.StringFixed(2))
	require.Equal(t, "30.00", o.TotalPrice.StringFixed(2))
	require.True(t, o.UnitProfit.Equal(dec("5")))
	require.True(t, o.TotalProfit.Equal(dec("10")))
	require.Equal(t, "33.33%", o.Margin)
	require.True(t, o.DiscountApplied)
}

func TestCreateOverrideRecomputesProfit(t *testing.T) {
	svc, store := newService(t)
	seed(store, "Granola", "10", "20", 5)
	o, err := svc.Create(context.Background(), CreateInput{Description: "Granola", Quantity: 2, UnitPrice: decPtr("25")})
	require.NoError(t, err)
	require.Equal(t, "25.00", o.UnitPrice.StringFixed(2))
	require.Equal(t, "50.00", o.TotalPrice.StringFixed(2))
	require.True(t, o.UnitProfit.Equal(dec("15")))
	require.Equal(t, "60.00%", o.Margin)
}

func TestCreateOverrideIgnoredForFixedPrice(t *testing.T) {
	svc, _ := newService(t)
	o, err := svc.Create(context.Background(), CreateInput{
		Description: "Açaí 1L",
		Quantity:    1,
		Responsible: "Rodrigo",
		Store:       "Barra Açaí",
		UnitPrice:   decPtr("99"),
	})
	require.NoError(t, err)
	require.Equal(t, "122.50", o.UnitPrice.StringFixed(2))
}

func TestCreateWithoutStockMatch(t *testing.T) {
	svc, store := newService(t)
	o, err := svc.Create(context.Background(), CreateInput{Description: "Item avulso", Quantity: 1})
	require.NoError(t, err)
	require.False(t, o.StockCode.Valid)
	require.True(t, o.UnitPrice.IsZero())
	require.Equal(t, "0%", o.Margin)
	require.Zero(t, store.Calls["AdjustStockOnHand"])
}

func TestCreateAllowsNegativeOnHand(t *testing.T) {
	svc, store := newService(t)
	item := seed(store, "Granola", "10", "20", 1)
	_, err := svc.Create(context.Background(), CreateInput{Description: "Granola", Quantity: 3})
	require.NoError(t, err)
	after, _ := store.Stock(item.Code)
	require.Equal(t, int64(-2), after.OnHandQty)
}

func TestCreateSaleDate(t *testing.T) {
	svc, _ := newService(t)
	sp, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	svc.Location = sp

	o, err := svc.Create(context.Background(), CreateInput{Description: "X", Quantity: 1})
	require.NoError(t, err)
	// 23:30 UTC on the 20th is still the 20th in São Paulo
	require.Equal(t, int32(20), o.Day)
	require.Equal(t, "01", o.Month)

	day := int32(5)
	month := "3"
	o, err = svc.Create(context.Background(), CreateInput{Description: "X", Quantity: 1, Day: &day, Month: &month})
	require.NoError(t, err)
	require.Equal(t, int32(5), o.Day)
	require.Equal(t, "03", o.Month)
}

func TestCreateRollsBackOnStockFailure(t *testing.T) {
	svc, store := newService(t)
	item := seed(store, "Granola", "10", "20", 5)
	store.Fail["AdjustStockOnHand"] = errors.New("connection reset")

	_, err := svc.Create(context.Background(), CreateInput{Description: "Granola", Quantity: 2})
	require.Error(t, err)
	require.Zero(t, store.OrderCount())
	after, _ := store.Stock(item.Code)
	require.Equal(t, int64(5), after.OnHandQty)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t)
	bad := "13"
	for _, in := range []CreateInput{
		{Description: " ", Quantity: 1},
		{Description: "X", Quantity: 0},
		{Description: "X", Quantity: 1, Month: &bad},
		{Description: "X", Quantity: 1, UnitPrice: decPtr("-1")},
	} {
		_, err := svc.Create(context.Background(), in)
		appErr, ok := common.AsAppError(err)
		require.True(t, ok, "%+v", in)
		require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	}
}

func TestCreateBatchIsAtomic(t *testing.T) {
	svc, store := newService(t)
	item := seed(store, "Granola", "10", "20", 10)

	orders, err := svc.CreateBatch(context.Background(), []CreateInput{
		{Description: "Granola", Quantity: 2},
		{Description: "Granola", Quantity: 3},
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	after, _ := store.Stock(item.Code)
	require.Equal(t, int64(5), after.OnHandQty)

	_, err = svc.CreateBatch(context.Background(), []CreateInput{
		{Description: "Granola", Quantity: 1},
		{Description: "", Quantity: 1},
	})
	require.Error(t, err)
	require.Equal(t, 2, store.OrderCount())
}

func TestEditRecomputesFromCurrentCost(t *testing.T) {
	svc, store := newService(t)
	item := seed(store, "Granola", "10", "20", 10)
	ctx := context.Background()
	o, err := svc.Create(ctx, CreateInput{Description: "Granola", Quantity: 2, Locality: "Centro"})
	require.NoError(t, err)

	current, _ := store.Stock(item.Code)
	current.UnitCost = dec("12")
	store.PutStock(current)

	qty := int64(4)
	edited, err := svc.Edit(ctx, o.ID, EditInput{Quantity: &qty})
	require.NoError(t, err)
	require.Equal(t, int64(4), edited.Qty)
	require.Equal(t, "80.00", edited.TotalPrice.StringFixed(2))
	require.True(t, edited.UnitProfit.Equal(dec("8")))
	require.True(t, edited.TotalProfit.Equal(dec("32")))
	require.Equal(t, "40.00%", edited.Margin)
	require.Equal(t, "Centro", edited.Locality)

	after, _ := store.Stock(item.Code)
	require.Equal(t, int64(8), after.OnHandQty, "edit leaves on-hand untouched")
}

func TestEditWithoutStockItemHasNoProfit(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	o, err := svc.Create(ctx, CreateInput{Description: "Sem estoque", Quantity: 2})
	require.NoError(t, err)
	require.False(t, o.StockCode.Valid)

	price := dec("10")
	edited, err := svc.Edit(ctx, o.ID, EditInput{UnitPrice: &price})
	require.NoError(t, err)
	require.Equal(t, "20.00", edited.TotalPrice.StringFixed(2))
	require.True(t, edited.UnitProfit.IsZero())
	require.True(t, edited.TotalProfit.IsZero())
	require.Equal(t, "0%", edited.Margin)
}

func TestCreateWithoutStockMatchIgnoresPriceForProfit(t *testing.T) {
	svc, _ := newService(t)
	price := dec("10")
	o, err := svc.Create(context.Background(), CreateInput{Description: "Item avulso", Quantity: 3, UnitPrice: &price})
	require.NoError(t, err)
	require.True(t, o.UnitPrice.Equal(price))
	require.True(t, o.TotalProfit.IsZero())
	require.Equal(t, "0%", o.Margin)
}

func TestEditPriceOverride(t *testing.T) {
	svc, store := newService(t)
	seed(store, "Granola", "10", "20", 10)
	ctx := context.Background()
	o, err := svc.Create(ctx, CreateInput{Description: "Granola", Quantity: 2})
	require.NoError(t, err)

	edited, err := svc.Edit(ctx, o.ID, EditInput{UnitPrice: decPtr("10")})
	require.NoError(t, err)
	require.Equal(t, "20.00", edited.TotalPrice.StringFixed(2))
	require.Equal(t, "0.00%", edited.Margin)
}

func TestEditMissingOrder(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Edit(context.Background(), 5, EditInput{})
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

func TestDeleteWithoutStockReference(t *testing.T) {
	svc, store := newService(t)
	o, err := store.CreateOrder(context.Background(), db.CreateOrderParams{Description: "Avulso", Qty: 2, Margin: "0%"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), o.ID))
	require.Zero(t, store.Calls["AdjustStockOnHand"])
	require.Zero(t, store.OrderCount())
}

func TestDeleteSkipsMissingStockItem(t *testing.T) {
	svc, store := newService(t)
	item := seed(store, "Granola", "10", "20", 10)
	o, err := store.CreateOrder(context.Background(), db.CreateOrderParams{
		Description: "Granola",
		Qty:         2,
		StockCode:   pgtype.Int8{Int64: item.Code, Valid: true},
	})
	require.NoError(t, err)
	store.RemoveStock(item.Code)

	require.NoError(t, svc.Delete(context.Background(), o.ID))
	require.Zero(t, store.OrderCount())
}

func TestDeleteMissingOrder(t *testing.T) {
	svc, _ := newService(t)
	err := svc.Delete(context.Background(), 77)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, common.CodeNotFound, appErr.Code)
}

func TestListFiltersAndPaginates(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	jan, feb := "1", "02"
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, CreateInput{Description: "Granola", Quantity: 1, Responsible: "Ana", Month: &jan})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, CreateInput{Description: "Leite", Quantity: 1, Responsible: "Bruno", Month: &feb})
	require.NoError(t, err)

	orders, total, err := svc.List(ctx, ListParams{Month: "1", Limit: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, orders, 2)
	require.Greater(t, orders[0].ID, orders[1].ID)

	orders, total, err = svc.List(ctx, ListParams{Query: "bru", Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "Leite", orders[0].Description)
}

func TestLastByResponsible(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateInput{Description: "Granola", Quantity: 1, Responsible: "Ana", Locality: "Centro", UnitPrice: decPtr("9")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Description: "Leite", Quantity: 1, Responsible: "Ana", Locality: "Praia", UnitPrice: decPtr("11")})
	require.NoError(t, err)

	last, err := svc.Last(ctx, "ana")
	require.NoError(t, err)
	require.Equal(t, "Praia", last.Locality)
	require.Equal(t, "11.00", last.UnitPrice.StringFixed(2))

	_, err = svc.Last(ctx, "Zé")
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

func TestWritesInvalidateCache(t *testing.T) {
	svc, _ := newService(t)
	cache := svc.Cache.(*countingCache)
	ctx := context.Background()
	o, err := svc.Create(ctx, CreateInput{Description: "X", Quantity: 1})
	require.NoError(t, err)
	_, err = svc.Edit(ctx, o.ID, EditInput{})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, o.ID))
	require.Equal(t, 3, cache.calls)
}
