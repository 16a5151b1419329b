package stock

import (
	"context"
	"net/http"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vinicius77777/acai-do-max/internal/common"
	"github.com/vinicius77777/acai-do-max/internal/db"
	"github.com/vinicius77777/acai-do-max/internal/db/dbtest"
	"github.com/vinicius77777/acai-do-max/internal/lock"
)

type countingCache struct{ calls int }

func (c *countingCache) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

func newService(t *testing.T, policy Policy) (*Service, *dbtest.MemStore, *countingCache) {
	t.Helper()
	store := dbtest.NewMemStore()
	cache := &countingCache{}
	return &Service{
		Store:  store,
		Policy: policy,
		Cache:  cache,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC) },
	}, store, cache
}

func TestEntryCreatesItem(t *testing.T) {
	svc, _, cache := newService(t, PolicyAccumulate)

	item, created, err := svc.Entry(context.Background(), EntryInput{
		Description:      "  Açaí 500ml ",
		EnteredQty:       10,
		EnteredTotalCost: dec("80"),
		SalePrice:        decPtr("14.9"),
		Supplier:         strPtr("Frutos do Norte"),
	})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "Açaí 500ml", item.Description)
	require.Equal(t, int64(10), item.OnHandQty)
	require.True(t, item.UnitCost.Equal(dec("8")))
	require.True(t, item.SalePrice.Valid)
	require.Equal(t, "03", item.EntryMonth.String)
	require.Equal(t, int32(7), item.EntryDay.Int32)
	require.Equal(t, 1, cache.calls)
}

func TestEntryZeroQuantityHasZeroUnitCost(t *testing.T) {
	svc, _, _ := newService(t, PolicyAccumulate)
	item, _, err := svc.Entry(context.Background(), EntryInput{Description: "Colher", EnteredTotalCost: dec("12")})
	require.NoError(t, err)
	require.True(t, item.UnitCost.IsZero())
}

func TestEntryAccumulates(t *testing.T) {
	svc, _, _ := newService(t, PolicyAccumulate)
	ctx := context.Background()

	first, _, err := svc.Entry(ctx, EntryInput{Description: "Granola", EnteredQty: 10, EnteredTotalCost: dec("100"), Supplier: strPtr("A")})
	require.NoError(t, err)
	// simulate sales before the second delivery
	_, err = svc.Store.AdjustStockOnHand(ctx, db.AdjustStockOnHandParams{Code: first.Code, Delta: -4})
	require.NoError(t, err)

	item, created, err := svc.Entry(ctx, EntryInput{Description: "Granola", EnteredQty: 10, EnteredTotalCost: dec("140")})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.Code, item.Code)
	require.Equal(t, int64(20), item.EnteredQty)
	require.True(t, item.EnteredTotalCost.Equal(dec("240")))
	require.True(t, item.UnitCost.Equal(dec("12")))
	require.Equal(t, int64(16), item.OnHandQty)
	require.Equal(t, "A", item.Supplier.String, "supplier kept when omitted")
}

func TestEntryResetPolicy(t *testing.T) {
	svc, _, _ := newService(t, PolicyReset)
	ctx := context.Background()

	_, _, err := svc.Entry(ctx, EntryInput{Description: "Granola", EnteredQty: 10, EnteredTotalCost: dec("100")})
	require.NoError(t, err)
	item, _, err := svc.Entry(ctx, EntryInput{Description: "Granola", EnteredQty: 5, EnteredTotalCost: dec("75"), Supplier: strPtr("B")})
	require.NoError(t, err)
	require.Equal(t, int64(5), item.EnteredQty)
	require.True(t, item.UnitCost.Equal(dec("15")))
	require.Equal(t, int64(15), item.OnHandQty)
	require.Equal(t, "B", item.Supplier.String)
}

func TestEntryRetriesAfterUniqueViolation(t *testing.T) {
	svc, store, _ := newService(t, PolicyAccumulate)
	ctx := context.Background()
	svc.Store = &racingStore{MemStore: store, competitor: db.StockItem{
		Description:      "Granola",
		EnteredQty:       2,
		EnteredTotalCost: dec("20"),
		UnitCost:         dec("10"),
		OnHandQty:        2,
	}}

	item, created, err := svc.Entry(ctx, EntryInput{Description: "Granola", EnteredQty: 3, EnteredTotalCost: dec("30")})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, int64(5), item.OnHandQty)
	require.Equal(t, int64(5), item.EnteredQty)
	require.True(t, item.UnitCost.Equal(dec("10")))
}

func TestEntryUsesLock(t *testing.T) {
	svc, _, _ := newService(t, PolicyAccumulate)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc.Locker = lock.Locker{R: client, RetryBackoff: time.Millisecond, MaxWait: 20 * time.Millisecond}
	svc.LockTTL = time.Second

	_, created, err := svc.Entry(context.Background(), EntryInput{Description: "Granola", EnteredQty: 1})
	require.NoError(t, err)
	require.True(t, created)
	require.False(t, mr.Exists(lock.StockEntryKey("Granola")))
}

func TestEntryProceedsWhenLockTimesOut(t *testing.T) {
	svc, _, _ := newService(t, PolicyAccumulate)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc.Locker = lock.Locker{R: client, RetryBackoff: time.Millisecond, MaxWait: 20 * time.Millisecond}

	require.NoError(t, mr.Set(lock.StockEntryKey("Granola"), "held"))
	item, created, err := svc.Entry(context.Background(), EntryInput{Description: "Granola", EnteredQty: 1})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, int64(1), item.OnHandQty)

	held, err := mr.Get(lock.StockEntryKey("Granola"))
	require.NoError(t, err)
	require.Equal(t, "held", held, "foreign lock is left alone")
}

func TestEntryWithoutRedisFallsBackToDatabase(t *testing.T) {
	svc, store, _ := newService(t, PolicyAccumulate)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()
	svc.Locker = lock.Locker{R: client, RetryBackoff: time.Millisecond}

	item, created, err := svc.Entry(context.Background(), EntryInput{
		Description:      "Granola",
		EnteredQty:       5,
		EnteredTotalCost: dec("50"),
	})
	require.NoError(t, err)
	require.True(t, created)
	require.True(t, item.UnitCost.Equal(dec("10")))

	stored, ok := store.Stock(item.Code)
	require.True(t, ok)
	require.Equal(t, int64(5), stored.OnHandQty)
}

func TestEntryValidation(t *testing.T) {
	svc, _, _ := newService(t, PolicyAccumulate)
	cases := []EntryInput{
		{Description: "   "},
		{Description: "Granola", EnteredQty: -1},
		{Description: "Granola", EnteredTotalCost: dec("-1")},
		{Description: "Granola", DueDate: strPtr("31/01/2025")},
		{Description: "Granola", EntryMonth: strPtr("13")},
	}
	for _, in := range cases {
		_, _, err := svc.Entry(context.Background(), in)
		appErr, ok := common.AsAppError(err)
		require.True(t, ok, "%+v", in)
		require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	}
}

func TestUpdateShiftsOnHandByEnteredDelta(t *testing.T) {
	svc, store, _ := newService(t, PolicyAccumulate)
	item := store.PutStock(db.StockItem{
		Description:      "Granola",
		EnteredQty:       10,
		EnteredTotalCost: dec("100"),
		UnitCost:         dec("10"),
		OnHandQty:        7,
		Supplier:         pgtype.Text{String: "A", Valid: true},
	})

	qty := int64(12)
	updated, err := svc.Update(context.Background(), item.Code, UpdateInput{
		EnteredQty:       &qty,
		EnteredTotalCost: decPtr("144"),
		Invoice:          strPtr("NF-123"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(9), updated.OnHandQty)
	require.True(t, updated.UnitCost.Equal(dec("12")))
	require.Equal(t, "NF-123", updated.Invoice.String)
	require.Equal(t, "A", updated.Supplier.String)
}

func TestUpdateDuplicateDescriptionConflicts(t *testing.T) {
	svc, store, _ := newService(t, PolicyAccumulate)
	store.PutStock(db.StockItem{Description: "Granola"})
	other := store.PutStock(db.StockItem{Description: "Leite Ninho"})

	_, err := svc.Update(context.Background(), other.Code, UpdateInput{Description: strPtr("Granola")})
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)
}

func TestUpdateMissingItem(t *testing.T) {
	svc, _, _ := newService(t, PolicyAccumulate)
	_, err := svc.Update(context.Background(), 99, UpdateInput{})
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

func TestDeleteReferencedItemConflicts(t *testing.T) {
	svc, store, _ := newService(t, PolicyAccumulate)
	item := store.PutStock(db.StockItem{Description: "Granola"})
	_, err := store.CreateOrder(context.Background(), db.CreateOrderParams{
		Description: "Granola",
		Qty:         1,
		StockCode:   pgtype.Int8{Int64: item.Code, Valid: true},
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), item.Code)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, common.CodeConflict, appErr.Code)
	_, exists := store.Stock(item.Code)
	require.True(t, exists)
}

func TestDeleteMissingItem(t *testing.T) {
	svc, _, _ := newService(t, PolicyAccumulate)
	err := svc.Delete(context.Background(), 42)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy(" RESET ")
	require.NoError(t, err)
	require.Equal(t, PolicyReset, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	require.Equal(t, PolicyAccumulate, p)

	_, err = ParsePolicy("merge")
	require.Error(t, err)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// racingStore makes the first insert lose against a competing writer whose
// row becomes visible once the losing transaction has rolled back.
type racingStore struct {
	*dbtest.MemStore
	competitor db.StockItem
	raced      bool
}

func (r *racingStore) ExecTx(ctx context.Context, fn func(db.Querier) error) error {
	err := r.MemStore.ExecTx(ctx, func(q db.Querier) error {
		return fn(racingQuerier{Querier: q, store: r})
	})
	if db.IsUniqueViolation(err) {
		r.MemStore.PutStock(r.competitor)
	}
	return err
}

type racingQuerier struct {
	db.Querier
	store *racingStore
}

func (r racingQuerier) CreateStockItem(ctx context.Context, arg db.CreateStockItemParams) (db.StockItem, error) {
	if !r.store.raced {
		r.store.raced = true
		return db.StockItem{}, &pgconn.PgError{Code: db.UniqueViolation}
	}
	return r.Querier.CreateStockItem(ctx, arg)
}
