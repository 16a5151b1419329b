package report

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vinicius77777/acai-do-max/internal/db"
	"github.com/vinicius77777/acai-do-max/internal/obs"
)

// Querier defines the database access required for reports.
type Querier interface {
	ListAllOrders(ctx context.Context) ([]db.Order, error)
	ListStockItems(ctx context.Context) ([]db.StockItem, error)
}

// Service builds profit reports and export data.
type Service struct {
	Q        Querier
	Cache    *Cache
	Location *time.Location
	Logger   zerolog.Logger
}

// Point is one bucket of the profit series.
type Point struct {
	Label  string          `json:"label"`
	Profit decimal.Decimal `json:"profit"`
}

// Group is the profit of one responsible at one locality.
type Group struct {
	Responsible string          `json:"responsible"`
	Locality    string          `json:"locality"`
	Profit      decimal.Decimal `json:"profit"`
}

// Profit is the profit report for a filter.
type Profit struct {
	Filter   Filter          `json:"filter"`
	Orders   []db.Order      `json:"orders"`
	Count    int             `json:"count"`
	Quantity int64           `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
	Profit   decimal.Decimal `json:"profit"`
	Series   []Point         `json:"series"`
	Groups   []Group         `json:"groups"`
}

// Profit returns the report for f, served from cache when possible.
func (s *Service) Profit(ctx context.Context, f Filter) (Profit, error) {
	if s == nil || s.Q == nil {
		return Profit{}, fmt.Errorf("report service not configured")
	}
	key, err := s.Cache.Key(ctx, "profit", f.cacheKey())
	if err != nil {
		s.Logger.Warn().Err(err).Msg("report cache key failed")
	}
	if key != "" {
		var cached Profit
		hit, err := s.Cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.Logger.Warn().Err(err).Msg("report cache read failed")
		}
		obs.RecordReportCache(hit)
		if hit {
			return cached, nil
		}
	}

	orders, err := s.Q.ListAllOrders(ctx)
	if err != nil {
		return Profit{}, err
	}
	rep := s.build(f, orders)
	if key != "" {
		if err := s.Cache.SetJSON(ctx, key, rep); err != nil {
			s.Logger.Warn().Err(err).Msg("report cache write failed")
		}
	}
	return rep, nil
}

// Orders returns every order passing f, oldest first.
func (s *Service) Orders(ctx context.Context, f Filter) ([]db.Order, error) {
	orders, err := s.Q.ListAllOrders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]db.Order, 0, len(orders))
	for _, o := range orders {
		if f.Match(o, s.saleYear(o)) {
			out = append(out, o)
		}
	}
	return out, nil
}

// Stock returns every stock item for export.
func (s *Service) Stock(ctx context.Context) ([]db.StockItem, error) {
	return s.Q.ListStockItems(ctx)
}

func (s *Service) build(f Filter, orders []db.Order) Profit {
	rep := Profit{
		Filter: f,
		Orders: []db.Order{},
		Series: []Point{},
		Groups: []Group{},
	}
	type bucket struct {
		sort  string
		label string
	}
	series := map[bucket]decimal.Decimal{}
	groups := map[[2]string]decimal.Decimal{}

	for _, o := range orders {
		year := s.saleYear(o)
		if !f.Match(o, year) {
			continue
		}
		rep.Orders = append(rep.Orders, o)
		rep.Quantity += o.Qty
		rep.Revenue = rep.Revenue.Add(o.TotalPrice)
		rep.Profit = rep.Profit.Add(o.TotalProfit)

		b := seriesBucket(f.Mode, o, year)
		series[bucket{sort: b[0], label: b[1]}] = series[bucket{sort: b[0], label: b[1]}].Add(o.TotalProfit)

		g := [2]string{valueOr(o.Responsible, "Sem responsável"), valueOr(o.Locality, "Sem loja")}
		groups[g] = groups[g].Add(o.TotalProfit)
	}
	rep.Count = len(rep.Orders)

	keys := make([]bucket, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].sort < keys[j].sort })
	for _, k := range keys {
		rep.Series = append(rep.Series, Point{Label: k.label, Profit: series[k]})
	}

	for g, profit := range groups {
		rep.Groups = append(rep.Groups, Group{Responsible: g[0], Locality: g[1], Profit: profit})
	}
	sort.Slice(rep.Groups, func(i, j int) bool {
		if rep.Groups[i].Responsible != rep.Groups[j].Responsible {
			return rep.Groups[i].Responsible < rep.Groups[j].Responsible
		}
		return rep.Groups[i].Locality < rep.Groups[j].Locality
	})
	return rep
}

// seriesBucket returns the sort key and label of o for mode.
func seriesBucket(mode Mode, o db.Order, year int) [2]string {
	month := atoi(o.Month)
	switch mode {
	case ModeDay:
		return [2]string{
			fmt.Sprintf("%02d-%02d", month, o.Day),
			fmt.Sprintf("%02d/%02d", o.Day, month),
		}
	case ModeYear:
		y := strconv.Itoa(year)
		return [2]string{y, y}
	default:
		m := fmt.Sprintf("%02d", month)
		return [2]string{m, m}
	}
}

// saleYear is the calendar year the order was recorded in.
func (s *Service) saleYear(o db.Order) int {
	t := o.CreatedAt.Time
	if !o.CreatedAt.Valid {
		t = time.Now()
	}
	if s.Location != nil {
		t = t.In(s.Location)
	}
	return t.Year()
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
