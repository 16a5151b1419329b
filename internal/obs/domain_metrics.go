package obs

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersCreatedTotal counts persisted orders by whether a discount applied.
	OrdersCreatedTotal *prometheus.CounterVec
	// OrdersDeletedTotal counts reversed orders by whether stock was restored.
	OrdersDeletedTotal *prometheus.CounterVec
	// StockEntriesTotal counts stock entries by outcome (created, reentered).
	StockEntriesTotal *prometheus.CounterVec
	// OrderRevenueTotal accumulates the total price of created orders.
	OrderRevenueTotal prometheus.Counter
	// OrderProfitTotal tracks the running profit of created minus deleted orders.
	OrderProfitTotal prometheus.Gauge
	// ReportCacheTotal counts profit report cache lookups by result.
	ReportCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Count of created orders by discount flag.",
		}, []string{"discount"})
		OrdersDeletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_deleted_total",
			Help:      "Count of deleted orders by stock restoration outcome.",
		}, []string{"stock_restored"})
		StockEntriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_entries_total",
			Help:      "Count of stock entries by result.",
		}, []string{"result"})
		OrderRevenueTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_revenue_total",
			Help:      "Sum of total price over created orders.",
		})
		OrderProfitTotal = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "order_profit_total",
			Help:      "Running total profit of created orders net of deletions.",
		})
		ReportCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_total",
			Help:      "Profit report cache lookups by result.",
		}, []string{"result"})

		mustRegisterCollector(reg, OrdersCreatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersCreatedTotal = v
			}
		})
		mustRegisterCollector(reg, OrdersDeletedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersDeletedTotal = v
			}
		})
		mustRegisterCollector(reg, StockEntriesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				StockEntriesTotal = v
			}
		})
		mustRegisterCollector(reg, OrderRevenueTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				OrderRevenueTotal = v
			}
		})
		mustRegisterCollector(reg, OrderProfitTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				OrderProfitTotal = v
			}
		})
		mustRegisterCollector(reg, ReportCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReportCacheTotal = v
			}
		})
	})
}

// RecordOrderCreated is a no-op until MustRegisterDomainMetrics has run.
func RecordOrderCreated(discount bool, revenue, profit float64) {
	if OrdersCreatedTotal == nil {
		return
	}
	OrdersCreatedTotal.WithLabelValues(strconv.FormatBool(discount)).Inc()
	if revenue > 0 {
		OrderRevenueTotal.Add(revenue)
	}
	OrderProfitTotal.Add(profit)
}

// RecordOrderDeleted is a no-op until MustRegisterDomainMetrics has run.
func RecordOrderDeleted(stockRestored bool, profit float64) {
	if OrdersDeletedTotal == nil {
		return
	}
	OrdersDeletedTotal.WithLabelValues(strconv.FormatBool(stockRestored)).Inc()
	OrderProfitTotal.Sub(profit)
}

// RecordStockEntry is a no-op until MustRegisterDomainMetrics has run.
func RecordStockEntry(result string) {
	if StockEntriesTotal == nil {
		return
	}
	StockEntriesTotal.WithLabelValues(result).Inc()
}

// RecordReportCache is a no-op until MustRegisterDomainMetrics has run.
func RecordReportCache(hit bool) {
	if ReportCacheTotal == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	ReportCacheTotal.WithLabelValues(result).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
