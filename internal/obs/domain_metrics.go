package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SalesFinalizedTotal counts checkout finalizations by payment method and result.
	SalesFinalizedTotal *prometheus.CounterVec
	// SaleValue records grand totals of finalized sales in minor currency units.
	SaleValue *prometheus.HistogramVec
	// StockConflictTotal counts stock decrements rejected by the conditional write.
	StockConflictTotal prometheus.Counter
	// ReceivablesSettledTotal counts credit sales marked paid.
	ReceivablesSettledTotal prometheus.Counter
	// PurchasesReceivedTotal counts purchase orders transitioned to received.
	PurchasesReceivedTotal prometheus.Counter
	// CatalogSnapshotReloads counts snapshot hub reloads by trigger.
	CatalogSnapshotReloads *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SalesFinalizedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_finalized_total",
			Help:      "Count of checkout finalizations by payment method and result.",
		}, []string{"payment_method", "result"})
		SaleValue = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_value_minor_units",
			Help:      "Grand total of finalized sales in minor currency units.",
			Buckets:   []float64{10_000, 50_000, 100_000, 250_000, 500_000, 1_000_000, 5_000_000},
		}, []string{"payment_method"})
		StockConflictTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_conflicts_total",
			Help:      "Stock decrements rejected because remaining stock was insufficient.",
		})
		ReceivablesSettledTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receivables_settled_total",
			Help:      "Credit sales transitioned from unpaid to paid.",
		})
		PurchasesReceivedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_received_total",
			Help:      "Purchase orders transitioned to received.",
		})
		CatalogSnapshotReloads = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_snapshot_reloads_total",
			Help:      "Catalog snapshot reloads by trigger.",
		}, []string{"trigger"})

		mustRegisterCollector(reg, SalesFinalizedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SalesFinalizedTotal = v
			}
		})
		mustRegisterCollector(reg, SaleValue, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				SaleValue = v
			}
		})
		mustRegisterCollector(reg, StockConflictTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				StockConflictTotal = v
			}
		})
		mustRegisterCollector(reg, ReceivablesSettledTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ReceivablesSettledTotal = v
			}
		})
		mustRegisterCollector(reg, PurchasesReceivedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PurchasesReceivedTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogSnapshotReloads, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogSnapshotReloads = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
