package observability

import (
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationMetrics records settlement operation activity for the /metrics
// endpoint.
type OperationMetrics struct {
	total   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// SettlementMetrics tracks the monetary throughput of completed settlements.
type SettlementMetrics struct {
	sales  *prometheus.CounterVec
	volume *prometheus.CounterVec
}

var (
	operationsOnce sync.Once
	operationsReg  *OperationMetrics

	settlementOnce sync.Once
	settlementReg  *SettlementMetrics
)

// Operations returns the lazily-initialised operation metrics registry.
func Operations() *OperationMetrics {
	operationsOnce.Do(func() {
		operationsReg = &OperationMetrics{
			total: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "assetmarket",
				Subsystem: "ops",
				Name:      "total",
				Help:      "Total operations segmented by module, operation, and outcome.",
			}, []string{"module", "op", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "assetmarket",
				Subsystem: "ops",
				Name:      "duration_seconds",
				Help:      "Latency distribution for settlement operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "op"}),
		}
		prometheus.MustRegister(operationsReg.total, operationsReg.latency)
	})
	return operationsReg
}

// Observe records one operation outcome with its duration.
func (m *OperationMetrics) Observe(module, op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.total.WithLabelValues(module, op, outcome).Inc()
	m.latency.WithLabelValues(module, op).Observe(elapsed.Seconds())
}

// Settlements returns the lazily-initialised settlement metrics registry.
func Settlements() *SettlementMetrics {
	settlementOnce.Do(func() {
		settlementReg = &SettlementMetrics{
			sales: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "assetmarket",
				Subsystem: "settlement",
				Name:      "sales_total",
				Help:      "Completed sales segmented by module.",
			}, []string{"module"}),
			volume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "assetmarket",
				Subsystem: "settlement",
				Name:      "volume_wei_total",
				Help:      "Settled volume in base units segmented by module.",
			}, []string{"module"}),
		}
		prometheus.MustRegister(settlementReg.sales, settlementReg.volume)
	})
	return settlementReg
}

// RecordSale bumps the sale counter and settled volume for a module.
func (m *SettlementMetrics) RecordSale(module string, amount *big.Int) {
	if m == nil {
		return
	}
	m.sales.WithLabelValues(module).Inc()
	if amount == nil {
		return
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	if value > 0 {
		m.volume.WithLabelValues(module).Add(value)
	}
}
