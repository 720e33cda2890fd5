// Package metrics provides the centralized Prometheus metrics registry for the trading service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	DutchCalculationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dutch_trader",
		Name:      "dutch_calculations_total",
		Help:      "Total number of dutching calculations by mode",
	}, []string{"mode"})
	ValidationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dutch_trader",
		Name:      "validation_failures_total",
		Help:      "Total number of dutches rejected by business-rule validation",
	})
	LegsPlacedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dutch_trader",
		Name:      "legs_placed_total",
		Help:      "Total number of dutch legs placed on the exchange",
	})
	CashoutsExecutedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dutch_trader",
		Name:      "cashouts_executed_total",
		Help:      "Total number of cashouts executed",
	})
	StreamTicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dutch_trader",
		Name:      "stream_ticks_total",
		Help:      "Total number of price ticks received from the stream",
	})
	SlippageReadjustmentsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dutch_trader",
		Name:      "slippage_readjustments_total",
		Help:      "Total number of partial-fill re-adjustments computed",
	})
)

// Gauge metrics
var (
	OpenExposure = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dutch_trader",
		Name:      "open_exposure",
		Help:      "Stake currently at risk across open dutches",
	})
	LockedProfit = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dutch_trader",
		Name:      "locked_profit",
		Help:      "Profit currently lockable by cashing out every open position",
	})
	DailyPnL = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dutch_trader",
		Name:      "daily_pnl",
		Help:      "Daily profit and loss",
	})
	TrackedSelections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dutch_trader",
		Name:      "tracked_selections",
		Help:      "Number of selections with a live price snapshot",
	})
)

// Histogram metrics
var (
	CashoutRefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dutch_trader",
		Name:      "cashout_refresh_duration_seconds",
		Help:      "Duration of one multi-order cashout recomputation",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
	})
	LegPlacementLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dutch_trader",
		Name:      "leg_placement_latency_seconds",
		Help:      "Latency of placing one dutch leg on the exchange",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(DutchCalculationsTotal)
		registry.MustRegister(ValidationFailuresTotal)
		registry.MustRegister(LegsPlacedTotal)
		registry.MustRegister(CashoutsExecutedTotal)
		registry.MustRegister(StreamTicksTotal)
		registry.MustRegister(SlippageReadjustmentsTotal)

		registry.MustRegister(OpenExposure)
		registry.MustRegister(LockedProfit)
		registry.MustRegister(DailyPnL)
		registry.MustRegister(TrackedSelections)

		registry.MustRegister(CashoutRefreshDuration)
		registry.MustRegister(LegPlacementLatency)

		registry.MustRegister(APIRequestsTotal)
		registry.MustRegister(APIRequestDuration)
		registry.MustRegister(APIErrorsTotal)
		registry.MustRegister(StreamReconnectsTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordDutchCalculation records a dutching calculation by mode.
func RecordDutchCalculation(mode string) {
	DutchCalculationsTotal.WithLabelValues(mode).Inc()
}

// RecordValidationFailure records a business-rule rejection.
func RecordValidationFailure() {
	ValidationFailuresTotal.Inc()
}

// RecordLegPlaced records the placement of one dutch leg.
func RecordLegPlaced(latencySeconds float64) {
	LegsPlacedTotal.Inc()
	LegPlacementLatency.Observe(latencySeconds)
}

// RecordCashout records a cashout execution.
func RecordCashout() {
	CashoutsExecutedTotal.Inc()
}

// RecordCashoutRefresh records one live cashout recomputation.
func RecordCashoutRefresh(durationSeconds float64) {
	CashoutRefreshDuration.Observe(durationSeconds)
}

// RecordStreamTick records a price tick received from the stream.
func RecordStreamTick() {
	StreamTicksTotal.Inc()
}

// UpdateOpenExposure updates the open exposure gauge.
func UpdateOpenExposure(amount float64) {
	OpenExposure.Set(amount)
}

// UpdateLockedProfit updates the lockable profit gauge.
func UpdateLockedProfit(amount float64) {
	LockedProfit.Set(amount)
}

// UpdateDailyPnL updates the daily P&L gauge.
func UpdateDailyPnL(pnl float64) {
	DailyPnL.Set(pnl)
}

// UpdateTrackedSelections updates the tracked selections gauge.
func UpdateTrackedSelections(count float64) {
	TrackedSelections.Set(count)
}
