package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/maraops/mara-agent/internal/domain"
)

// Metrics exports the agent's view of the marketplace and of its own plan.
type Metrics struct {
	hashPrice   prometheus.Gauge
	tokenPrice  prometheus.Gauge
	energyPrice prometheus.Gauge

	powerUsed prometheus.Gauge
	revenue   prometheus.Gauge
	powerCost prometheus.Gauge

	fetchErrors  *prometheus.CounterVec
	snapshotSecs prometheus.Histogram
}

// NewMetrics builds and registers all collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hashPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mara_hash_price",
			Help: "Latest observed hash price.",
		}),
		tokenPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mara_token_price",
			Help: "Latest observed token price.",
		}),
		energyPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mara_energy_price",
			Help: "Latest observed energy price.",
		}),
		powerUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mara_planned_power_used",
			Help: "Total power draw projected for the cached allocation.",
		}),
		revenue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mara_planned_revenue",
			Help: "Total revenue projected for the cached allocation.",
		}),
		powerCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mara_planned_power_cost",
			Help: "Energy cost projected for the cached allocation.",
		}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mara_fetch_errors_total",
			Help: "Failed MARA API calls by operation.",
		}, []string{"op"}),
		snapshotSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mara_snapshot_duration_seconds",
			Help:    "Wall-clock time of one market snapshot run.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	reg.MustRegister(
		m.hashPrice, m.tokenPrice, m.energyPrice,
		m.powerUsed, m.revenue, m.powerCost,
		m.fetchErrors, m.snapshotSecs,
	)
	return m
}

// ObservePrices records the latest price sample.
func (m *Metrics) ObservePrices(p domain.PriceSample) {
	m.hashPrice.Set(p.HashPrice)
	m.tokenPrice.Set(p.TokenPrice)
	m.energyPrice.Set(p.EnergyPrice)
}

// ObserveEconomics records the projected economics of the cached allocation.
func (m *Metrics) ObserveEconomics(eco domain.SiteEconomics) {
	m.powerUsed.Set(eco.TotalPowerUsed)
	m.revenue.Set(eco.TotalRevenue)
	m.powerCost.Set(eco.TotalPowerCost)
}

// IncFetchError counts one failed API call for op.
func (m *Metrics) IncFetchError(op string) {
	m.fetchErrors.WithLabelValues(op).Inc()
}

// ObserveSnapshotDuration records the duration of one snapshot run.
func (m *Metrics) ObserveSnapshotDuration(seconds float64) {
	m.snapshotSecs.Observe(seconds)
}
