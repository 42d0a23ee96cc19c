package metrics

import "github.com/prometheus/client_golang/prometheus"

// PortalMetrics exposes counters/histograms for the portal flows.
type PortalMetrics struct {
	loginsTotal     *prometheus.CounterVec
	upstreamTotal   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	bookingsTotal   *prometheus.CounterVec
	staleSlotDrops  prometheus.Counter
}

func NewPortalMetrics(reg prometheus.Registerer) *PortalMetrics {
	m := &PortalMetrics{
		loginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthsphere",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Total login attempts",
		}, []string{"role", "outcome"}),
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthsphere",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total calls to the healthcare backend",
		}, []string{"operation", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "healthsphere",
			Subsystem: "upstream",
			Name:      "request_latency_seconds",
			Help:      "Latency of healthcare backend calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthsphere",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Total booking submissions",
		}, []string{"outcome"}),
		staleSlotDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "healthsphere",
			Subsystem: "booking",
			Name:      "stale_slot_responses_total",
			Help:      "Slot responses discarded because their selection was superseded",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.loginsTotal, m.upstreamTotal, m.upstreamLatency, m.bookingsTotal, m.staleSlotDrops)
	return m
}

func (m *PortalMetrics) ObserveLogin(role, outcome string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(role, outcome).Inc()
}

func (m *PortalMetrics) ObserveUpstream(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamTotal.WithLabelValues(operation, outcome).Inc()
	m.upstreamLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *PortalMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *PortalMetrics) ObserveStaleSlotDrop() {
	if m == nil {
		return
	}
	m.staleSlotDrops.Inc()
}
