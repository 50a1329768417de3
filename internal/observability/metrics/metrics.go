package metrics

import "github.com/prometheus/client_golang/prometheus"

// RouterMetrics exposes counters/histograms for inbound message routing.
type RouterMetrics struct {
	inboundTotal    *prometheus.CounterVec
	duplicateTotal  prometheus.Counter
	transmitTotal   *prometheus.CounterVec
	routeLatency    *prometheus.HistogramVec
	abandonedSweeps prometheus.Counter
}

func NewRouterMetrics(reg prometheus.Registerer) *RouterMetrics {
	m := &RouterMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "router",
			Name:      "inbound_total",
			Help:      "Inbound messages by resolved route",
		}, []string{"route", "status"}),
		duplicateTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "router",
			Name:      "duplicate_total",
			Help:      "Inbound messages short-circuited by the dedup gate",
		}),
		transmitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "router",
			Name:      "transmit_total",
			Help:      "Outbound transmissions by result",
		}, []string{"status"}),
		routeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookline",
			Subsystem: "router",
			Name:      "route_latency_seconds",
			Help:      "Latency of full inbound message handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		abandonedSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookline",
			Subsystem: "flow",
			Name:      "abandoned_sessions_total",
			Help:      "Flow sessions marked abandoned by the sweep",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.duplicateTotal, m.transmitTotal, m.routeLatency, m.abandonedSweeps)
	return m
}

func (m *RouterMetrics) ObserveInbound(route, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(route, status).Inc()
}

func (m *RouterMetrics) ObserveDuplicate() {
	if m == nil {
		return
	}
	m.duplicateTotal.Inc()
}

func (m *RouterMetrics) ObserveTransmit(status string) {
	if m == nil {
		return
	}
	m.transmitTotal.WithLabelValues(status).Inc()
}

func (m *RouterMetrics) ObserveRouteLatency(route string, seconds float64) {
	if m == nil {
		return
	}
	m.routeLatency.WithLabelValues(route).Observe(seconds)
}

func (m *RouterMetrics) ObserveAbandoned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.abandonedSweeps.Add(float64(n))
}
