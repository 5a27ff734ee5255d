package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConsoleMetrics exposes counters and gauges for the relay console flows.
// All observer methods are nil-safe so callers can run without metrics.
type ConsoleMetrics struct {
	ingestTotal    *prometheus.CounterVec
	relayTotal     *prometheus.CounterVec
	broadcastTotal *prometheus.CounterVec
	viewers        prometheus.Gauge
}

func New(reg prometheus.Registerer) *ConsoleMetrics {
	m := &ConsoleMetrics{
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaydesk",
			Subsystem: "console",
			Name:      "ingest_total",
			Help:      "Messages accepted into the conversation store",
		}, []string{"direction"}),
		relayTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaydesk",
			Subsystem: "console",
			Name:      "relay_total",
			Help:      "Outbound relay attempts by kind and outcome",
		}, []string{"kind", "outcome"}),
		broadcastTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaydesk",
			Subsystem: "console",
			Name:      "broadcast_total",
			Help:      "Events fanned out to live viewers",
		}, []string{"event"}),
		viewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "relaydesk",
			Subsystem: "console",
			Name:      "viewers",
			Help:      "Currently attached live viewers",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.ingestTotal, m.relayTotal, m.broadcastTotal, m.viewers)
	return m
}

func (m *ConsoleMetrics) ObserveIngest(direction string) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(direction).Inc()
}

func (m *ConsoleMetrics) ObserveRelay(kind string, ok bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if ok {
		outcome = "ok"
	}
	m.relayTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *ConsoleMetrics) ObserveBroadcast(event string) {
	if m == nil {
		return
	}
	m.broadcastTotal.WithLabelValues(event).Inc()
}

func (m *ConsoleMetrics) ViewerAttached() {
	if m == nil {
		return
	}
	m.viewers.Inc()
}

func (m *ConsoleMetrics) ViewerDetached() {
	if m == nil {
		return
	}
	m.viewers.Dec()
}
