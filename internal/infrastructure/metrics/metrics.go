package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the chat collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	connections   prometheus.Gauge
	messages      prometheus.Counter
	broadcasts    *prometheus.CounterVec
	authFailures  *prometheus.CounterVec
	tenantHandles prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chat",
			Name:      "connections",
			Help:      "Authenticated realtime connections currently registered.",
		}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "messages_persisted_total",
			Help:      "Messages committed by the message pipeline.",
		}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "events_emitted_total",
			Help:      "Outbound events handed to connections, by event name.",
		}, []string{"event"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "auth_failures_total",
			Help:      "Rejected handshakes and requests, by reason.",
		}, []string{"reason"}),
		tenantHandles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chat",
			Name:      "tenant_handles",
			Help:      "Open partition pools held by the tenant resolver.",
		}),
	}
	reg.MustRegister(m.connections, m.messages, m.broadcasts, m.authFailures, m.tenantHandles)
	return m
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) MessagePersisted() {
	if m != nil {
		m.messages.Inc()
	}
}

// EventEmitted counts n deliveries of the named event.
func (m *Metrics) EventEmitted(event string, n int) {
	if m != nil && n > 0 {
		m.broadcasts.WithLabelValues(event).Add(float64(n))
	}
}

func (m *Metrics) AuthFailed(reason string) {
	if m != nil {
		m.authFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) TenantHandles(n int) {
	if m != nil {
		m.tenantHandles.Set(float64(n))
	}
}
