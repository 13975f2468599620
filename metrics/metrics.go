package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsFunc reports live rooms, room members and connected clients.
type StatsFunc func() (rooms, members, clients int)

// Metrics records routed events and exposes room gauges.
type Metrics struct {
	registry *prometheus.Registry
	handled  *prometheus.CounterVec
	dropped  *prometheus.CounterVec
}

func New(stats StatsFunc) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cowatch",
			Name:      "events_handled_total",
			Help:      "Inbound events applied, by event.",
		}, []string{"event"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cowatch",
			Name:      "events_dropped_total",
			Help:      "Inbound events dropped, by event and reason.",
		}, []string{"event", "reason"}),
	}

	reg.MustRegister(
		m.handled,
		m.dropped,
		gauge("rooms", "Rooms with at least one member.", func() float64 {
			rooms, _, _ := stats()
			return float64(rooms)
		}),
		gauge("room_members", "Connections that joined a room.", func() float64 {
			_, members, _ := stats()
			return float64(members)
		}),
		gauge("clients", "Open WebSocket connections.", func() float64 {
			_, _, clients := stats()
			return float64(clients)
		}),
		collectors.NewGoCollector(),
	)
	return m
}

func gauge(name, help string, fn func() float64) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "cowatch",
		Name:      name,
		Help:      help,
	}, fn)
}

func (m *Metrics) EventHandled(event string) {
	m.handled.WithLabelValues(event).Inc()
}

func (m *Metrics) EventDropped(event, reason string) {
	m.dropped.WithLabelValues(event, reason).Inc()
}

// Handler exposes the metrics at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
