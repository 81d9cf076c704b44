package app

import (
	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/proto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Drop reasons reported on captions_relay_dropped_total.
const (
	DropMalformed    = "malformed"
	DropUnknownType  = "unknown_type"
	DropUnexpected   = "unexpected"
	DropBackpressure = "backpressure"
	DropKicked       = "kicked"
	DropClosed       = "closed"
	DropRateLimited  = "rate_limited"
)

// Metrics owns the relay's Prometheus registry. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	messages *prometheus.CounterVec
	dropped  *prometheus.CounterVec
}

func NewMetrics(rooms core.RoomRegistry, conns *Registry) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "captions_relay_messages_total",
			Help: "Signaling messages accepted by the relay, by type.",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "captions_relay_dropped_total",
			Help: "Signaling frames dropped by the relay, by reason.",
		}, []string{"reason"}),
	}
	m.Registry.MustRegister(
		m.messages,
		m.dropped,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "captions_rooms",
			Help: "Rooms with at least one member.",
		}, func() float64 { return float64(len(rooms.List())) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "captions_peers",
			Help: "Open signaling connections.",
		}, func() float64 { return float64(conns.Count()) }),
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Message(t proto.Type) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}
