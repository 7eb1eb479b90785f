// Package metrics exposes the server's Prometheus instrumentation: room
// counts, tick/action throughput, and matchmaking latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the server's gauges, counters and histogram. The
// coordinator and transport layer do not update them, so they stay at zero
// unless a caller sets them. A Metrics is safe for concurrent use since every
// underlying prometheus type already is.
type Metrics struct {
	ActiveGames     prometheus.Gauge
	WaitingGames    prometheus.Gauge
	FreeRoomSlots   prometheus.Gauge
	TicksTotal      prometheus.Counter
	ActionsTotal    prometheus.Counter
	MatchmakingWait prometheus.Histogram

	registry *prometheus.Registry
}

// New builds a Metrics with a private registry, so importing this package
// never pollutes prometheus's global default registry.
func New() *Metrics {
	m := &Metrics{
		ActiveGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gamecore_active_games",
			Help: "Number of rooms currently ticking.",
		}),
		WaitingGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gamecore_waiting_games",
			Help: "Number of rooms waiting for enough players to activate.",
		}),
		FreeRoomSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gamecore_free_room_slots",
			Help: "Number of unused room IDs left in the pool.",
		}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gamecore_ticks_total",
			Help: "Total ticks processed across every room.",
		}),
		ActionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gamecore_actions_total",
			Help: "Total player actions enqueued.",
		}),
		MatchmakingWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gamecore_matchmaking_wait_seconds",
			Help:    "Time a room spent waiting before it activated.",
			Buckets: prometheus.DefBuckets,
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.ActiveGames,
		m.WaitingGames,
		m.FreeRoomSlots,
		m.TicksTotal,
		m.ActionsTotal,
		m.MatchmakingWait,
	)
	return m
}

// Handler serves this Metrics's registry in the Prometheus text exposition
// format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
