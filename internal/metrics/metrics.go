// Package metrics holds the game counters exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Taps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tapper_taps_total",
		Help: "Taps applied across all players",
	})
	PacksOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tapper_packs_opened_total",
			Help: "Card packs opened",
		},
		[]string{"pack"},
	)
	CardsDrawn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tapper_cards_drawn_total",
			Help: "Cards drawn by rarity",
		},
		[]string{"rarity"},
	)
	SaveWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tapper_save_writes_total",
			Help: "Local save writes by kind",
		},
		[]string{"kind"},
	)
	RemoteMirrorFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tapper_remote_mirror_failures_total",
		Help: "Remote snapshot upserts that failed",
	})
	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tapper_events_dropped_total",
			Help: "Bus events dropped because a subscriber was full",
		},
		[]string{"type"},
	)
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tapper_active_sessions",
		Help: "Player sessions held in memory",
	})
	WSClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tapper_ws_clients",
		Help: "Connected websocket clients",
	})

	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(Taps)
	prometheus.MustRegister(PacksOpened)
	prometheus.MustRegister(CardsDrawn)
	prometheus.MustRegister(SaveWrites)
	prometheus.MustRegister(RemoteMirrorFailures)
	prometheus.MustRegister(EventsDropped)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(WSClients)
	prometheus.MustRegister(RLRequests)
	prometheus.MustRegister(RLBlocked)
}
