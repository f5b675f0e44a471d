// Package metrics exposes the prometheus collectors the dispatcher and
// transport update as connections come and go, calls land, and workers park.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions is the number of currently connected WebSocket sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shuttle",
		Name:      "active_sessions",
		Help:      "Number of currently open per-connection dispatcher sessions.",
	})

	// ParkedWorkers is the number of workers currently sitting in suspension
	// slabs across all sessions.
	ParkedWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shuttle",
		Name:      "parked_workers",
		Help:      "Number of workers currently parked in a suspension slab.",
	})

	// CallsTotal counts calls by service name and terminal outcome.
	CallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shuttle",
		Name:      "calls_total",
		Help:      "Calls handled, labeled by service name and outcome.",
	}, []string{"service", "outcome"})

	// BytesIn counts payload bytes read from client WebSocket frames.
	BytesIn = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shuttle",
		Name:      "bytes_in_total",
		Help:      "Bytes read from client WebSocket frames.",
	})

	// BytesOut counts payload bytes written to client WebSocket frames.
	BytesOut = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shuttle",
		Name:      "bytes_out_total",
		Help:      "Bytes written to client WebSocket frames.",
	})

	// BreakerTrips counts how many times a service's circuit breaker opened.
	BreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shuttle",
		Name:      "breaker_trips_total",
		Help:      "Circuit breaker open transitions, labeled by service name.",
	}, []string{"service"})
)

// Outcome labels used with CallsTotal.
const (
	OutcomeDone      = "done"
	OutcomeReject    = "reject"
	OutcomeSuspended = "suspended"
	OutcomeFail      = "fail"
)
