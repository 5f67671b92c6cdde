// Package metrics exposes Prometheus counters for the marketplace core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MatchingRunsTotal counts engine runs by trigger side.
	MatchingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "matching",
			Name:      "runs_total",
			Help:      "Total number of matching engine runs by trigger side",
		},
		[]string{"side"},
	)

	// MatchesCreatedTotal counts committed matches by demand kind.
	MatchesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "matching",
			Name:      "matches_created_total",
			Help:      "Total number of matches created by demand kind",
		},
		[]string{"demand_kind"},
	)

	// DisclosureTransitionsTotal counts committed state machine transitions.
	DisclosureTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "disclosure",
			Name:      "transitions_total",
			Help:      "Total number of disclosure and workflow transitions by name",
		},
		[]string{"transition"},
	)

	// RateLimitDecisionsTotal counts limiter decisions.
	RateLimitDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Total number of rate limit decisions by outcome",
		},
		[]string{"decision"},
	)

	// NotificationFailuresTotal counts events that a sink failed to deliver.
	NotificationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Total number of domain events a sink failed to publish",
		},
		[]string{"event"},
	)

	// ExpiredRecordsTotal counts records deactivated by the expiry sweep.
	ExpiredRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "jobs",
			Name:      "expired_records_total",
			Help:      "Total number of records deactivated by the expiry sweep",
		},
		[]string{"record"},
	)
)
