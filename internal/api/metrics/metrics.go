// Package metrics defines and registers all custom Prometheus metrics of the
// hotel operations console. It is the single source of truth for metric
// names, labels and help strings.
//
// Metrics are registered with the default Prometheus registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hotel_console"

// ── Record store metrics ──────────────────────────────────────────────────────

// StoreOperationsTotal counts record store calls made on behalf of HTTP requests.
// Labels:
//   - collection: the collection key (e.g. "rooms")
//   - backend: "local" or "remote"
//   - op: "list", "create", "update" or "delete"
//   - result: "ok" or the failure kind (e.g. "transport", "not_found")
var StoreOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_operations_total",
		Help:      "Total number of record store operations, by collection, backend, operation and result.",
	},
	[]string{"collection", "backend", "op", "result"},
)

// StoreOperationDuration measures how long a single record store call takes.
// Labels:
//   - backend: "local" or "remote"
//   - op: "list", "create", "update" or "delete"
var StoreOperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_operation_duration_seconds",
		Help:      "Duration of record store operations.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"backend", "op"},
)

// ── Access metrics ────────────────────────────────────────────────────────────

// PermissionDecisionsTotal counts permission checks made by the HTTP layer.
// Labels:
//   - action: "read", "create", "update" or "delete"
//   - result: "allow" or "deny"
var PermissionDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permission_decisions_total",
		Help:      "Total number of permission decisions, by action and result.",
	},
	[]string{"action", "result"},
)

// GuardRedirectsTotal counts route guard evaluations that asked for a redirect.
var GuardRedirectsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_redirects_total",
		Help:      "Total number of route guard decisions that redirected.",
	},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// ActiveSessions tracks the number of live role resolvers.
var ActiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Current number of sessions with a live role resolver.",
	},
)

// RoleChangesTotal counts role assignments made through the API.
// Label:
//   - role: the role assigned
var RoleChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_changes_total",
		Help:      "Total number of account role assignments, by assigned role.",
	},
	[]string{"role"},
)
