// Package metrics defines and registers all custom Prometheus metrics for the
// user API. It is the single source of truth for metric names, labels, and
// help strings. Metrics register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "usermgmt"

// ── Cache metrics ─────────────────────────────────────────────────────────────

// CacheLookupsTotal counts read-path cache lookups.
// Labels:
//   - op: "get_user" or "list_users"
//   - result: "hit", "miss" or "error" (errors are served from the store)
var CacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Total number of cache lookups on the read path, by result.",
	},
	[]string{"op", "result"},
)

// CacheWriteFailuresTotal counts failed cache populates and invalidations.
// Label:
//   - op: "populate", "write_through", "delete" or "invalidate"
var CacheWriteFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_write_failures_total",
		Help:      "Total number of failed cache writes and invalidations.",
	},
	[]string{"op"},
)

// ── User metrics ──────────────────────────────────────────────────────────────

// UserWritesTotal counts user write transactions.
// Labels:
//   - op: "create", "update" or "delete"
//   - result: "ok" or the error kind (e.g. "conflict", "not_found")
var UserWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "user_writes_total",
		Help:      "Total number of user writes, by operation and result.",
	},
	[]string{"op", "result"},
)

// RolesCreatedTotal counts roles created implicitly by user writes.
var RolesCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "roles_created_total",
		Help:      "Total number of roles created by find-or-create resolution.",
	},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsTotal counts audit events by outcome.
// Label:
//   - result: "stored", "failed" or "dropped" (shard buffer full)
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit events, by outcome.",
	},
	[]string{"result"},
)

// AuditQueueDepth tracks the number of events waiting in each dispatcher shard.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher shard.",
	},
	[]string{"worker_id"},
)

// AuditWriteDuration measures audit persistence latency.
var AuditWriteDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "audit_write_duration_seconds",
		Help:      "Duration of a single audit event insert.",
		Buckets:   prometheus.DefBuckets,
	},
)
