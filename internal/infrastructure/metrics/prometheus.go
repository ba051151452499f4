// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mediarelay"

var (
	// UpstreamRequestsTotal tracks requests issued to the blob store.
	// Labels:
	//   - method: GET, HEAD
	//   - result: ok, transport, timeout, rejected, too_large
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream requests",
		},
		[]string{"method", "result"},
	)

	// StreamsTotal tracks finished media streams by outcome.
	// Labels:
	//   - kind: video, englishAudio, hindiAudio
	//   - outcome: completed, aborted, failed
	StreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_total",
			Help:      "Total number of proxied media streams",
		},
		[]string{"kind", "outcome"},
	)

	// StreamedBytesTotal counts body bytes relayed to clients.
	StreamedBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streamed_bytes_total",
			Help:      "Total number of media bytes relayed to clients",
		},
		[]string{"kind"},
	)

	// ActiveStreams is the number of streams currently relaying bytes.
	ActiveStreams = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Number of media streams in progress",
		},
		[]string{"kind"},
	)

	// ProbesTotal tracks HEAD probe outcomes.
	// Labels:
	//   - result: accessible, inaccessible
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Total number of upstream accessibility probes",
		},
		[]string{"result"},
	)

	// CacheOperationsTotal tracks cache operations (get, set, delete).
	// Labels:
	//   - operation: get, set, delete
	//   - status: hit, miss, success, error
	//   - cache_type: redis
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status", "cache_type"},
	)

	// DBQueriesTotal tracks database queries.
	// Labels:
	//   - query_type: select, insert, update
	//   - table: media_entries, sweeps
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"query_type", "table"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)
)

// Stream outcome constants.
const (
	OutcomeCompleted = "completed"
	OutcomeAborted   = "aborted"
	OutcomeFailed    = "failed"
)

// Probe result constants.
const (
	ProbeAccessible   = "accessible"
	ProbeInaccessible = "inaccessible"
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDelete = "delete"
)

// Cache type constants.
const (
	CacheTypeRedis = "redis"
)

// DB query type constants.
const (
	DBQuerySelect = "select"
	DBQueryInsert = "insert"
	DBQueryUpdate = "update"
)

// Table name constants.
const (
	TableMediaEntries = "media_entries"
	TableSweeps       = "sweeps"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)
