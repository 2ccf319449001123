// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion
	PulsesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_ingested_total",
			Help: "Pulses appended to the store, by reaction type",
		},
		[]string{"reaction"},
	)

	ObjectsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_objects_created_total",
			Help: "Objects created while resolving pulse submissions, by type",
		},
		[]string{"type"},
	)

	IngestRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_ingest_rejected_total",
			Help: "Pulse submissions rejected before reaching the store",
		},
		[]string{"reason"},
	)

	ReactionsCoerced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulse_reactions_coerced_total",
			Help: "Submissions whose unknown reaction type was replaced by the default",
		},
	)

	// Aggregation
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulse_query_duration_seconds",
			Help:    "Duration of aggregation queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query", "status"},
	)

	NearbyCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pulse_nearby_candidates",
			Help:    "Candidates fetched per nearby query",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	// Store gauges, refreshed by the stats collector
	StoreObjects = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_store_objects",
		Help: "Objects currently in the store",
	})
	StorePulses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_store_pulses",
		Help: "Pulses currently in the store",
	})
	StoreLocations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_store_locations",
		Help: "Distinct (object, coordinate) groups in the store",
	})

	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_http_requests_total",
			Help: "HTTP requests by route pattern, method and status code",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulse_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Live feed
	LiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_live_clients",
		Help: "Connected WebSocket clients",
	})

	LiveDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulse_live_dropped_total",
		Help: "Live messages dropped because a client was too slow",
	})

	// Catalog
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_catalog_requests_total",
			Help: "Genre catalog fetches by outcome",
		},
		[]string{"outcome"}, // "ok", "error", "fallback", "open"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pulse_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// ObserveQuery records the duration of an aggregation query.
func ObserveQuery(query string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	QueryDuration.WithLabelValues(query, status).Observe(time.Since(start).Seconds())
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// SetStoreStats publishes store gauges.
func SetStoreStats(objects, pulses, locations int64) {
	StoreObjects.Set(float64(objects))
	StorePulses.Set(float64(pulses))
	StoreLocations.Set(float64(locations))
}
