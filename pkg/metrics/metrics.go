package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts served requests by route and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yield_service_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency by route
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yield_service_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// UpstreamFetchDuration tracks transfer provider latency
	UpstreamFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yield_service_upstream_fetch_duration_seconds",
			Help:    "Latency of transfer history fetches per provider",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "status"},
	)

	// UpstreamTransfersFetched counts transfers returned by providers
	UpstreamTransfersFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yield_service_upstream_transfers_fetched_total",
			Help: "Number of transfer records returned by upstream providers",
		},
		[]string{"provider"},
	)

	// FlowAnalysesTotal counts flow analyses by outcome
	FlowAnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yield_service_flow_analyses_total",
			Help: "Total number of token flow analyses",
		},
		[]string{"result"},
	)

	// FlowAnalysisDuration tracks the aggregation pass only
	FlowAnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yield_service_flow_analysis_duration_seconds",
			Help:    "Duration of the in-memory aggregation pass",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// TransferCacheLookups counts cache hits and misses
	TransferCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yield_service_transfer_cache_lookups_total",
			Help: "Transfer cache lookups by result",
		},
		[]string{"result"},
	)

	// CacheWarmRuns counts cache warmer executions by outcome
	CacheWarmRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yield_service_cache_warm_runs_total",
			Help: "Transfer cache warm runs by result",
		},
		[]string{"result"},
	)

	// DatabaseConnectionsGauge reports sql.DB pool stats
	DatabaseConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "yield_service_database_connections",
			Help: "Database connection pool state",
		},
		[]string{"state"},
	)
)
