package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Of these collectors, code in this repository updates WorkerStartTime
// (cmd/worker) and the two HTTP metrics (admin API middleware); the others
// are registered but never updated, so they stay at zero.
var (
	ChecksProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "monitor",
		Name:      "checks_processed_total",
		Help:      "Total checks executed, by monitor type and outcome status.",
	}, []string{"type", "status"})

	ChecksInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "monitor",
		Name:      "worker_checks_in_flight",
		Help:      "Number of checks currently being executed by this worker.",
	})

	CheckDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "monitor",
		Name:      "check_duration_seconds",
		Help:      "Duration of one check execution, by monitor type.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"type"})

	ClaimBatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "monitor",
		Name:      "schedule_claim_batch_size",
		Help:      "Number of rows returned by each claim call.",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})

	StaleClaimsReleasedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "monitor",
		Name:      "stale_claims_released_total",
		Help:      "Total schedule rows reclaimed by the sweeper.",
	})

	PubsubAvailable = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "monitor",
		Name:      "pubsub_available",
		Help:      "1 if the pub/sub transport is healthy, 0 otherwise.",
	})

	WorkerStartTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "monitor",
		Name:      "worker_start_time_seconds",
		Help:      "Unix timestamp when the worker started.",
	})

	RelayEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "monitor",
		Name:      "relay_events_total",
		Help:      "Total pub/sub events handled by the relay, by channel.",
	}, []string{"channel"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "monitor",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency for the admin command API.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "monitor",
		Name:      "http_requests_total",
		Help:      "Total admin command API requests, by method, path and status.",
	}, []string{"method", "path", "status"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		ChecksProcessedTotal,
		ChecksInFlight,
		CheckDuration,
		ClaimBatchSize,
		StaleClaimsReleasedTotal,
		PubsubAvailable,
		WorkerStartTime,
		RelayEventsTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
