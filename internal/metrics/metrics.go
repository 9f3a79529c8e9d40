package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
	// RateLimited counts requests rejected by the per-tenant limiter
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "http_rate_limited_total", Help: "Requests rejected by the rate limiter."},
	)

	// PlanScores counts scoring calls by result (ok, config_error, invalid_plan)
	PlanScores = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plan_scores_total", Help: "Plan scoring calls by result."},
		[]string{"result"},
	)
	// RescheduleRuns counts finished search runs by outcome
	RescheduleRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "reschedule_runs_total", Help: "Reschedule runs by outcome."},
		[]string{"outcome"},
	)
	// RescheduleIterations records candidates evaluated per run
	RescheduleIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "reschedule_iterations", Help: "Candidates evaluated per reschedule run.", Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000}},
	)
	// RescheduleImprovements records accepted improvements per run
	RescheduleImprovements = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "reschedule_improvements", Help: "Accepted improvements per reschedule run.", Buckets: []float64{0, 1, 2, 5, 10, 20, 50}},
	)
	// RescheduleGain records best minus initial score per run
	RescheduleGain = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "reschedule_score_gain", Help: "Score gain per reschedule run.", Buckets: []float64{0, 0.5, 1, 2, 5, 10, 25, 50, 100}},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(RateLimited)
		Registry.MustRegister(PlanScores)
		Registry.MustRegister(RescheduleRuns)
		Registry.MustRegister(RescheduleIterations)
		Registry.MustRegister(RescheduleImprovements)
		Registry.MustRegister(RescheduleGain)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// ObserveRun records one finished reschedule run.
func ObserveRun(outcome string, iterations, improvements int, gain float64) {
	RescheduleRuns.WithLabelValues(outcome).Inc()
	RescheduleIterations.Observe(float64(iterations))
	RescheduleImprovements.Observe(float64(improvements))
	RescheduleGain.Observe(gain)
}

var regOnce sync.Once
