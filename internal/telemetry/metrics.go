package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	AutomationsCreated  = prometheus.NewCounter(prometheus.CounterOpts{Name: "dca_automations_created_total", Help: "Automation jobs created"})
	SimulatedRuns       = prometheus.NewCounter(prometheus.CounterOpts{Name: "dca_automations_simulated_total", Help: "Workflow runs completed in simulated mode"})
	ValidationFailures  = prometheus.NewCounter(prometheus.CounterOpts{Name: "dca_validation_failures_total", Help: "Requests rejected by the validator"})
	UpstreamFailures    = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "dca_upstream_failures_total", Help: "Failed upstream calls by operation"}, []string{"op"})
	LinkageWarnings     = prometheus.NewCounter(prometheus.CounterOpts{Name: "dca_linkage_warnings_total", Help: "Plan linkage updates that failed after job creation"})
	RateLimitRejects    = prometheus.NewCounter(prometheus.CounterOpts{Name: "dca_rate_limit_rejects_total", Help: "Requests rejected by the rate limiter"})
	ConflictRejects     = prometheus.NewCounter(prometheus.CounterOpts{Name: "dca_conflict_rejects_total", Help: "Requests rejected because the plan was already in flight"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			AutomationsCreated,
			SimulatedRuns,
			ValidationFailures,
			UpstreamFailures,
			LinkageWarnings,
			RateLimitRejects,
			ConflictRejects,
		)
	})
	return promhttp.Handler()
}
