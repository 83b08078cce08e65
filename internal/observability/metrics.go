package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	PipelineRuns     *prometheus.CounterVec
	PipelineDuration *prometheus.HistogramVec
	StageExecutions  *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	StageErrors      *prometheus.CounterVec
	GateDecisions    *prometheus.CounterVec
	LLMCalls         *prometheus.CounterVec
	Persisted        *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	RateLimited      *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry, so independent
// instances (tests, several servers in one process) never collide.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		PipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "application_agent_pipeline_runs_total",
				Help: "Pipeline runs by plan and outcome",
			},
			[]string{"plan", "status"},
		),
		PipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "application_agent_pipeline_duration_seconds",
				Help:    "Wall time of pipeline runs",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"plan"},
		),
		StageExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "application_agent_stage_executions_total",
				Help: "Stage executions by plan, stage and outcome",
			},
			[]string{"plan", "stage", "status"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "application_agent_stage_duration_seconds",
				Help:    "Wall time of stage executions",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"plan", "stage"},
		),
		StageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "application_agent_stage_errors_total",
				Help: "Error entries recorded by stages",
			},
			[]string{"plan", "stage"},
		),
		GateDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "application_agent_gate_decisions_total",
				Help: "Threshold gate outcomes",
			},
			[]string{"plan", "gate", "decision"},
		),
		LLMCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "application_agent_llm_calls_total",
				Help: "LLM completions by stage and outcome",
			},
			[]string{"stage", "status"},
		),
		Persisted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "application_agent_generations_saved_total",
				Help: "Generation history writes by document type and outcome",
			},
			[]string{"document_type", "status"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "application_agent_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		RateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "application_agent_http_rate_limited_total",
				Help: "Requests rejected by the rate limiter by route",
			},
			[]string{"route"},
		),
	}
}

func status(failed bool) string {
	if failed {
		return "error"
	}
	return "ok"
}

// ObserveStage records one stage execution.
func (m *Metrics) ObserveStage(plan, stage string, elapsed time.Duration, errorsAdded int) {
	if m == nil {
		return
	}
	m.StageExecutions.WithLabelValues(plan, stage, status(errorsAdded > 0)).Inc()
	m.StageDuration.WithLabelValues(plan, stage).Observe(elapsed.Seconds())
	if errorsAdded > 0 {
		m.StageErrors.WithLabelValues(plan, stage).Add(float64(errorsAdded))
	}
}

// ObserveGate records a threshold decision.
func (m *Metrics) ObserveGate(plan, gate, decision string) {
	if m == nil || decision == "" {
		return
	}
	m.GateDecisions.WithLabelValues(plan, gate, decision).Inc()
}

// ObserveRun records a finished pipeline run.
func (m *Metrics) ObserveRun(plan, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(plan, outcome).Inc()
	m.PipelineDuration.WithLabelValues(plan).Observe(elapsed.Seconds())
}

// ObserveLLMCall records one completion made on behalf of stage.
func (m *Metrics) ObserveLLMCall(stage string, failed bool) {
	if m == nil {
		return
	}
	m.LLMCalls.WithLabelValues(stage, status(failed)).Inc()
}

// ObservePersist records a generation history write.
func (m *Metrics) ObservePersist(documentType string, failed bool) {
	if m == nil {
		return
	}
	m.Persisted.WithLabelValues(documentType, status(failed)).Inc()
}

// ObserveHTTP records one served request. route is the matched pattern, not
// the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// ObserveRateLimited records a request rejected with 429.
func (m *Metrics) ObserveRateLimited(route string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(route).Inc()
}
