package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/fourdrun/internal/match"
)

// Namespace prefixes every metric name.
const Namespace = "fourdrun"

// Step names a pipeline stage.
type Step string

const (
	StepFetch     Step = "fetch"
	StepIngest    Step = "ingest"
	StepAggregate Step = "aggregate"
	StepScore     Step = "score"
	StepBox       Step = "box"
	StepSettle    Step = "settle"
	StepPersist   Step = "persist"
)

// Result labels the outcome of a step.
type Result string

const (
	ResultSuccess Result = "success"
	ResultError   Result = "error"
	ResultSkipped Result = "skipped"
)

// Registry holds all Prometheus metrics on a private registry.
type Registry struct {
	reg *prometheus.Registry

	StepDuration   *prometheus.HistogramVec
	PipelineSteps  *prometheus.CounterVec
	PipelineErrors *prometheus.CounterVec

	FeedRequests *prometheus.CounterVec
	FeedLatency  prometheus.Histogram
	BreakerState *prometheus.GaugeVec

	RecordsIngested prometheus.Counter
	HistoryDraws    prometheus.Gauge
	HitRate         *prometheus.GaugeVec
	DegenerateBoxes prometheus.Counter
}

// NewRegistry creates and registers all metrics.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of each pipeline step in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"step", "result"},
		),
		PipelineSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "pipeline_steps_total",
				Help:      "Total number of pipeline steps executed",
			},
			[]string{"step", "status"},
		),
		PipelineErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "pipeline_errors_total",
				Help:      "Total number of pipeline errors by step",
			},
			[]string{"step", "error_type"},
		),
		FeedRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "feed_requests_total",
				Help:      "Results feed requests by outcome",
			},
			[]string{"result"},
		),
		FeedLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "feed_latency_seconds",
				Help:      "Results feed round-trip latency",
				Buckets:   prometheus.DefBuckets,
			},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		RecordsIngested: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "records_ingested_total",
				Help:      "Draw records added to the history",
			},
		),
		HistoryDraws: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "history_records",
				Help:      "Draw records in the history used by the last run",
			},
		),
		HitRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "hit_rate_percent",
				Help:      "Last settled hit rate by source (grid|candidates) and kind (direct|ibet)",
			},
			[]string{"source", "kind"},
		),
		DegenerateBoxes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "degenerate_boxes_total",
				Help:      "Boxes built with forced cells or column-cap violations",
			},
		),
	}

	r.reg.MustRegister(
		r.StepDuration,
		r.PipelineSteps,
		r.PipelineErrors,
		r.FeedRequests,
		r.FeedLatency,
		r.BreakerState,
		r.RecordsIngested,
		r.HistoryDraws,
		r.HitRate,
		r.DegenerateBoxes,
	)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// StepTimer tracks execution time for pipeline steps
type StepTimer struct {
	metrics *Registry
	step    Step
	start   time.Time
}

// StartStepTimer begins timing a pipeline step
func (r *Registry) StartStepTimer(step Step) *StepTimer {
	return &StepTimer{metrics: r, step: step, start: time.Now()}
}

// Stop completes the step timing and records the metric
func (st *StepTimer) Stop(result Result) time.Duration {
	duration := time.Since(st.start)
	if st.metrics != nil {
		st.metrics.StepDuration.WithLabelValues(string(st.step), string(result)).Observe(duration.Seconds())
		st.metrics.PipelineSteps.WithLabelValues(string(st.step), string(result)).Inc()
	}

	log.Debug().
		Str("step", string(st.step)).
		Str("result", string(result)).
		Dur("duration", duration).
		Msg("Pipeline step completed")
	return duration
}

// RecordPipelineError records a pipeline error
func (r *Registry) RecordPipelineError(step Step, errorType string) {
	r.PipelineErrors.WithLabelValues(string(step), errorType).Inc()
	log.Warn().
		Str("step", string(step)).
		Str("error_type", errorType).
		Msg("Pipeline error recorded")
}

// ObserveFeedRequest records a feed request outcome.
func (r *Registry) ObserveFeedRequest(result string, elapsed time.Duration) {
	r.FeedRequests.WithLabelValues(result).Inc()
	if elapsed > 0 {
		r.FeedLatency.Observe(elapsed.Seconds())
	}
}

// ObserveBreakerState records a circuit breaker transition.
func (r *Registry) ObserveBreakerState(name, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	r.BreakerState.WithLabelValues(name).Set(v)
}

// RecordIngest counts newly stored draw records.
func (r *Registry) RecordIngest(added int) {
	r.RecordsIngested.Add(float64(added))
}

// SetHistorySize records how many draw records the last aggregation read.
func (r *Registry) SetHistorySize(n int) {
	r.HistoryDraws.Set(float64(n))
}

// RecordGridStats publishes a settled box's hit rates.
func (r *Registry) RecordGridStats(s match.GridStats) {
	r.HitRate.WithLabelValues("grid", "direct").Set(s.DirectRate())
	r.HitRate.WithLabelValues("grid", "ibet").Set(s.IbetRate())
}

// RecordCandidateStats publishes a settled prediction's hit rates.
func (r *Registry) RecordCandidateStats(s match.CandidateStats) {
	if s.Total == 0 {
		return
	}
	r.HitRate.WithLabelValues("candidates", "direct").Set(float64(len(s.Direct)) / float64(s.Total) * 100)
	r.HitRate.WithLabelValues("candidates", "ibet").Set(float64(len(s.Ibet)) / float64(s.Total) * 100)
}

// RecordDegenerateBox counts a box whose constraints could not all hold.
func (r *Registry) RecordDegenerateBox() {
	r.DegenerateBoxes.Inc()
}

// Snapshot returns the current hit-rate gauges keyed "source_kind".
func (r *Registry) Snapshot() map[string]float64 {
	out := make(map[string]float64)
	m := &dto.Metric{}
	for _, source := range []string{"grid", "candidates"} {
		for _, kind := range []string{"direct", "ibet"} {
			g, err := r.HitRate.GetMetricWithLabelValues(source, kind)
			if err != nil {
				continue
			}
			if err := g.Write(m); err == nil {
				out[source+"_"+kind] = m.GetGauge().GetValue()
			}
		}
	}
	return out
}
