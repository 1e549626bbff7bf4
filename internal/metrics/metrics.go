package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus instruments for the scoring service.
// Construct exactly once per process; promauto registers on the default
// registry and duplicate registration panics.
type Metrics struct {
	AssessmentsTotal *prometheus.CounterVec
	Vetoes           prometheus.Counter
	Suppressions     prometheus.Counter
	GateRuns         *prometheus.CounterVec
	GateSkips        *prometheus.CounterVec
	NLIFailures      prometheus.Counter
	PassagesSkipped  prometheus.Counter
	AssessLatency    prometheus.Histogram
}

// New creates and registers all metrics.
func New() *Metrics {
	return &Metrics{
		AssessmentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fhri_assessments_total",
				Help: "Risk assessments produced, by predicted label and scenario",
			},
			[]string{"label", "scenario"},
		),
		Vetoes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fhri_vetoes_total",
			Help: "Hard vetoes applied in high-risk scenarios",
		}),
		Suppressions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fhri_contradiction_suppressions_total",
			Help: "Cross-turn contradictions attenuated as rephrasing false positives",
		}),
		GateRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fhri_gate_runs_total",
				Help: "Contradiction checks the gate decided to run, by reason",
			},
			[]string{"reason"},
		),
		GateSkips: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fhri_gate_skips_total",
				Help: "Contradiction checks the gate skipped, by skip reason",
			},
			[]string{"skip_reason"},
		),
		NLIFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fhri_nli_failures_total",
			Help: "NLI calls that failed or timed out",
		}),
		PassagesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fhri_evidence_passages_skipped_total",
			Help: "Evidence passages excluded from aggregation after NLI failure",
		}),
		AssessLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fhri_assess_duration_seconds",
			Help:    "End-to-end latency of one sample assessment",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
