package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// KPITracker maintains rolling quality rates over all assessments produced
// since process start: how often answers are flagged, vetoed, or suppressed.
// Counters in Metrics answer "how many"; these gauges answer "what fraction",
// which is what dashboards alert on.
type KPITracker struct {
	mu sync.Mutex

	total         int64
	hallucination int64
	contradiction int64
	vetoed        int64
	suppressed    int64

	hallucinationRate prometheus.Gauge
	contradictionRate prometheus.Gauge
	vetoRate          prometheus.Gauge
	suppressionRate   prometheus.Gauge
}

// NewKPITracker creates and registers the rate gauges. Construct once per
// process, alongside Metrics.
func NewKPITracker() *KPITracker {
	return &KPITracker{
		hallucinationRate: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fhri_hallucination_rate",
			Help: "Fraction of assessments labeled hallucination",
		}),
		contradictionRate: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fhri_contradiction_rate",
			Help: "Fraction of assessments labeled contradiction",
		}),
		vetoRate: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fhri_veto_rate",
			Help: "Fraction of assessments with a hard veto applied",
		}),
		suppressionRate: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fhri_suppression_rate",
			Help: "Fraction of assessments with contradiction suppression applied",
		}),
	}
}

// Observe folds one assessment outcome into the rolling rates.
func (k *KPITracker) Observe(label string, vetoed, suppressed bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.total++
	switch label {
	case "hallucination":
		k.hallucination++
	case "contradiction":
		k.contradiction++
	}
	if vetoed {
		k.vetoed++
	}
	if suppressed {
		k.suppressed++
	}

	n := float64(k.total)
	k.hallucinationRate.Set(float64(k.hallucination) / n)
	k.contradictionRate.Set(float64(k.contradiction) / n)
	k.vetoRate.Set(float64(k.vetoed) / n)
	k.suppressionRate.Set(float64(k.suppressed) / n)
}

// Snapshot returns the current counts for health endpoints and tests.
func (k *KPITracker) Snapshot() (total, hallucination, contradiction, vetoed, suppressed int64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.total, k.hallucination, k.contradiction, k.vetoed, k.suppressed
}
