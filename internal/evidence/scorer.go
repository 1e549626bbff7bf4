package evidence

import (
	"context"
	"time"

	"github.com/alvintehg/fhri/internal/api"
	"github.com/alvintehg/fhri/internal/nli"
)

// Scorer runs NLI between each retrieved passage (premise) and the generated
// answer (hypothesis) and aggregates the per-passage scores. The direction is
// deliberate: evidence entails or contradicts the claim, not the other way
// around.
type Scorer struct {
	classifier nli.Classifier
	topK       int
	timeout    time.Duration
}

// NewScorer creates a scorer. topK caps how many passages are scored (bounds
// latency); timeout bounds each individual NLI call.
func NewScorer(classifier nli.Classifier, topK int, timeout time.Duration) *Scorer {
	if topK <= 0 {
		topK = 5
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Scorer{classifier: classifier, topK: topK, timeout: timeout}
}

// Score aggregates NLI scores for the answer against the top-K passages.
// Missing answer, missing passages, or an unavailable classifier yield the
// all-zero neutral summary. A timed-out or failing passage is skipped and
// excluded from the aggregate, not counted as zero: a flaky model call must
// not inject a phantom full-confidence contradiction.
func (s *Scorer) Score(ctx context.Context, answer string, passages []string) api.NLISummary {
	var summary api.NLISummary

	if answer == "" || len(passages) == 0 || s.classifier == nil {
		return summary
	}

	if len(passages) > s.topK {
		passages = passages[:s.topK]
	}

	var sumEnt, sumContra float64
	for _, passage := range passages {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		scores, err := s.classifier.Classify(callCtx, passage, answer)
		cancel()
		if err != nil {
			summary.PassagesSkipped++
			continue
		}

		summary.PassagesScored++
		sumEnt += scores.Entailment
		sumContra += scores.Contradiction
		if scores.Entailment > summary.MaxEntailment {
			summary.MaxEntailment = scores.Entailment
		}
		if scores.Contradiction > summary.MaxContradiction {
			summary.MaxContradiction = scores.Contradiction
		}
	}

	if summary.PassagesScored > 0 {
		n := float64(summary.PassagesScored)
		summary.AvgEntailment = sumEnt / n
		summary.AvgContradiction = sumContra / n
	}

	return summary
}
