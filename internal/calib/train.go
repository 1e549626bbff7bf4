package calib

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/alvintehg/fhri/internal/api"
)

// ErrInsufficientData is returned when no training rows carry both a binary
// ground-truth label and computed sub-scores. A calibration run with zero
// usable rows fails loudly; no artifact is written.
var ErrInsufficientData = errors.New("calib: no usable training rows")

// ThresholdObjective selects how the decision threshold is chosen from the
// precision-recall curve.
type ThresholdObjective string

const (
	// ObjectiveF1 maximizes F1 over all candidate thresholds.
	ObjectiveF1 ThresholdObjective = "f1"
	// ObjectiveRecall targets recall >= TargetRecall; falls back to 0.3.
	ObjectiveRecall ThresholdObjective = "recall"
	// ObjectivePrecision targets precision >= TargetPrecision; falls back to 0.7.
	ObjectivePrecision ThresholdObjective = "precision"
)

const (
	TargetRecall      = 0.90
	TargetPrecision   = 0.80
	recallFallback    = 0.3
	precisionFallback = 0.7
)

// Row is one labeled training unit: the sample plus its computed sub-scores.
type Row struct {
	Sample    api.Sample         `json:"sample"`
	SubScores api.SubScoreVector `json:"sub_scores"`
}

// TrainConfig holds the optimizer hyperparameters. The defaults converge
// reliably on standardized features at this dimensionality.
type TrainConfig struct {
	LearningRate float64
	Epochs       int
	L2           float64
	Objective    ThresholdObjective
}

// DefaultTrainConfig returns the production training configuration.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		LearningRate: 0.1,
		Epochs:       500,
		L2:           1e-4,
		Objective:    ObjectiveF1,
	}
}

// Train fits the calibration model on labeled rows. Contradiction-labeled
// samples are excluded from the binary fit; that failure mode is handled by
// the engine's parallel classification axis. Training is deterministic:
// full-batch gradient descent from zero weights, no random initialization
// or shuffling.
func Train(rows []Row, cfg TrainConfig) (*Model, error) {
	var features [][]float64
	var labels []int

	for _, r := range rows {
		var label int
		switch r.Sample.GroundTruthLabel {
		case api.LabelHallucination:
			label = 1
		case api.LabelAccurate:
			label = 0
		default:
			continue
		}
		scenario := api.ParseScenario(r.Sample.Scenario)
		features = append(features, Featurize(r.SubScores, scenario))
		labels = append(labels, label)
	}
	if len(features) == 0 {
		return nil, ErrInsufficientData
	}

	scaler := FitScaler(features)
	scaled := scaler.TransformAll(features)

	weights, intercept := fitLogistic(scaled, labels, cfg)

	probs := make([]float64, len(scaled))
	for i, row := range scaled {
		z := intercept
		for j, w := range weights {
			z += w * row[j]
		}
		probs[i] = sigmoid(z)
	}
	threshold := SelectThreshold(probs, labels, cfg.Objective)

	positive := 0
	for _, l := range labels {
		positive += l
	}

	return &Model{
		Version:            fmt.Sprintf("lr-%s", time.Now().UTC().Format("20060102-150405")),
		TrainedAt:          time.Now().UTC(),
		Scaler:             scaler,
		Weights:            weights,
		Intercept:          intercept,
		Threshold:          threshold,
		ThresholdObjective: string(cfg.Objective),
		FeatureNames:       FeatureNames(),
		ScenarioVocabulary: api.ScenarioVocabulary(),
		DatasetHash:        datasetHash(features, labels),
		NumSamples:         len(labels),
		PositiveRatio:      float64(positive) / float64(len(labels)),
	}, nil
}

// fitLogistic runs class-balanced full-batch gradient descent. Per-sample
// weights follow the balanced heuristic n/(2*n_class) so the minority class
// contributes equally to the gradient.
func fitLogistic(features [][]float64, labels []int, cfg TrainConfig) (weights []float64, intercept float64) {
	n := len(features)
	dim := len(features[0])
	weights = make([]float64, dim)

	positive := 0
	for _, l := range labels {
		positive += l
	}
	negative := n - positive
	wPos, wNeg := 1.0, 1.0
	if positive > 0 && negative > 0 {
		wPos = float64(n) / (2 * float64(positive))
		wNeg = float64(n) / (2 * float64(negative))
	}

	grad := make([]float64, dim)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		gradIntercept := 0.0
		totalWeight := 0.0

		for i, row := range features {
			z := intercept
			for j, w := range weights {
				z += w * row[j]
			}
			p := sigmoid(z)
			sw := wNeg
			if labels[i] == 1 {
				sw = wPos
			}
			err := sw * (p - float64(labels[i]))
			for j, v := range row {
				grad[j] += err * v
			}
			gradIntercept += err
			totalWeight += sw
		}

		for j := range weights {
			weights[j] -= cfg.LearningRate * (grad[j]/totalWeight + cfg.L2*weights[j])
		}
		intercept -= cfg.LearningRate * gradIntercept / totalWeight
	}
	return weights, intercept
}

// SelectThreshold picks the decision threshold from predicted probabilities
// and true labels. Candidates are the distinct predicted probabilities, so
// every achievable confusion matrix is considered exactly once. If a target
// objective is unsatisfiable, the documented conservative fallback applies.
func SelectThreshold(probs []float64, labels []int, objective ThresholdObjective) float64 {
	candidates := make([]float64, len(probs))
	copy(candidates, probs)
	sort.Float64s(candidates)
	candidates = dedupe(candidates)

	switch objective {
	case ObjectiveRecall:
		// Among thresholds meeting the recall target, take the most
		// conservative one (highest threshold, hence best precision).
		best := -1.0
		bestPrecision := -1.0
		for _, t := range candidates {
			p, r, _ := prf(probs, labels, t)
			if r >= TargetRecall && (p > bestPrecision || (p == bestPrecision && t > best)) {
				best = t
				bestPrecision = p
			}
		}
		if best < 0 {
			return recallFallback
		}
		return best

	case ObjectivePrecision:
		// Among thresholds meeting the precision target, take the one with
		// the highest recall (lowest threshold).
		best := -1.0
		bestRecall := -1.0
		for _, t := range candidates {
			p, r, _ := prf(probs, labels, t)
			if p >= TargetPrecision && r > bestRecall {
				best = t
				bestRecall = r
			}
		}
		if best < 0 {
			return precisionFallback
		}
		return best

	default: // ObjectiveF1
		best := 0.5
		bestF1 := -1.0
		for _, t := range candidates {
			_, _, f1 := prf(probs, labels, t)
			if f1 > bestF1 {
				best = t
				bestF1 = f1
			}
		}
		return best
	}
}

// prf computes precision/recall/F1 for the positive (hallucination) class at
// a threshold, predicting positive when p >= t.
func prf(probs []float64, labels []int, t float64) (precision, recall, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for i, p := range probs {
		predicted := p >= t
		actual := labels[i] == 1
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && actual:
			fn++
		}
	}
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

func dedupe(sorted []float64) []float64 {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}

// datasetHash fingerprints the training data for reproducibility tracking.
func datasetHash(features [][]float64, labels []int) string {
	h := sha256.New()
	for _, row := range features {
		for _, v := range row {
			fmt.Fprintf(h, "%.9f,", v)
		}
		h.Write([]byte("\n"))
	}
	for _, l := range labels {
		fmt.Fprintf(h, "%d,", l)
	}
	return hex.EncodeToString(h.Sum(nil))
}
