package calib

import (
	"fmt"
	"strings"

	"github.com/alvintehg/fhri/internal/api"
)

// ConfusionMatrix counts binary outcomes with hallucination as the positive
// class.
type ConfusionMatrix struct {
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalseNegatives int `json:"false_negatives"`
}

// Report is the metric summary used to validate a fit before deployment.
type Report struct {
	Threshold     float64         `json:"threshold"`
	Precision     float64         `json:"precision"`
	Recall        float64         `json:"recall"`
	F1            float64         `json:"f1"`
	Accuracy      float64         `json:"accuracy"`
	Matrix        ConfusionMatrix `json:"confusion_matrix"`
	NumSamples    int             `json:"num_samples"`
	PositiveRatio float64         `json:"positive_ratio"`
}

// Evaluate scores a model against labeled rows, skipping rows without a
// binary ground-truth label.
func Evaluate(m *Model, rows []Row) (*Report, error) {
	var matrix ConfusionMatrix
	usable := 0
	positive := 0

	for _, r := range rows {
		var actual bool
		switch r.Sample.GroundTruthLabel {
		case api.LabelHallucination:
			actual = true
		case api.LabelAccurate:
			actual = false
		default:
			continue
		}
		usable++
		if actual {
			positive++
		}

		scenario := api.ParseScenario(r.Sample.Scenario)
		predicted := m.Predict(Featurize(r.SubScores, scenario)) >= m.Threshold
		switch {
		case predicted && actual:
			matrix.TruePositives++
		case predicted && !actual:
			matrix.FalsePositives++
		case !predicted && actual:
			matrix.FalseNegatives++
		default:
			matrix.TrueNegatives++
		}
	}
	if usable == 0 {
		return nil, ErrInsufficientData
	}

	report := &Report{
		Threshold:     m.Threshold,
		Matrix:        matrix,
		NumSamples:    usable,
		PositiveRatio: float64(positive) / float64(usable),
	}
	tp := float64(matrix.TruePositives)
	fp := float64(matrix.FalsePositives)
	tn := float64(matrix.TrueNegatives)
	fn := float64(matrix.FalseNegatives)
	if tp+fp > 0 {
		report.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		report.Recall = tp / (tp + fn)
	}
	if report.Precision+report.Recall > 0 {
		report.F1 = 2 * report.Precision * report.Recall / (report.Precision + report.Recall)
	}
	report.Accuracy = (tp + tn) / float64(usable)
	return report, nil
}

// String renders the report in a fixed, human-readable layout for the CLI.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "samples:   %d (%.1f%% hallucination)\n", r.NumSamples, r.PositiveRatio*100)
	fmt.Fprintf(&b, "threshold: %.4f\n", r.Threshold)
	fmt.Fprintf(&b, "precision: %.4f\n", r.Precision)
	fmt.Fprintf(&b, "recall:    %.4f\n", r.Recall)
	fmt.Fprintf(&b, "f1:        %.4f\n", r.F1)
	fmt.Fprintf(&b, "accuracy:  %.4f\n", r.Accuracy)
	fmt.Fprintf(&b, "confusion: TP=%d FP=%d TN=%d FN=%d\n",
		r.Matrix.TruePositives, r.Matrix.FalsePositives,
		r.Matrix.TrueNegatives, r.Matrix.FalseNegatives)
	return b.String()
}
