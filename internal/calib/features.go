// Package calib fits the supervised calibration model: a class-balanced
// logistic regression over standardized sub-score features that predicts
// P(hallucination), plus decision-threshold selection against a configurable
// objective.
package calib

import (
	"github.com/alvintehg/fhri/internal/api"
)

// NumFeatures is the fixed feature-vector dimensionality: five sub-scores,
// the numeric-mismatch flag, two NLI aggregates, and a one-hot encoding over
// the ten-tag scenario vocabulary.
const NumFeatures = api.NumSubScores + 3 + 10

// FeatureNames returns the canonical feature ordering. This ordering is
// embedded in the model artifact; training and serving must agree on it.
func FeatureNames() []string {
	names := make([]string, 0, NumFeatures)
	for _, n := range api.SubScoreNames() {
		names = append(names, "subscore_"+n)
	}
	names = append(names, "numeric_mismatch", "max_entailment", "max_contradiction")
	for _, s := range api.ScenarioVocabulary() {
		names = append(names, "scenario="+string(s))
	}
	return names
}

// Featurize encodes one sample's signals into the fixed feature vector.
// Scenarios outside the vocabulary produce an all-zero one-hot block rather
// than failing; normally ParseScenario has already mapped them to default.
func Featurize(scores api.SubScoreVector, scenario api.Scenario) []float64 {
	features := make([]float64, 0, NumFeatures)
	normalized := scores.Normalized()
	features = append(features, normalized[:]...)

	mismatch := 0.0
	if scores.NumericMismatch {
		mismatch = 1.0
	}
	features = append(features, mismatch,
		scores.Evidence.MaxEntailment, scores.Evidence.MaxContradiction)

	for _, s := range api.ScenarioVocabulary() {
		if s == scenario {
			features = append(features, 1.0)
		} else {
			features = append(features, 0.0)
		}
	}
	return features
}
