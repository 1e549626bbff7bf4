// Package fhri implements the composite risk scorer: fusion of the named
// sub-scores into a base FHRI value, the scenario-conditioned veto ladder,
// false-positive suppression, and the final three-way labeling.
package fhri

import (
	"fmt"
	"time"

	"github.com/alvintehg/fhri/internal/api"
)

// riskClass partitions scenarios by how heavily contradiction evidence
// should weigh. High-risk scenarios are ones where factual precision is
// compliance-critical.
type riskClass int

const (
	classStandard riskClass = iota
	classHigh
)

var highRiskScenarios = map[api.Scenario]bool{
	api.ScenarioNumericKPI: true,
	api.ScenarioRegulatory: true,
}

func classify(s api.Scenario) riskClass {
	if highRiskScenarios[s] {
		return classHigh
	}
	return classStandard
}

// penalty is one rung of the veto ladder.
type penalty int

const (
	penaltyNone penalty = iota
	penaltySoft
	penaltyModerate
	penaltyHard
)

// contradictionBucket discretizes the contradiction score against the two
// ladder thresholds.
type contradictionBucket int

const (
	bucketLow contradictionBucket = iota
	bucketModerate
	bucketStrong
)

func bucketize(c float64, p api.EngineParams) contradictionBucket {
	switch {
	case c >= p.VetoThreshold:
		return bucketStrong
	case c >= p.ModerateThreshold:
		return bucketModerate
	default:
		return bucketLow
	}
}

// vetoLadder is the full decision table keyed on (risk class, contradiction
// bucket). Standard scenarios never reach penaltyHard regardless of
// contradiction strength.
var vetoLadder = map[riskClass]map[contradictionBucket]penalty{
	classHigh: {
		bucketStrong:   penaltyHard,
		bucketModerate: penaltyModerate,
		bucketLow:      penaltyNone,
	},
	classStandard: {
		bucketStrong:   penaltySoft,
		bucketModerate: penaltySoft,
		bucketLow:      penaltyNone,
	},
}

// apply returns the multiplier for a ladder rung given the contradiction
// score c, and whether the rung counts as a hard veto.
func (p penalty) apply(c float64, params api.EngineParams) (factor float64, vetoed bool) {
	switch p {
	case penaltyHard:
		return 1 - c, true
	case penaltyModerate:
		return 1 - c*params.ModeratePenaltyFactor, false
	case penaltySoft:
		return 1 - c*params.SoftPenaltyFactor, false
	default:
		return 1, false
	}
}

// FusionWeights combines the five named sub-scores into the base FHRI value.
// Weights are a calibration output, not hardcoded policy; the uniform default
// maps an all-neutral vector to 0.5.
type FusionWeights [api.NumSubScores]float64

// DefaultFusionWeights weights all five components equally.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{0.2, 0.2, 0.2, 0.2, 0.2}
}

// Fuse computes the weighted base value from a normalized sub-score vector.
func (w FusionWeights) Fuse(scores [api.NumSubScores]float64) float64 {
	var sum float64
	for i, s := range scores {
		sum += w[i] * s
	}
	return clamp01(sum)
}

// ThresholdTable maps scenarios to hallucination decision thresholds in
// trust space. Scenarios without an override use Default.
type ThresholdTable struct {
	Default     float64                  `json:"default"`
	PerScenario map[api.Scenario]float64 `json:"per_scenario,omitempty"`
}

// Lookup returns the threshold for a scenario, falling back to Default.
func (t ThresholdTable) Lookup(s api.Scenario) float64 {
	if v, ok := t.PerScenario[s]; ok {
		return v
	}
	return t.Default
}

// Input carries everything the engine needs for one decision. BaseFHRI, when
// non-nil, is the externally-supplied composite; otherwise the engine fuses
// the sub-scores itself. AnswerSimilarity is the cross-turn answer-to-answer
// semantic similarity, nil when no prior turn was compared.
type Input struct {
	SubScores              api.SubScoreVector
	Scenario               api.Scenario
	BaseFHRI               *float64
	GateRan                bool
	CrossTurnContradiction float64
	AnswerSimilarity       *float64
	NumericContradiction   bool
}

// Engine is the composite risk scorer. It is stateless apart from its
// read-only configuration and safe for concurrent use.
type Engine struct {
	params     api.EngineParams
	weights    FusionWeights
	thresholds ThresholdTable
}

// New validates params and constructs an Engine.
func New(params api.EngineParams, weights FusionWeights, thresholds ThresholdTable) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if thresholds.Default <= 0 {
		thresholds.Default = params.DefaultThreshold
	}
	return &Engine{params: params, weights: weights, thresholds: thresholds}, nil
}

// Assess produces the RiskAssessment for one sample. It never fails: missing
// signals arrive pre-normalized to neutral values and degrade the decision
// rather than aborting it.
func (e *Engine) Assess(sampleID string, in Input) api.RiskAssessment {
	base := e.weights.Fuse(in.SubScores.Normalized())
	if in.BaseFHRI != nil {
		base = clamp01(*in.BaseFHRI)
	}

	// False-positive suppression: an answer that merely rephrases the prior
	// one produces high NLI contradiction and high semantic similarity at
	// the same time. Attenuate before the ladder sees the score.
	crossTurn := in.CrossTurnContradiction
	suppressed := false
	if in.AnswerSimilarity != nil && *in.AnswerSimilarity >= e.params.SuppressionSimilarity &&
		crossTurn > 0 {
		crossTurn *= e.params.SuppressionFactor
		suppressed = true
	}

	// The ladder reacts to the strongest contradiction evidence available,
	// whether it came from retrieved evidence or from the prior turn.
	contradiction := in.SubScores.Evidence.MaxContradiction
	if crossTurn > contradiction {
		contradiction = crossTurn
	}

	class := classify(in.Scenario)
	rung := vetoLadder[class][bucketize(contradiction, e.params)]
	factor, vetoed := rung.apply(contradiction, e.params)
	adjusted := clamp01(base * factor)

	vetoReason := ""
	if vetoed {
		vetoReason = fmt.Sprintf("contradiction %.2f >= %.2f in high-risk scenario %s",
			contradiction, e.params.VetoThreshold, in.Scenario)
	}

	threshold := e.thresholds.Lookup(in.Scenario)
	label := api.LabelAccurate
	if adjusted < threshold {
		label = api.LabelHallucination
	}
	// Contradiction is a parallel classification axis: strong cross-turn
	// evidence overrides the threshold comparison in either direction.
	if in.GateRan && (crossTurn >= e.params.ContradictionThreshold || in.NumericContradiction) {
		label = api.LabelContradiction
	}

	return api.RiskAssessment{
		SampleID:         sampleID,
		FHRI:             adjusted,
		PredictedLabel:   label,
		Vetoed:           vetoed,
		VetoReason:       vetoReason,
		ThresholdUsed:    threshold,
		ScenarioDetected: in.Scenario,
		Suppressed:       suppressed,
		ComputedAt:       time.Now().UTC(),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
