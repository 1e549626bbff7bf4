package api

import (
	"fmt"
	"time"
)

// Label is the three-way classification outcome for a sample.
type Label string

const (
	LabelAccurate      Label = "accurate"
	LabelHallucination Label = "hallucination"
	LabelContradiction Label = "contradiction"
)

// Scenario is a closed vocabulary of question types used to select risk
// tolerance. Unknown incoming tags must be resolved to ScenarioDefault at the
// system boundary via ParseScenario, never deeper in the pipeline.
type Scenario string

const (
	ScenarioNumericKPI      Scenario = "numeric_kpi"
	ScenarioRegulatory      Scenario = "regulatory"
	ScenarioMarketTrend     Scenario = "market_trend"
	ScenarioCompanyEarnings Scenario = "company_earnings"
	ScenarioMacroeconomic   Scenario = "macroeconomic"
	ScenarioCrypto          Scenario = "crypto"
	ScenarioTemporal        Scenario = "temporal_reasoning"
	ScenarioInvestment      Scenario = "investment_advice"
	ScenarioGeneral         Scenario = "general_knowledge"
	ScenarioDefault         Scenario = "default"
)

// ScenarioVocabulary returns the fixed 10-tag vocabulary in the canonical
// order used for one-hot feature encoding. The order is part of the
// CalibrationModel contract and must not change between training and serving.
func ScenarioVocabulary() []Scenario {
	return []Scenario{
		ScenarioNumericKPI,
		ScenarioRegulatory,
		ScenarioMarketTrend,
		ScenarioCompanyEarnings,
		ScenarioMacroeconomic,
		ScenarioCrypto,
		ScenarioTemporal,
		ScenarioInvestment,
		ScenarioGeneral,
		ScenarioDefault,
	}
}

// ParseScenario resolves a free-form scenario tag to the closed vocabulary.
// Unknown tags map to ScenarioDefault.
func ParseScenario(tag string) Scenario {
	s := Scenario(tag)
	for _, known := range ScenarioVocabulary() {
		if s == known {
			return s
		}
	}
	return ScenarioDefault
}

// Sample is one evaluation unit: a question, the generated answer, the
// retrieved evidence passages (insertion order = retrieval rank), and
// optional ground truth for calibration runs.
type Sample struct {
	ID                  string   `json:"id"`
	Question            string   `json:"question"`
	Answer              string   `json:"answer"` // may be empty if generation failed
	Passages            []string `json:"passages,omitempty"`
	Scenario            string   `json:"scenario,omitempty"` // raw tag, resolved via ParseScenario
	GroundTruthLabel    Label    `json:"ground_truth_label,omitempty"`
	ContradictionPairID string   `json:"contradiction_pair_id,omitempty"`
}

// Neutral defaults substituted when an underlying signal is unavailable.
// Midpoint sub-scores keep the calibrator numerically well-posed; zero NLI
// scores mean "no evidence either way". Absence must never silently become a
// canonical good or bad value, so the substitution happens in exactly one
// place (SubScoreVector.Normalized), not at call sites.
const (
	NeutralSubScore = 0.5
	NeutralNLIScore = 0.0
)

// NumSubScores is the number of named sub-score components {G, N_or_D, T, C, E}.
const NumSubScores = 5

// SubScoreNames returns the component names in canonical feature order.
func SubScoreNames() [NumSubScores]string {
	return [NumSubScores]string{"G", "N_or_D", "T", "C", "E"}
}

// NLISummary aggregates per-passage NLI scores between evidence and answer.
type NLISummary struct {
	MaxEntailment    float64 `json:"max_entailment"`
	MaxContradiction float64 `json:"max_contradiction"`
	AvgEntailment    float64 `json:"avg_entailment"`
	AvgContradiction float64 `json:"avg_contradiction"`
	PassagesScored   int     `json:"passages_scored"`
	PassagesSkipped  int     `json:"passages_skipped"`
}

// SubScoreVector holds the per-sample named sub-scores plus derived flags.
// Components are optional; a nil pointer means the underlying signal was
// unavailable and is normalized to NeutralSubScore at the fusion boundary.
type SubScoreVector struct {
	Groundedness *float64 `json:"G,omitempty"`
	Numeracy     *float64 `json:"N_or_D,omitempty"`
	Temporal     *float64 `json:"T,omitempty"`
	Compliance   *float64 `json:"C,omitempty"`
	Entropy      *float64 `json:"E,omitempty"`

	NumericMismatch bool       `json:"numeric_mismatch_flag"`
	Evidence        NLISummary `json:"nli_summary"`
}

// Normalized returns the five sub-scores in canonical order with absent
// components replaced by NeutralSubScore. This is the single place where
// "absence means neutral" is decided.
func (v *SubScoreVector) Normalized() [NumSubScores]float64 {
	components := [NumSubScores]*float64{
		v.Groundedness, v.Numeracy, v.Temporal, v.Compliance, v.Entropy,
	}
	var out [NumSubScores]float64
	for i, c := range components {
		if c == nil {
			out[i] = NeutralSubScore
		} else {
			out[i] = *c
		}
	}
	return out
}

// RiskAssessment is the sole output contract consumed by reporting and CLI
// layers. Created once per evaluation, never mutated afterward.
type RiskAssessment struct {
	SampleID         string    `json:"sample_id"`
	FHRI             float64   `json:"fhri"` // [0,1], higher = more trustworthy
	PredictedLabel   Label     `json:"predicted_label"`
	Vetoed           bool      `json:"vetoed"`
	VetoReason       string    `json:"veto_reason,omitempty"`
	ThresholdUsed    float64   `json:"threshold_used"`
	ScenarioDetected Scenario  `json:"scenario_detected"`
	Suppressed       bool      `json:"contradiction_suppressed"`
	ComputedAt       time.Time `json:"computed_at"`
}

// EngineParams contains the thresholds and penalty factors for the decision
// engine. The zero value is not valid; start from DefaultEngineParams.
type EngineParams struct {
	// Contradiction-Gate
	SimilarityThreshold float64 `json:"similarity_threshold"`

	// Answer-Evidence Scorer
	TopKPassages int           `json:"top_k_passages"`
	NLITimeout   time.Duration `json:"nli_timeout"`

	// Veto ladder
	VetoThreshold          float64 `json:"veto_threshold"`
	ModerateThreshold      float64 `json:"moderate_threshold"`
	ModeratePenaltyFactor  float64 `json:"moderate_penalty_factor"`
	SoftPenaltyFactor      float64 `json:"soft_penalty_factor"`
	SuppressionSimilarity  float64 `json:"suppression_similarity"`
	SuppressionFactor      float64 `json:"suppression_factor"`
	ContradictionThreshold float64 `json:"contradiction_threshold"`

	// Labeling
	DefaultThreshold float64 `json:"default_threshold"`
}

// DefaultEngineParams returns the standard production parameters.
func DefaultEngineParams() EngineParams {
	return EngineParams{
		SimilarityThreshold:    0.70,
		TopKPassages:           5,
		NLITimeout:             5 * time.Second,
		VetoThreshold:          0.70,
		ModerateThreshold:      0.50,
		ModeratePenaltyFactor:  0.5,
		SoftPenaltyFactor:      0.3,
		SuppressionSimilarity:  0.90,
		SuppressionFactor:      0.30,
		ContradictionThreshold: 0.50,
		DefaultThreshold:       0.50,
	}
}

// ValidationError reports an out-of-range engine parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("engine params validation error [%s]: %s", e.Field, e.Message)
}

// Validate checks parameter ranges before the engine is constructed.
func (p *EngineParams) Validate() error {
	unitInterval := []struct {
		name  string
		value float64
	}{
		{"similarity_threshold", p.SimilarityThreshold},
		{"veto_threshold", p.VetoThreshold},
		{"moderate_threshold", p.ModerateThreshold},
		{"moderate_penalty_factor", p.ModeratePenaltyFactor},
		{"soft_penalty_factor", p.SoftPenaltyFactor},
		{"suppression_similarity", p.SuppressionSimilarity},
		{"suppression_factor", p.SuppressionFactor},
		{"contradiction_threshold", p.ContradictionThreshold},
		{"default_threshold", p.DefaultThreshold},
	}
	for _, f := range unitInterval {
		if f.value < 0 || f.value > 1 {
			return &ValidationError{Field: f.name, Message: "must be in [0, 1]"}
		}
	}
	if p.ModerateThreshold > p.VetoThreshold {
		return &ValidationError{
			Field:   "moderate_threshold",
			Message: fmt.Sprintf("must be <= veto_threshold (%.2f)", p.VetoThreshold),
		}
	}
	if p.TopKPassages <= 0 {
		return &ValidationError{Field: "top_k_passages", Message: "must be positive"}
	}
	if p.NLITimeout <= 0 {
		return &ValidationError{Field: "nli_timeout", Message: "must be positive"}
	}
	return nil
}
