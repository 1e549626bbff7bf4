package fhri

import (
	"math"
	"testing"

	"github.com/alvintehg/fhri/internal/api"
)

func newTestEngine(t *testing.T, thresholds ThresholdTable) *Engine {
	t.Helper()
	e, err := New(api.DefaultEngineParams(), DefaultFusionWeights(), thresholds)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func ptr(v float64) *float64 { return &v }

func TestAssess_NeutralCaseIdempotent(t *testing.T) {
	e := newTestEngine(t, ThresholdTable{Default: 0.5})

	// All components neutral, no contradiction evidence anywhere: the
	// adjusted value must equal the unadjusted fused base exactly.
	out := e.Assess("s1", Input{Scenario: api.ScenarioDefault})

	if out.FHRI != 0.5 {
		t.Errorf("FHRI = %v, want 0.5 (uniform weights over all-neutral)", out.FHRI)
	}
	if out.Vetoed || out.Suppressed {
		t.Errorf("neutral case set vetoed=%v suppressed=%v", out.Vetoed, out.Suppressed)
	}
	if out.PredictedLabel != api.LabelAccurate {
		t.Errorf("PredictedLabel = %q, want accurate", out.PredictedLabel)
	}
}

func TestAssess_HardVetoHighRisk(t *testing.T) {
	e := newTestEngine(t, ThresholdTable{Default: 0.5})

	in := Input{
		Scenario: api.ScenarioNumericKPI,
		BaseFHRI: ptr(0.8),
		SubScores: api.SubScoreVector{
			Evidence: api.NLISummary{MaxContradiction: 0.71},
		},
	}
	out := e.Assess("s1", in)

	if !out.Vetoed {
		t.Fatal("expected hard veto at contradiction 0.71 in numeric_kpi")
	}
	want := 0.8 * (1 - 0.71)
	if math.Abs(out.FHRI-want) > 1e-12 {
		t.Errorf("FHRI = %v, want exactly %v", out.FHRI, want)
	}
	if out.VetoReason == "" {
		t.Error("veto must carry a reason")
	}
}

func TestAssess_SoftPenaltyStandardRisk(t *testing.T) {
	e := newTestEngine(t, ThresholdTable{Default: 0.1})

	in := Input{
		Scenario: api.ScenarioGeneral,
		BaseFHRI: ptr(0.8),
		SubScores: api.SubScoreVector{
			Evidence: api.NLISummary{MaxContradiction: 0.71},
		},
	}
	out := e.Assess("s1", in)

	if out.Vetoed {
		t.Fatal("standard-risk scenario must never hard-veto")
	}
	want := 0.8 * (1 - 0.71*0.3)
	if math.Abs(out.FHRI-want) > 1e-12 {
		t.Errorf("FHRI = %v, want %v (soft penalty only)", out.FHRI, want)
	}
}

func TestAssess_ModeratePenaltyHighRisk(t *testing.T) {
	e := newTestEngine(t, ThresholdTable{Default: 0.1})

	in := Input{
		Scenario: api.ScenarioRegulatory,
		BaseFHRI: ptr(1.0),
		SubScores: api.SubScoreVector{
			Evidence: api.NLISummary{MaxContradiction: 0.60},
		},
	}
	out := e.Assess("s1", in)

	if out.Vetoed {
		t.Fatal("contradiction 0.60 is below the hard-veto threshold")
	}
	want := 1 - 0.60*0.5
	if math.Abs(out.FHRI-want) > 1e-12 {
		t.Errorf("FHRI = %v, want %v (moderate penalty)", out.FHRI, want)
	}
}

func TestAssess_Suppression(t *testing.T) {
	e := newTestEngine(t, ThresholdTable{Default: 0.1})

	tests := []struct {
		name           string
		similarity     float64
		wantSuppressed bool
		wantCrossTurn  float64
	}{
		{"similarity above cutoff", 0.95, true, 0.85 * 0.3},
		{"similarity below cutoff", 0.80, false, 0.85},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{
				Scenario:               api.ScenarioGeneral,
				BaseFHRI:               ptr(1.0),
				GateRan:                true,
				CrossTurnContradiction: 0.85,
				AnswerSimilarity:       ptr(tt.similarity),
			}
			out := e.Assess("s1", in)

			if out.Suppressed != tt.wantSuppressed {
				t.Errorf("Suppressed = %v, want %v", out.Suppressed, tt.wantSuppressed)
			}
			// Work the suppression back out of the applied soft penalty.
			var wantFactor float64
			if tt.wantCrossTurn >= 0.5 {
				wantFactor = 1 - tt.wantCrossTurn*0.3
			} else {
				wantFactor = 1
			}
			if math.Abs(out.FHRI-wantFactor) > 1e-12 {
				t.Errorf("FHRI = %v, want %v", out.FHRI, wantFactor)
			}
		})
	}
}

func TestAssess_ContradictionParallelAxis(t *testing.T) {
	e := newTestEngine(t, ThresholdTable{Default: 0.5})

	// High fhri, but cross-turn contradiction above the decision boundary:
	// label is contradiction regardless of the threshold comparison.
	in := Input{
		Scenario:               api.ScenarioGeneral,
		BaseFHRI:               ptr(0.95),
		GateRan:                true,
		CrossTurnContradiction: 0.65,
	}
	out := e.Assess("s1", in)
	if out.PredictedLabel != api.LabelContradiction {
		t.Errorf("PredictedLabel = %q, want contradiction", out.PredictedLabel)
	}

	// Numeric contradiction alone also flips the label when the gate ran.
	in = Input{
		Scenario:             api.ScenarioGeneral,
		BaseFHRI:             ptr(0.95),
		GateRan:              true,
		NumericContradiction: true,
	}
	out = e.Assess("s2", in)
	if out.PredictedLabel != api.LabelContradiction {
		t.Errorf("numeric contradiction: PredictedLabel = %q, want contradiction", out.PredictedLabel)
	}

	// Without the gate having run there is no cross-turn axis.
	in.GateRan = false
	out = e.Assess("s3", in)
	if out.PredictedLabel != api.LabelAccurate {
		t.Errorf("gate skipped: PredictedLabel = %q, want accurate", out.PredictedLabel)
	}
}

func TestAssess_HallucinationBelowThreshold(t *testing.T) {
	e := newTestEngine(t, ThresholdTable{Default: 0.5})

	out := e.Assess("s1", Input{Scenario: api.ScenarioGeneral, BaseFHRI: ptr(0.2)})
	if out.PredictedLabel != api.LabelHallucination {
		t.Errorf("PredictedLabel = %q, want hallucination", out.PredictedLabel)
	}
	if out.ThresholdUsed != 0.5 {
		t.Errorf("ThresholdUsed = %v, want 0.5", out.ThresholdUsed)
	}
}

func TestAssess_ScenarioThresholdOverride(t *testing.T) {
	e := newTestEngine(t, ThresholdTable{
		Default:     0.5,
		PerScenario: map[api.Scenario]float64{api.ScenarioRegulatory: 0.8},
	})

	out := e.Assess("s1", Input{Scenario: api.ScenarioRegulatory, BaseFHRI: ptr(0.7)})
	if out.PredictedLabel != api.LabelHallucination {
		t.Errorf("PredictedLabel = %q, want hallucination under the 0.8 override", out.PredictedLabel)
	}
	if out.ThresholdUsed != 0.8 {
		t.Errorf("ThresholdUsed = %v, want 0.8", out.ThresholdUsed)
	}

	out = e.Assess("s2", Input{Scenario: api.ScenarioGeneral, BaseFHRI: ptr(0.7)})
	if out.PredictedLabel != api.LabelAccurate {
		t.Errorf("default threshold: PredictedLabel = %q, want accurate", out.PredictedLabel)
	}
}

func TestFuse(t *testing.T) {
	w := DefaultFusionWeights()
	if got := w.Fuse([api.NumSubScores]float64{1, 1, 1, 1, 1}); got != 1 {
		t.Errorf("Fuse(all ones) = %v, want 1", got)
	}
	if got := w.Fuse([api.NumSubScores]float64{0, 0, 0, 0, 0}); got != 0 {
		t.Errorf("Fuse(all zeros) = %v, want 0", got)
	}
	custom := FusionWeights{1, 0, 0, 0, 0}
	if got := custom.Fuse([api.NumSubScores]float64{0.3, 0.9, 0.9, 0.9, 0.9}); got != 0.3 {
		t.Errorf("Fuse = %v, want 0.3", got)
	}
}

func TestVetoLadderTable(t *testing.T) {
	params := api.DefaultEngineParams()
	tests := []struct {
		name       string
		scenario   api.Scenario
		c          float64
		wantFactor float64
		wantVeto   bool
	}{
		{"high risk strong", api.ScenarioNumericKPI, 0.75, 0.25, true},
		{"high risk moderate", api.ScenarioNumericKPI, 0.55, 1 - 0.55*0.5, false},
		{"high risk low", api.ScenarioNumericKPI, 0.40, 1, false},
		{"standard strong", api.ScenarioCrypto, 0.75, 1 - 0.75*0.3, false},
		{"standard moderate", api.ScenarioCrypto, 0.55, 1 - 0.55*0.3, false},
		{"standard low", api.ScenarioCrypto, 0.40, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rung := vetoLadder[classify(tt.scenario)][bucketize(tt.c, params)]
			factor, vetoed := rung.apply(tt.c, params)
			if math.Abs(factor-tt.wantFactor) > 1e-12 {
				t.Errorf("factor = %v, want %v", factor, tt.wantFactor)
			}
			if vetoed != tt.wantVeto {
				t.Errorf("vetoed = %v, want %v", vetoed, tt.wantVeto)
			}
		})
	}
}
