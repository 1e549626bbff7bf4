package api

import (
	"errors"
	"testing"
)

func TestParseScenario(t *testing.T) {
	tests := []struct {
		tag  string
		want Scenario
	}{
		{"numeric_kpi", ScenarioNumericKPI},
		{"regulatory", ScenarioRegulatory},
		{"default", ScenarioDefault},
		{"", ScenarioDefault},
		{"unknown_tag", ScenarioDefault},
		{"NUMERIC_KPI", ScenarioDefault}, // tags are case-sensitive
	}
	for _, tt := range tests {
		if got := ParseScenario(tt.tag); got != tt.want {
			t.Errorf("ParseScenario(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestScenarioVocabulary(t *testing.T) {
	vocab := ScenarioVocabulary()
	if len(vocab) != 10 {
		t.Fatalf("vocabulary has %d tags, want 10", len(vocab))
	}
	if vocab[len(vocab)-1] != ScenarioDefault {
		t.Error("default must be the last vocabulary entry")
	}
	seen := make(map[Scenario]bool)
	for _, s := range vocab {
		if seen[s] {
			t.Errorf("duplicate vocabulary entry %q", s)
		}
		seen[s] = true
	}
}

func TestNormalized(t *testing.T) {
	g := 0.9
	v := SubScoreVector{Groundedness: &g}
	out := v.Normalized()

	if out[0] != 0.9 {
		t.Errorf("present component = %v, want 0.9", out[0])
	}
	for i := 1; i < NumSubScores; i++ {
		if out[i] != NeutralSubScore {
			t.Errorf("absent component[%d] = %v, want neutral %v", i, out[i], NeutralSubScore)
		}
	}
}

func TestValidate(t *testing.T) {
	p := DefaultEngineParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("default params must validate, got %v", err)
	}

	p = DefaultEngineParams()
	p.VetoThreshold = 1.5
	assertValidationError(t, p.Validate(), "veto_threshold")

	p = DefaultEngineParams()
	p.ModerateThreshold = 0.8 // above veto threshold
	assertValidationError(t, p.Validate(), "moderate_threshold")

	p = DefaultEngineParams()
	p.TopKPassages = 0
	assertValidationError(t, p.Validate(), "top_k_passages")

	p = DefaultEngineParams()
	p.NLITimeout = 0
	assertValidationError(t, p.Validate(), "nli_timeout")
}

func assertValidationError(t *testing.T, err error, field string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation error for %s", field)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if verr.Field != field {
		t.Errorf("error field = %q, want %q", verr.Field, field)
	}
}
