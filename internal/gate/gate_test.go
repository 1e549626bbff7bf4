package gate

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fixedProvider struct {
	sim float64
	err error
}

func (p *fixedProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	return p.sim, p.err
}

func TestDecide_NoPrevTurn(t *testing.T) {
	g := New(&fixedProvider{sim: 0.9}, 0.70)

	d := g.Decide(context.Background(), "What is AAPL's revenue?", nil)
	if d.ShouldRun {
		t.Error("Expected skip with no prior turn")
	}
	if d.SkipReason != SkipNoPrevTurn {
		t.Errorf("SkipReason = %q, want %q", d.SkipReason, SkipNoPrevTurn)
	}
	if d.Reason != "" {
		t.Errorf("Reason = %q, want empty when skipped", d.Reason)
	}
}

func TestDecide_NoPrevQuestionWithPrevAnswer(t *testing.T) {
	g := New(&fixedProvider{sim: 0.0}, 0.70)

	d := g.Decide(context.Background(), "current question", &PrevTurn{Answer: "prior answer"})
	if !d.ShouldRun {
		t.Error("Expected run when prior answer exists without a question")
	}
	if d.Reason != ReasonNoPrevQuestion {
		t.Errorf("Reason = %q, want %q", d.Reason, ReasonNoPrevQuestion)
	}

	// No question and no answer: nothing to compare
	d = g.Decide(context.Background(), "current question", &PrevTurn{})
	if d.ShouldRun || d.SkipReason != SkipNoPrevTurn {
		t.Errorf("Decision = %+v, want skip with %q", d, SkipNoPrevTurn)
	}
}

func TestDecide_HighSimilarity(t *testing.T) {
	g := New(&fixedProvider{sim: 0.85}, 0.70)

	d := g.Decide(context.Background(), "What was revenue growth?",
		&PrevTurn{Question: "How much did revenue grow?", Answer: "It grew 10%"})
	if !d.ShouldRun {
		t.Error("Expected run for similarity above threshold")
	}
	if d.Reason != ReasonHighSimilarity {
		t.Errorf("Reason = %q, want %q", d.Reason, ReasonHighSimilarity)
	}
	if d.Similarity == nil || *d.Similarity != 0.85 {
		t.Errorf("Similarity = %v, want 0.85", d.Similarity)
	}
}

func TestDecide_EntityOverlapBelowSimilarity(t *testing.T) {
	g := New(&fixedProvider{sim: 0.2}, 0.70)

	d := g.Decide(context.Background(), "Is MSFT overvalued?",
		&PrevTurn{Question: "What did MSFT report last quarter?", Answer: "Record earnings"})
	if !d.ShouldRun {
		t.Error("Expected run on shared ticker despite low similarity")
	}
	if d.Reason != ReasonEntityOverlap {
		t.Errorf("Reason = %q, want %q", d.Reason, ReasonEntityOverlap)
	}
	if !reflect.DeepEqual(d.Overlap.Tickers, []string{"MSFT"}) {
		t.Errorf("Overlap.Tickers = %v, want [MSFT]", d.Overlap.Tickers)
	}
}

func TestDecide_LowSimilarityNoOverlap(t *testing.T) {
	g := New(&fixedProvider{sim: 0.1}, 0.70)

	d := g.Decide(context.Background(), "Who invented the telephone?",
		&PrevTurn{Question: "What moved gold prices today?", Answer: "Flight to safety"})
	if d.ShouldRun {
		t.Error("Expected skip for unrelated questions")
	}
	if d.SkipReason != SkipLowSimilarityNoOverlap {
		t.Errorf("SkipReason = %q, want %q", d.SkipReason, SkipLowSimilarityNoOverlap)
	}
}

func TestDecide_SimilarityUnavailableFallback(t *testing.T) {
	g := New(&fixedProvider{err: errors.New("connection refused")}, 0.70)

	// Overlap present: fall back to the heuristic and run
	d := g.Decide(context.Background(), "Will the fed cut rates in 2025?",
		&PrevTurn{Question: "What did the fed decide in 2025?", Answer: "Rates held"})
	if !d.ShouldRun {
		t.Error("Expected run via entity overlap fallback")
	}
	if d.Reason != ReasonEntityOverlapFallback {
		t.Errorf("Reason = %q, want %q", d.Reason, ReasonEntityOverlapFallback)
	}
	if d.Similarity != nil {
		t.Error("Similarity should be nil when provider failed")
	}

	// No overlap signal either: resolve deterministically to skip, with an
	// explicit reason distinct from "ran and found nothing"
	d = g.Decide(context.Background(), "Who invented the telephone?",
		&PrevTurn{Question: "What moved gold prices today?", Answer: "Flight to safety"})
	if d.ShouldRun {
		t.Error("Expected skip when similarity failed and no overlap")
	}
	if d.SkipReason != SkipSimilarityUnavailableNoOverlap {
		t.Errorf("SkipReason = %q, want %q", d.SkipReason, SkipSimilarityUnavailableNoOverlap)
	}
}

func TestDecide_ExactlyOneReasonPopulated(t *testing.T) {
	g := New(&fixedProvider{sim: 0.85}, 0.70)

	decisions := []Decision{
		g.Decide(context.Background(), "q", nil),
		g.Decide(context.Background(), "q", &PrevTurn{Question: "q2", Answer: "a"}),
		g.Decide(context.Background(), "q", &PrevTurn{Answer: "a"}),
	}
	for i, d := range decisions {
		hasReason := d.Reason != ""
		hasSkip := d.SkipReason != ""
		if hasReason == hasSkip {
			t.Errorf("decision %d: reason=%q skip=%q, want exactly one populated", i, d.Reason, d.SkipReason)
		}
		if d.ShouldRun != hasReason {
			t.Errorf("decision %d: ShouldRun=%v inconsistent with reason %q", i, d.ShouldRun, d.Reason)
		}
	}
}

func TestCounters(t *testing.T) {
	g := New(&fixedProvider{sim: 0.85}, 0.70)

	ctx := context.Background()
	g.Decide(ctx, "q", nil)
	g.Decide(ctx, "q", nil)
	g.Decide(ctx, "q", &PrevTurn{Question: "q2", Answer: "a"})

	runs, skips := g.Counters()
	if runs[ReasonHighSimilarity] != 1 {
		t.Errorf("runs[high_similarity] = %d, want 1", runs[ReasonHighSimilarity])
	}
	if skips[SkipNoPrevTurn] != 2 {
		t.Errorf("skips[no_prev_turn] = %d, want 2", skips[SkipNoPrevTurn])
	}
}

func TestMatchEntities(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		tickers  []string
		terms    []string
		temporal []string
	}{
		{
			name:    "shared ticker",
			a:       "Is AAPL a buy?",
			b:       "What was AAPL's revenue?",
			tickers: []string{"AAPL"},
		},
		{
			name:  "rates group across phrasings",
			a:     "Will the fed raise rates?",
			b:     "What is the current interest rate?",
			terms: []string{"rates"},
		},
		{
			name:     "shared year and quarter",
			a:        "How did Q3 2024 earnings look?",
			b:        "Revenue for Q3 2024?",
			temporal: []string{"2024", "q3"},
		},
		{
			name:  "crypto consensus vocabulary",
			a:     "How does proof of stake work?",
			b:     "Is staking safe?",
			terms: []string{"crypto_consensus"},
		},
		{
			name: "stoplist suppresses question words",
			a:    "WHAT moved WHEN markets fell",
			b:    "WHAT happened WHEN stocks rose",
		},
		{
			name: "fed does not match inside federal",
			a:    "A federated exchange launched",
			b:    "The fed met yesterday",
		},
		{
			name: "no overlap",
			a:    "Who is the CEO of Tesla?",
			b:    "What is the weather like?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := MatchEntities(tt.a, tt.b)
			if !reflect.DeepEqual(o.Tickers, tt.tickers) {
				t.Errorf("Tickers = %v, want %v", o.Tickers, tt.tickers)
			}
			if !reflect.DeepEqual(o.Terms, tt.terms) {
				t.Errorf("Terms = %v, want %v", o.Terms, tt.terms)
			}
			if !reflect.DeepEqual(o.Temporal, tt.temporal) {
				t.Errorf("Temporal = %v, want %v", o.Temporal, tt.temporal)
			}
		})
	}
}
