package gate

import (
	"context"
	"sync"

	"github.com/alvintehg/fhri/internal/embed"
)

// The Contradiction-Gate decides, per sample, whether the cross-turn
// contradiction check is worth the cost of running the NLI model. It is a
// pure decision function over the current question and the most recent prior
// turn; similarity-provider failures degrade to the entity-overlap heuristic
// instead of failing the sample.

// Reason explains why the contradiction check should run.
type Reason string

const (
	ReasonHighSimilarity        Reason = "high_similarity"
	ReasonEntityOverlap         Reason = "entity_overlap"
	ReasonEntityOverlapFallback Reason = "entity_overlap_fallback"
	ReasonNoPrevQuestion        Reason = "no_prev_question_but_has_prev_answer"
)

// SkipReason explains why the contradiction check was skipped. Recorded
// explicitly so an audit can distinguish "skipped" from "ran and found
// nothing".
type SkipReason string

const (
	SkipNoPrevTurn                     SkipReason = "no_prev_turn"
	SkipLowSimilarityNoOverlap         SkipReason = "low_similarity_no_entity_overlap"
	SkipSimilarityUnavailableNoOverlap SkipReason = "similarity_unavailable_no_entity_overlap"
)

// Decision is the per-pair gate outcome. Exactly one of Reason/SkipReason is
// populated.
type Decision struct {
	ShouldRun  bool       `json:"should_run"`
	Reason     Reason     `json:"reason,omitempty"`
	SkipReason SkipReason `json:"skip_reason,omitempty"`
	Similarity *float64   `json:"similarity,omitempty"` // nil if not computed or provider failed
	Overlap    Overlap    `json:"overlap"`
}

// PrevTurn is the most recent prior turn of a contradiction pair.
type PrevTurn struct {
	Question string
	Answer   string
}

// Gate decides whether to run cross-turn contradiction checks.
type Gate struct {
	sim       embed.Provider
	threshold float64

	mu    sync.Mutex
	runs  map[Reason]int64
	skips map[SkipReason]int64
}

// New creates a gate. threshold is the minimum question similarity that
// triggers the check without consulting entity overlap.
func New(sim embed.Provider, threshold float64) *Gate {
	return &Gate{
		sim:       sim,
		threshold: threshold,
		runs:      make(map[Reason]int64),
		skips:     make(map[SkipReason]int64),
	}
}

// Decide returns the gate decision for the current question against the
// prior turn (nil if the sample has no prior turn).
func (g *Gate) Decide(ctx context.Context, currQuestion string, prev *PrevTurn) Decision {
	d := g.decide(ctx, currQuestion, prev)

	g.mu.Lock()
	if d.ShouldRun {
		g.runs[d.Reason]++
	} else {
		g.skips[d.SkipReason]++
	}
	g.mu.Unlock()

	return d
}

func (g *Gate) decide(ctx context.Context, currQuestion string, prev *PrevTurn) Decision {
	if prev == nil {
		return Decision{ShouldRun: false, SkipReason: SkipNoPrevTurn}
	}

	if prev.Question == "" {
		// Cannot judge relevance without a question; err toward running when
		// there is a prior answer to compare against.
		if prev.Answer != "" {
			return Decision{ShouldRun: true, Reason: ReasonNoPrevQuestion}
		}
		return Decision{ShouldRun: false, SkipReason: SkipNoPrevTurn}
	}

	overlap := MatchEntities(prev.Question, currQuestion)

	sim, err := g.sim.Similarity(ctx, prev.Question, currQuestion)
	if err != nil {
		if overlap.Any() {
			return Decision{ShouldRun: true, Reason: ReasonEntityOverlapFallback, Overlap: overlap}
		}
		return Decision{ShouldRun: false, SkipReason: SkipSimilarityUnavailableNoOverlap, Overlap: overlap}
	}

	if sim >= g.threshold {
		return Decision{ShouldRun: true, Reason: ReasonHighSimilarity, Similarity: &sim, Overlap: overlap}
	}

	if overlap.Any() {
		return Decision{ShouldRun: true, Reason: ReasonEntityOverlap, Similarity: &sim, Overlap: overlap}
	}

	return Decision{ShouldRun: false, SkipReason: SkipLowSimilarityNoOverlap, Similarity: &sim, Overlap: overlap}
}

// Counters returns per-reason decision counts for observability.
func (g *Gate) Counters() (runs map[Reason]int64, skips map[SkipReason]int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	runs = make(map[Reason]int64, len(g.runs))
	for k, v := range g.runs {
		runs[k] = v
	}
	skips = make(map[SkipReason]int64, len(g.skips))
	for k, v := range g.skips {
		skips[k] = v
	}
	return runs, skips
}
