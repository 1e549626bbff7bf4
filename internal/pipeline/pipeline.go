// Package pipeline orchestrates one sample's evaluation: gate decision,
// cross-turn contradiction signals, evidence scoring, and the composite risk
// decision. Every sample yields a RiskAssessment; signal failures degrade to
// neutral values instead of aborting.
package pipeline

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/alvintehg/fhri/internal/api"
	"github.com/alvintehg/fhri/internal/embed"
	"github.com/alvintehg/fhri/internal/evidence"
	"github.com/alvintehg/fhri/internal/fhri"
	"github.com/alvintehg/fhri/internal/gate"
	"github.com/alvintehg/fhri/internal/metrics"
	"github.com/alvintehg/fhri/internal/nli"
	"github.com/alvintehg/fhri/internal/numeric"
	"github.com/alvintehg/fhri/internal/pairstore"
)

// Request is one evaluation unit: the sample, its externally-computed
// sub-scores (any subset may be absent), and an optional precomputed base
// FHRI value. When BaseFHRI is nil the engine fuses the sub-scores itself.
type Request struct {
	Sample    api.Sample         `json:"sample"`
	SubScores api.SubScoreVector `json:"sub_scores"`
	BaseFHRI  *float64           `json:"base_fhri,omitempty"`
}

// Evaluator wires the scoring components together. Safe for concurrent use;
// the only shared mutable state is the pairstore.
type Evaluator struct {
	gate     *gate.Gate
	evidence *evidence.Scorer
	nli      nli.Classifier
	sim      embed.Provider
	engine   *fhri.Engine
	store    pairstore.Store
	metrics  *metrics.Metrics
	kpis     *metrics.KPITracker
	params   api.EngineParams
	tracer   trace.Tracer
}

// Config carries the evaluator's collaborators. Metrics may be nil (e.g. in
// the calibration CLI, which has no metrics endpoint).
type Config struct {
	Gate       *gate.Gate
	Evidence   *evidence.Scorer
	NLI        nli.Classifier
	Similarity embed.Provider
	Engine     *fhri.Engine
	Store      pairstore.Store
	Metrics    *metrics.Metrics
	KPIs       *metrics.KPITracker
	Params     api.EngineParams
}

// NewEvaluator assembles an evaluator from its components.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{
		gate:     cfg.Gate,
		evidence: cfg.Evidence,
		nli:      cfg.NLI,
		sim:      cfg.Similarity,
		engine:   cfg.Engine,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		kpis:     cfg.KPIs,
		params:   cfg.Params,
		tracer:   otel.Tracer("fhri/pipeline"),
	}
}

// Evaluate scores one sample end to end. Samples sharing a
// contradiction_pair_id must be evaluated in conversational order; the prior
// turn is looked up before, and the current turn recorded after, the
// decision.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) api.RiskAssessment {
	start := time.Now()
	scenario := api.ParseScenario(req.Sample.Scenario)

	ctx, span := e.tracer.Start(ctx, "pipeline.evaluate",
		trace.WithAttributes(
			attribute.String("sample.id", req.Sample.ID),
			attribute.String("sample.scenario", string(scenario)),
		))
	defer span.End()

	prev := e.lookupPrevTurn(ctx, req.Sample.ContradictionPairID)

	var gatePrev *gate.PrevTurn
	if prev != nil {
		gatePrev = &gate.PrevTurn{Question: prev.Question, Answer: prev.Answer}
	}
	decision := e.gate.Decide(ctx, req.Sample.Question, gatePrev)
	e.recordGateDecision(decision)
	span.SetAttributes(attribute.Bool("gate.should_run", decision.ShouldRun))

	in := fhri.Input{
		SubScores: req.SubScores,
		Scenario:  scenario,
		BaseFHRI:  req.BaseFHRI,
		GateRan:   decision.ShouldRun,
	}

	if decision.ShouldRun && prev != nil {
		in.CrossTurnContradiction = e.crossTurnContradiction(ctx, prev.Answer, req.Sample.Answer)
		in.NumericContradiction = numeric.Compare(prev.Answer, req.Sample.Answer).NumericContradiction
		in.AnswerSimilarity = e.answerSimilarity(ctx, prev.Answer, req.Sample.Answer)
		in.SubScores.NumericMismatch = in.NumericContradiction
	}

	if e.evidence != nil {
		in.SubScores.Evidence = e.evidence.Score(ctx, req.Sample.Answer, req.Sample.Passages)
		if e.metrics != nil && in.SubScores.Evidence.PassagesSkipped > 0 {
			e.metrics.PassagesSkipped.Add(float64(in.SubScores.Evidence.PassagesSkipped))
		}
	}

	assessment := e.engine.Assess(req.Sample.ID, in)

	e.recordTurn(ctx, req.Sample)
	e.recordAssessment(assessment, time.Since(start))
	span.SetAttributes(
		attribute.Float64("fhri", assessment.FHRI),
		attribute.String("label", string(assessment.PredictedLabel)),
	)
	return assessment
}

// EvaluateBatch scores independent samples over a worker pool, preserving
// input order in the output. Callers must not put two samples of the same
// contradiction pair in one batch; pair turns need sequential evaluation.
func (e *Evaluator) EvaluateBatch(ctx context.Context, reqs []Request, workers int) []api.RiskAssessment {
	if workers <= 0 {
		workers = 4
	}
	if workers > len(reqs) {
		workers = len(reqs)
	}

	out := make([]api.RiskAssessment, len(reqs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = e.Evaluate(ctx, reqs[i])
			}
		}()
	}
	for i := range reqs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}

// lookupPrevTurn fetches the most recent prior turn for the pair. Store
// failures degrade to "no prior turn" rather than failing the sample.
func (e *Evaluator) lookupPrevTurn(ctx context.Context, pairID string) *pairstore.Turn {
	if pairID == "" || e.store == nil {
		return nil
	}
	turn, err := e.store.Latest(ctx, pairID)
	if err != nil {
		return nil
	}
	return turn
}

// crossTurnContradiction runs NLI with the prior answer as premise and the
// current answer as hypothesis. Failures count as no evidence.
func (e *Evaluator) crossTurnContradiction(ctx context.Context, prevAnswer, currAnswer string) float64 {
	if e.nli == nil || prevAnswer == "" || currAnswer == "" {
		return api.NeutralNLIScore
	}
	callCtx, cancel := context.WithTimeout(ctx, e.params.NLITimeout)
	defer cancel()

	scores, err := e.nli.Classify(callCtx, prevAnswer, currAnswer)
	if err != nil {
		if e.metrics != nil {
			e.metrics.NLIFailures.Inc()
		}
		return api.NeutralNLIScore
	}
	return scores.Contradiction
}

// answerSimilarity computes the answer-to-answer similarity used by
// false-positive suppression. A failed provider yields nil, which disables
// suppression for this sample.
func (e *Evaluator) answerSimilarity(ctx context.Context, prevAnswer, currAnswer string) *float64 {
	if e.sim == nil {
		return nil
	}
	sim, err := e.sim.Similarity(ctx, prevAnswer, currAnswer)
	if err != nil {
		return nil
	}
	return &sim
}

// recordTurn appends the current turn so later samples in the pair can look
// it up.
func (e *Evaluator) recordTurn(ctx context.Context, s api.Sample) {
	if s.ContradictionPairID == "" || e.store == nil {
		return
	}
	// Append failure loses one turn of history but must not fail the sample.
	_ = e.store.Append(ctx, pairstore.Turn{
		PairID:   s.ContradictionPairID,
		SampleID: s.ID,
		Question: s.Question,
		Answer:   s.Answer,
	})
}

func (e *Evaluator) recordGateDecision(d gate.Decision) {
	if e.metrics == nil {
		return
	}
	if d.ShouldRun {
		e.metrics.GateRuns.WithLabelValues(string(d.Reason)).Inc()
	} else {
		e.metrics.GateSkips.WithLabelValues(string(d.SkipReason)).Inc()
	}
}

func (e *Evaluator) recordAssessment(a api.RiskAssessment, elapsed time.Duration) {
	if e.kpis != nil {
		e.kpis.Observe(string(a.PredictedLabel), a.Vetoed, a.Suppressed)
	}
	if e.metrics == nil {
		return
	}
	e.metrics.AssessmentsTotal.WithLabelValues(string(a.PredictedLabel), string(a.ScenarioDetected)).Inc()
	if a.Vetoed {
		e.metrics.Vetoes.Inc()
	}
	if a.Suppressed {
		e.metrics.Suppressions.Inc()
	}
	e.metrics.AssessLatency.Observe(elapsed.Seconds())
}
