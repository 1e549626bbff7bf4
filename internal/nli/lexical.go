package nli

import (
	"context"
	"strings"

	"github.com/alvintehg/fhri/internal/numeric"
	"github.com/alvintehg/fhri/pkg/text"
)

// LexicalClassifier approximates NLI with lexical overlap. It exists for
// smoke testing and as the terminal fallback when no model endpoint is
// configured; the production path uses a transformer NLI service via
// HTTPClassifier.
//
// Entailment: Jaccard overlap, penalized when the hypothesis is much longer
// than the premise, with a bonus for exact substring containment.
// Contradiction: driven by incompatible numeric/directional claims.
type LexicalClassifier struct {
	tok *text.Tokenizer
}

// NewLexicalClassifier creates the fallback classifier.
func NewLexicalClassifier() *LexicalClassifier {
	return &LexicalClassifier{tok: text.NewTokenizer(false, 1)}
}

func (l *LexicalClassifier) Classify(ctx context.Context, premise, hypothesis string) (Scores, error) {
	if premise == "" || hypothesis == "" {
		return Scores{Neutral: 1.0}, nil
	}

	overlap := l.tok.Overlap(premise, hypothesis)

	// Hypotheses much longer than their premise are rarely entailed.
	lengthPenalty := 1.0
	if ratio := float64(len(hypothesis)) / float64(len(premise)); ratio > 1.5 {
		lengthPenalty = 1.0 / ratio
	}

	entailment := overlap * lengthPenalty
	if strings.Contains(strings.ToLower(premise), strings.ToLower(hypothesis)) {
		entailment += 0.2
	}
	if entailment > 1.0 {
		entailment = 1.0
	}

	contradiction := 0.0
	if numeric.Compare(premise, hypothesis).NumericContradiction {
		// High lexical overlap plus conflicting claims is the strongest
		// lexical contradiction signal available.
		contradiction = 0.6 + 0.3*overlap
		if entailment > 1.0-contradiction {
			entailment = 1.0 - contradiction
		}
	}

	neutral := 1.0 - entailment - contradiction
	if neutral < 0 {
		neutral = 0
	}

	return Scores{
		Entailment:    entailment,
		Neutral:       neutral,
		Contradiction: contradiction,
	}, nil
}
