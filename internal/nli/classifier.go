package nli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnavailable signals that the NLI capability could not be reached.
// Callers substitute neutral defaults; this error never escalates to a
// sample-level failure.
var ErrUnavailable = errors.New("nli classifier unavailable")

// Scores holds the three-way inference distribution for a premise/hypothesis
// pair. The three probabilities sum to approximately 1.
type Scores struct {
	Entailment    float64 `json:"entailment"`
	Neutral       float64 `json:"neutral"`
	Contradiction float64 `json:"contradiction"`
}

// Classifier scores the inference relation between a premise and hypothesis.
type Classifier interface {
	Classify(ctx context.Context, premise, hypothesis string) (Scores, error)
}

// HTTPClassifier calls an external NLI model service (e.g. a
// roberta-large-mnli server) over HTTP. Calls are rate-limited client-side so
// batch evaluation cannot overwhelm the model backend.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewHTTPClassifier creates a classifier for the given endpoint. qps bounds
// the request rate; zero or negative disables limiting.
func NewHTTPClassifier(endpoint string, timeout time.Duration, qps int) *HTTPClassifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	var limiter *rate.Limiter
	if qps > 0 {
		limiter = rate.NewLimiter(rate.Limit(qps), qps)
	}
	return &HTTPClassifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		limiter:  limiter,
	}
}

type classifyRequest struct {
	Premise    string `json:"premise"`
	Hypothesis string `json:"hypothesis"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, premise, hypothesis string) (Scores, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Scores{}, fmt.Errorf("nli rate limit wait: %w", err)
		}
	}

	payload, err := json.Marshal(classifyRequest{Premise: premise, Hypothesis: hypothesis})
	if err != nil {
		return Scores{}, fmt.Errorf("marshal nli request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Scores{}, fmt.Errorf("build nli request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Scores{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Scores{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var scores Scores
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return Scores{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	return scores, nil
}
