package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alvintehg/fhri/pkg/text"
)

// ErrUnavailable signals that the embedding capability could not be reached.
// Callers degrade to the lexical overlap heuristic rather than failing the
// sample.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Provider produces a semantic similarity score in [0, 1] between two spans.
type Provider interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// HTTPProvider calls an external sentence-embedding service over HTTP.
// The service contract is POST {text_a, text_b} -> {similarity}.
type HTTPProvider struct {
	endpoint string
	client   *http.Client
}

// NewHTTPProvider creates a provider for the given similarity endpoint.
func NewHTTPProvider(endpoint string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type similarityRequest struct {
	TextA string `json:"text_a"`
	TextB string `json:"text_b"`
}

type similarityResponse struct {
	Similarity float64 `json:"similarity"`
}

func (p *HTTPProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	payload, err := json.Marshal(similarityRequest{TextA: a, TextB: b})
	if err != nil {
		return 0, fmt.Errorf("marshal similarity request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build similarity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out similarityResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	sim := out.Similarity
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return sim, nil
}

// LexicalProvider approximates semantic similarity with token-level Jaccard
// overlap. It never fails, which makes it the terminal fallback in the
// degradation chain.
type LexicalProvider struct {
	tok *text.Tokenizer
}

// NewLexicalProvider creates a provider using unigram Jaccard overlap.
// Stop words are kept: in short financial questions, words like "up" and
// "down" carry signal.
func NewLexicalProvider() *LexicalProvider {
	return &LexicalProvider{tok: text.NewTokenizer(false, 1)}
}

func (p *LexicalProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	return p.tok.Overlap(a, b), nil
}
