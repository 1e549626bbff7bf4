package nli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/alvintehg/fhri/internal/cache"
)

// CachedClassifier memoizes classification results. Contradiction-pair
// evaluation re-scores the same premise/hypothesis pairs across gate and
// evidence paths, so a small cache saves most duplicate model calls.
type CachedClassifier struct {
	inner Classifier
	cache *cache.LRUWithTTL[string, Scores]
}

// NewCachedClassifier wraps inner with an LRU+TTL result cache.
func NewCachedClassifier(inner Classifier, size int, ttl time.Duration) (*CachedClassifier, error) {
	c, err := cache.NewLRUWithTTL[string, Scores](size, ttl)
	if err != nil {
		return nil, err
	}
	return &CachedClassifier{inner: inner, cache: c}, nil
}

func (c *CachedClassifier) Classify(ctx context.Context, premise, hypothesis string) (Scores, error) {
	key := pairKey(premise, hypothesis)
	if scores, ok := c.cache.Get(key); ok {
		return scores, nil
	}

	scores, err := c.inner.Classify(ctx, premise, hypothesis)
	if err != nil {
		return Scores{}, err // errors are not cached; the backend may recover
	}

	c.cache.Set(key, scores)
	return scores, nil
}

// CacheStats exposes hit/miss counters for observability.
func (c *CachedClassifier) CacheStats() cache.Stats {
	return c.cache.Stats()
}

func pairKey(premise, hypothesis string) string {
	h := sha256.New()
	h.Write([]byte(premise))
	h.Write([]byte{0}) // disambiguate ("ab","c") from ("a","bc")
	h.Write([]byte(hypothesis))
	return hex.EncodeToString(h.Sum(nil))
}
