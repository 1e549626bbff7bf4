package text

import (
	"strings"
	"unicode"
)

// Word-level Jaccard overlap with optional n-gram shingles. Used by the
// contradiction gate's lexical fallback and the fallback NLI scorer, where
// robustness against punctuation/formatting drift matters more than semantics.

// Tokenizer handles tokenization, shingling, and Jaccard similarity.
type Tokenizer struct {
	StopWords   map[string]bool
	ShingleSize int // 1 = unigrams
}

// DefaultStopWords returns common English stop words.
func DefaultStopWords() map[string]bool {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "will", "with",
	}
	stopWords := make(map[string]bool, len(words))
	for _, w := range words {
		stopWords[w] = true
	}
	return stopWords
}

// NewTokenizer creates a tokenizer. Pass useStopWords=false to keep every
// token (needed when short function words carry signal, e.g. "up"/"down").
func NewTokenizer(useStopWords bool, shingleSize int) *Tokenizer {
	var stopWords map[string]bool
	if useStopWords {
		stopWords = DefaultStopWords()
	}
	if shingleSize <= 0 {
		shingleSize = 1
	}
	return &Tokenizer{StopWords: stopWords, ShingleSize: shingleSize}
}

// Tokenize splits text into lowercase words (Unicode-aware). Letters and
// digits are kept; everything else delimits.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var word strings.Builder

	flush := func() {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		if t.StopWords == nil || !t.StopWords[w] {
			tokens = append(tokens, w)
		}
		word.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			word.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// Shingles creates n-gram shingles from tokens. Fewer tokens than the
// shingle size collapse to a single joined shingle.
func (t *Tokenizer) Shingles(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	if len(tokens) < t.ShingleSize {
		return []string{strings.Join(tokens, " ")}
	}

	shingles := make([]string, 0, len(tokens)-t.ShingleSize+1)
	for i := 0; i+t.ShingleSize <= len(tokens); i++ {
		shingles = append(shingles, strings.Join(tokens[i:i+t.ShingleSize], " "))
	}
	return shingles
}

// Jaccard computes |A∩B| / |A∪B| over two shingle sets, in [0, 1].
func (t *Tokenizer) Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	setA := make(map[string]bool, len(a))
	for _, s := range a {
		setA[s] = true
	}

	union := make(map[string]bool, len(a)+len(b))
	for s := range setA {
		union[s] = true
	}

	intersection := 0
	seen := make(map[string]bool, len(b))
	for _, s := range b {
		if seen[s] {
			continue
		}
		seen[s] = true
		if setA[s] {
			intersection++
		}
		union[s] = true
	}

	return float64(intersection) / float64(len(union))
}

// Overlap tokenizes, shingles, and computes Jaccard in one call.
func (t *Tokenizer) Overlap(text1, text2 string) float64 {
	s1 := t.Shingles(t.Tokenize(text1))
	s2 := t.Shingles(t.Tokenize(text2))
	return t.Jaccard(s1, s2)
}
