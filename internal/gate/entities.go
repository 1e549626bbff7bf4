package gate

import (
	"regexp"
	"sort"
	"strings"
)

// Lexical entity matching between two questions: shared ticker-like tokens,
// shared canonical financial terms, and shared temporal qualifiers. This is
// the cheap relevance signal used when embedding similarity is below
// threshold or unavailable.

var tickerPattern = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// Uppercase tokens that look like tickers but are ordinary words in
// question text.
var tickerStoplist = map[string]bool{
	"THE": true, "AND": true, "FOR": true, "ARE": true, "DID": true,
	"HAS": true, "HOW": true, "WHAT": true, "WHEN": true, "WHY": true,
	"WILL": true, "WAS": true, "NOT": true,
}

// Canonical financial-term groups: any phrase in a group maps to the group
// name, so "fed" in one question matches "interest rates" in the other.
var termGroups = map[string][]string{
	"rates": {
		"interest rate", "interest rates", "rate hike", "rate cut",
		"federal reserve", "fed", "basis points",
	},
	"inflation": {
		"inflation", "deflation", "cpi", "ppi", "consumer price",
	},
	"eps": {
		"eps", "earnings per share", "earnings",
	},
	"crypto_consensus": {
		"proof of stake", "proof of work", "staking", "mining",
		"consensus", "validator",
	},
}

var (
	yearPattern    = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	quarterPattern = regexp.MustCompile(`(?i)\b(?:q[1-4]|(?:first|second|third|fourth) quarter)\b`)
)

var relativeTimePhrases = []string{
	"last year", "this year", "next year",
	"last quarter", "this quarter", "next quarter",
	"last month", "this month",
	"year-to-date", "ytd",
}

// Overlap lists the entities shared between two questions.
type Overlap struct {
	Tickers  []string `json:"tickers,omitempty"`
	Terms    []string `json:"terms,omitempty"`
	Temporal []string `json:"temporal,omitempty"`
}

// Any reports whether at least one entity is shared.
func (o Overlap) Any() bool {
	return len(o.Tickers) > 0 || len(o.Terms) > 0 || len(o.Temporal) > 0
}

// MatchEntities finds entities common to both questions.
func MatchEntities(a, b string) Overlap {
	return Overlap{
		Tickers:  intersect(extractTickers(a), extractTickers(b)),
		Terms:    intersect(extractTerms(a), extractTerms(b)),
		Temporal: intersect(extractTemporal(a), extractTemporal(b)),
	}
}

func extractTickers(s string) map[string]bool {
	out := make(map[string]bool)
	for _, m := range tickerPattern.FindAllString(s, -1) {
		if !tickerStoplist[m] {
			out[m] = true
		}
	}
	return out
}

func extractTerms(s string) map[string]bool {
	lower := strings.ToLower(s)
	out := make(map[string]bool)
	for group, phrases := range termGroups {
		for _, p := range phrases {
			if containsWord(lower, p) {
				out[group] = true
				break
			}
		}
	}
	return out
}

// containsWord matches a phrase at word boundaries, so "fed" does not match
// inside "federal" (the group catches "federal reserve" separately).
func containsWord(haystack, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		beforeOK := start == 0 || !isWordChar(haystack[start-1])
		afterOK := end == len(haystack) || !isWordChar(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func extractTemporal(s string) map[string]bool {
	out := make(map[string]bool)
	for _, m := range yearPattern.FindAllString(s, -1) {
		out[m] = true
	}
	for _, m := range quarterPattern.FindAllString(s, -1) {
		out[strings.ToLower(m)] = true
	}
	lower := strings.ToLower(s)
	for _, p := range relativeTimePhrases {
		if strings.Contains(lower, p) {
			out[p] = true
		}
	}
	return out
}

func intersect(a, b map[string]bool) []string {
	var out []string
	for k := range a {
		if b[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
