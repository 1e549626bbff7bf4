package numeric

import (
	"regexp"
	"strconv"
	"strings"
)

// Lexical extraction of percentage literals and directional language from
// answer text. This is a coarse heuristic, not numeric reconciliation: a text
// mentioning both directions ("grew last quarter but fell this month") is not
// disambiguated, and magnitudes are compared across all extracted pairs even
// when they refer to unrelated quantities. The calibration threshold is fit
// with this behavior in place, so it must not be "fixed" in isolation.

var percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:%|percent(?:age points?)?)`)

var growthTerms = []string{
	"grew", "increased", "rose", "up", "gained", "bullish", "higher",
}

var declineTerms = []string{
	"shrank", "decreased", "fell", "down", "lost", "dropped", "declined",
	"bearish", "lower",
}

// Claims holds the numeric and directional assertions extracted from a text.
type Claims struct {
	Percents []float64 `json:"percents,omitempty"`
	Growth   bool      `json:"growth"`
	Decline  bool      `json:"decline"`
}

// ExtractClaims parses percentage literals and directional vocabulary.
func ExtractClaims(s string) Claims {
	var c Claims

	for _, m := range percentPattern.FindAllStringSubmatch(s, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue // regexp guarantees a parseable literal, but stay safe
		}
		c.Percents = append(c.Percents, v)
	}

	words := fieldsLower(s)
	for _, w := range words {
		for _, g := range growthTerms {
			if w == g {
				c.Growth = true
			}
		}
		for _, d := range declineTerms {
			if w == d {
				c.Decline = true
			}
		}
	}

	return c
}

func fieldsLower(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.Trim(f, ".,;:!?()\"'"))
	}
	return out
}

// MismatchResult flags incompatible numeric/directional claims between two
// answers.
type MismatchResult struct {
	SignDiffers          bool `json:"sign_differs"`
	MagnitudeDiffers     bool `json:"magnitude_differs"`
	NumericContradiction bool `json:"numeric_contradiction"`
}

// MagnitudeTolerance is the relative divergence (fraction of the larger
// magnitude) beyond which two percentages are considered incompatible.
const MagnitudeTolerance = 0.5

// Compare determines whether two answers make incompatible claims.
// SignDiffers fires when one text contains only growth vocabulary and the
// other only decline vocabulary. MagnitudeDiffers fires when both texts
// contain at least one percentage and any cross-text pair diverges by more
// than half the larger magnitude.
func Compare(prev, curr string) MismatchResult {
	a := ExtractClaims(prev)
	b := ExtractClaims(curr)

	var res MismatchResult

	// Pure-direction conflict only: mixed-direction texts are ambiguous and
	// left to the NLI signal.
	if (a.Growth && !a.Decline && b.Decline && !b.Growth) ||
		(a.Decline && !a.Growth && b.Growth && !b.Decline) {
		res.SignDiffers = true
	}

	if len(a.Percents) > 0 && len(b.Percents) > 0 {
		for _, pa := range a.Percents {
			for _, pb := range b.Percents {
				if diverges(pa, pb) {
					res.MagnitudeDiffers = true
				}
			}
		}
	}

	res.NumericContradiction = res.SignDiffers || res.MagnitudeDiffers
	return res
}

func diverges(a, b float64) bool {
	larger := a
	if b > larger {
		larger = b
	}
	if larger == 0 {
		return false
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff > MagnitudeTolerance*larger
}
