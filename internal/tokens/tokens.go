// Package tokens provides token counting for compression budgeting.
//
// Two estimators are available: Approx, a fast length-based heuristic,
// and Exact, which runs the Anthropic sub-word tokenizer. Both are
// monotonic in input length for fixed content style, which the ratio
// gate in internal/compression relies on.
package tokens

// Estimator counts tokens in text. Implementations are pure: no side
// effects, no failure modes. Estimate always returns a value >= 0.
type Estimator interface {
	Estimate(text string) int
}

// Approx estimates token counts as ceil(len(text) / 4), the common
// chars-per-token heuristic for English prose.
type Approx struct{}

// Estimate implements Estimator.
func (Approx) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
