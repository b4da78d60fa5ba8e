package tokens

import (
	"sync"

	tokenizer "github.com/qhenkart/anthropic-tokenizer-go"
)

var (
	anthropicTok     *tokenizer.Tokenizer
	anthropicTokOnce sync.Once
	anthropicTokErr  error
)

func anthropicTokenizer() (*tokenizer.Tokenizer, error) {
	anthropicTokOnce.Do(func() {
		anthropicTok, anthropicTokErr = tokenizer.New()
	})
	return anthropicTok, anthropicTokErr
}

// Exact estimates token counts with the Anthropic sub-word tokenizer.
// The tokenizer is initialized once and shared; if initialization
// fails, Exact degrades to the Approx heuristic so callers never see
// an error from counting.
type Exact struct{}

// Estimate implements Estimator.
func (Exact) Estimate(text string) int {
	if text == "" {
		return 0
	}
	t, err := anthropicTokenizer()
	if err != nil {
		return Approx{}.Estimate(text)
	}
	return t.Tokens(text)
}
