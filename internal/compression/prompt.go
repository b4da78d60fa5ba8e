package compression

import (
	"fmt"
	"math"
)

// promptTemplate is the fixed instruction template for all backends.
// Substitutions: content type, target token budget, original token
// count, content.
const promptTemplate = `You are compacting %s content for a bounded context window.

Rewrite the content below in at most %d tokens. It is currently %d tokens.

Requirements:
- Preserve all names, numbers, dates, and decisions exactly
- Preserve chronological order
- Remove redundancy and filler words
- Keep technical terms and identifiers intact

Output ONLY the compacted content, with no preamble, explanation, or meta-commentary.

Content:
%s`

// BuildPrompt renders the compression prompt. The token target is
// ceil(originalTokens / targetRatio).
func BuildPrompt(content string, originalTokens int, targetRatio float64, contentType string) string {
	if contentType == "" {
		contentType = string(ContentTypePlain)
	}
	target := int(math.Ceil(float64(originalTokens) / targetRatio))
	return fmt.Sprintf(promptTemplate, contentType, target, originalTokens, content)
}
