// Package salience extracts the tokens of a text that compression must
// not lose: numbers, proper nouns, and acronyms. The extracted set is
// used by the compression quality gate to measure how much of the
// original survived summarization.
package salience

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// MaxTokens bounds the total extracted set.
	MaxTokens = 50
	// maxProperNouns bounds the capitalized-word heuristic.
	maxProperNouns = 10
	// maxAcronyms bounds the all-caps heuristic.
	maxAcronyms = 5
)

var numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Extract returns the salient tokens of text, deduplicated and capped
// at MaxTokens. Order of the result is not significant.
func Extract(text string) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(tok string) {
		if tok == "" || seen[tok] || len(out) >= MaxTokens {
			return
		}
		seen[tok] = true
		out = append(out, tok)
	}

	// Numeric literals, integers and decimals.
	for _, n := range numberRe.FindAllString(text, -1) {
		add(n)
	}

	properNouns := 0
	acronyms := 0
	for _, raw := range strings.Fields(text) {
		word := strings.TrimFunc(raw, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if len(word) < 2 || stopWords[strings.ToLower(word)] {
			continue
		}
		if isAcronym(word) {
			if acronyms < maxAcronyms && !seen[word] {
				add(word)
				acronyms++
			}
			continue
		}
		if isCapitalized(word) && properNouns < maxProperNouns && !seen[word] {
			add(word)
			properNouns++
		}
	}

	return out
}

// isAcronym reports whether word is an all-caps token of at least two
// letters, e.g. "API" or "HTTP".
func isAcronym(word string) bool {
	letters := 0
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
		if !unicode.IsUpper(r) {
			return false
		}
		letters++
	}
	return letters >= 2
}

// isCapitalized reports whether word looks like a proper noun: leading
// uppercase letter followed by at least one lowercase letter.
func isCapitalized(word string) bool {
	runes := []rune(word)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

// stopWords are common words excluded from the proper-noun heuristic,
// which would otherwise pick up sentence-initial capitals.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"should": true, "could": true, "may": true, "might": true, "must": true,
	"can": true, "this": true, "that": true, "these": true, "those": true,
	"it": true, "its": true, "as": true, "which": true, "who": true,
	"when": true, "where": true, "why": true, "how": true,
}
