// Package tokens provides the token accounting used for context budgeting.
package tokens

import "unicode/utf8"

// CharsPerToken is the assumed character-to-token ratio. Four characters per
// token is the usual heuristic for English prose under BPE tokenizers.
const CharsPerToken = 4

// Estimate returns the approximate token count of text, rounding up so
// budget checks err on the side of staying under.
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + CharsPerToken - 1) / CharsPerToken
}

// CharBudget converts a token budget to the equivalent character allowance.
func CharBudget(budget int) int {
	if budget <= 0 {
		return 0
	}
	return budget * CharsPerToken
}
