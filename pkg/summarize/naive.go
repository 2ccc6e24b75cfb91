package summarize

import (
	"context"
	"strings"

	"github.com/quiltmem/quilt/pkg/tokens"
)

const truncationMarker = "..."

// Naive is a deterministic summarizer that keeps a prefix of whole lines and
// truncates the remainder. It never errors, so it is the terminal fallback.
type Naive struct{}

// NewNaive creates the naive summarizer.
func NewNaive() *Naive {
	return &Naive{}
}

// Summarize keeps whole lines while they fit the budget, then cuts mid-line
// with a marker. Input already under budget passes through untouched.
func (n *Naive) Summarize(_ context.Context, text string, targetTokens int) (string, error) {
	if tokens.Estimate(text) <= targetTokens {
		return text, nil
	}

	charBudget := tokens.CharBudget(targetTokens)
	if charBudget <= len(truncationMarker) {
		return truncationMarker, nil
	}

	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		// +1 for the newline separator.
		if b.Len()+len(line)+1 > charBudget-len(truncationMarker) {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}

	if b.Len() == 0 {
		// The first line alone overflows. Cut it on a rune boundary.
		runes := []rune(text)
		keep := charBudget - len(truncationMarker)
		if keep > len(runes) {
			keep = len(runes)
		}
		return string(runes[:keep]) + truncationMarker, nil
	}

	b.WriteString("\n")
	b.WriteString(truncationMarker)
	return b.String(), nil
}

// Status always reports naive mode.
func (n *Naive) Status() Status {
	return Status{
		Mode:         ModeNaive,
		Availability: AvailabilityAvailable,
	}
}

var _ Summarizer = (*Naive)(nil)
