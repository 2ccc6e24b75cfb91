// Package summarize compresses assembled context to fit a token budget.
//
// Three implementations exist: a deterministic naive truncator, an
// LLM-backed summarizer, and an auto-fallback wrapper that probes the LLM
// endpoint and degrades to naive when it is unreachable.
package summarize

import (
	"context"
	"time"
)

// Mode names which summarization path is in effect.
type Mode string

const (
	ModeNaive        Mode = "naive"
	ModeLLM          Mode = "llm"
	ModeAutoFallback Mode = "auto_fallback"
)

// Availability is the probed state of an LLM endpoint.
type Availability string

const (
	// AvailabilityUnchecked means no probe has run yet.
	AvailabilityUnchecked Availability = "unchecked"

	AvailabilityAvailable   Availability = "available"
	AvailabilityUnavailable Availability = "unavailable"
)

// Status reports which summarizer is active and why.
type Status struct {
	// Mode is the configured summarization mode. For auto_fallback the
	// active path follows from Availability, not Mode.
	Mode Mode `json:"mode"`

	// Availability is the last probe outcome. Always available for the
	// plain naive and llm summarizers.
	Availability Availability `json:"availability"`

	// LastCheck is when the endpoint was last probed, zero if never.
	LastCheck time.Time `json:"last_check,omitzero"`

	// Endpoint is the probed URL, empty for the naive summarizer.
	Endpoint string `json:"endpoint,omitempty"`
}

// Summarizer compresses text to approximately targetTokens.
type Summarizer interface {
	// Summarize returns a condensed rendition of text sized for the
	// target token budget.
	Summarize(ctx context.Context, text string, targetTokens int) (string, error)

	// Status reports the summarizer's current mode and availability.
	Status() Status
}
