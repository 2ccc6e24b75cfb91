package summarize

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AutoFallback wraps an LLM summarizer with endpoint probing and degrades to
// naive truncation when the endpoint is down.
//
// Availability moves through three states. It starts unchecked; the first
// Summarize probes the endpoint and lands on available or unavailable. An
// unavailable endpoint is not re-probed until the backoff window elapses, so
// a dead endpoint costs one probe per window instead of one per call. A
// failed LLM call also flips the state to unavailable immediately.
//
// Summarize never returns an error: every failure path ends in the naive
// summarizer, which cannot fail.
type AutoFallback struct {
	llm    *LLM
	naive  *Naive
	logger *zap.Logger

	probeURL     string
	probeTimeout time.Duration
	backoff      time.Duration

	// now is the clock, replaceable in tests.
	now func() time.Time

	mu           sync.Mutex
	availability Availability
	lastCheck    time.Time
}

// AutoFallbackConfig holds configuration for the auto-fallback summarizer.
type AutoFallbackConfig struct {
	// Host, Model, Timeout configure the wrapped LLM summarizer. Timeout
	// also bounds the availability probe.
	Host    string
	Model   string
	Timeout time.Duration

	// Backoff is the wait before re-probing an unavailable endpoint. Zero
	// means 5 minutes.
	Backoff time.Duration
}

// NewAutoFallback creates the auto-fallback summarizer.
func NewAutoFallback(c AutoFallbackConfig, logger *zap.Logger) (*AutoFallback, error) {
	llm, err := NewLLM(LLMConfig{Host: c.Host, Model: c.Model, Timeout: c.Timeout}, logger)
	if err != nil {
		return nil, err
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	backoff := c.Backoff
	if backoff == 0 {
		backoff = 5 * time.Minute
	}

	return &AutoFallback{
		llm:          llm,
		naive:        NewNaive(),
		logger:       logger,
		probeURL:     strings.TrimRight(c.Host, "/") + "/api/tags",
		probeTimeout: timeout,
		backoff:      backoff,
		now:          time.Now,
		availability: AvailabilityUnchecked,
	}, nil
}

// Summarize routes to the LLM when the endpoint is available and to naive
// truncation otherwise. It never returns an error.
func (a *AutoFallback) Summarize(ctx context.Context, text string, targetTokens int) (string, error) {
	if a.useLLM(ctx) {
		summary, err := a.llm.Summarize(ctx, text, targetTokens)
		if err == nil {
			return summary, nil
		}

		a.markUnavailable()
		a.logger.Warn("llm summarization failed, falling back to naive", zap.Error(err))
	}

	return a.naive.Summarize(ctx, text, targetTokens)
}

// useLLM decides the path for one call, probing when the state demands it.
func (a *AutoFallback) useLLM(ctx context.Context) bool {
	a.mu.Lock()

	switch a.availability {
	case AvailabilityAvailable:
		a.mu.Unlock()
		return true

	case AvailabilityUnavailable:
		if a.now().Sub(a.lastCheck) < a.backoff {
			a.mu.Unlock()
			return false
		}
	}

	// Unchecked, or the backoff window has elapsed. Probe while holding
	// the lock so concurrent callers do not stampede the endpoint.
	ok := a.probe(ctx)
	a.lastCheck = a.now()
	if ok {
		a.availability = AvailabilityAvailable
	} else {
		a.availability = AvailabilityUnavailable
	}
	a.mu.Unlock()

	if ok {
		a.logger.Info("llm endpoint available", zap.String("endpoint", a.probeURL))
	} else {
		a.logger.Warn("llm endpoint unavailable, using naive summarization",
			zap.String("endpoint", a.probeURL),
			zap.Duration("retry_after", a.backoff),
		)
	}
	return ok
}

// probe checks endpoint liveness with a bounded GET.
func (a *AutoFallback) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, a.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (a *AutoFallback) markUnavailable() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.availability = AvailabilityUnavailable
	a.lastCheck = a.now()
}

// Status reports the configured mode and the probed availability without
// probing. The active path is llm when available, naive otherwise.
func (a *AutoFallback) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Status{
		Mode:         ModeAutoFallback,
		Availability: a.availability,
		LastCheck:    a.lastCheck,
		Endpoint:     strings.TrimSuffix(a.probeURL, "/api/tags"),
	}
}

// SetClock replaces the time source. Tests use it to step through backoff
// windows without sleeping.
func (a *AutoFallback) SetClock(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if now != nil {
		a.now = now
	}
}

var _ Summarizer = (*AutoFallback)(nil)

// String renders the status for logs.
func (s Status) String() string {
	return fmt.Sprintf("mode=%s availability=%s", s.Mode, s.Availability)
}
