package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/tokens"
)

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
	Error   string            `json:"error"`
}

// LLM summarizes through an Ollama-compatible chat endpoint.
type LLM struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// LLMConfig holds configuration for the LLM summarizer.
type LLMConfig struct {
	// Host is the endpoint base URL, e.g. "http://localhost:11434".
	Host string

	// Model is the chat model used for summarization.
	Model string

	// Timeout bounds each call. Zero means 30 seconds.
	Timeout time.Duration
}

// NewLLM creates an Ollama-backed summarizer.
func NewLLM(c LLMConfig, logger *zap.Logger) (*LLM, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("summarizer host is required")
	}
	if c.Model == "" {
		return nil, fmt.Errorf("summarizer model is required")
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &LLM{
		baseURL: strings.TrimRight(c.Host, "/"),
		model:   c.Model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Summarize asks the model for a condensed rendition. A response that still
// overflows the budget is truncated naively rather than re-prompted.
func (l *LLM) Summarize(ctx context.Context, text string, targetTokens int) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize the following context in at most %d words. "+
			"Keep concrete identifiers, outcomes, and numbers. "+
			"Respond with the summary only.\n\n%s",
		targetTokens, text,
	)

	request := ollamaChatRequest{
		Model: l.model,
		Messages: []ollamaChatMessage{
			{Role: "user", Content: prompt},
		},
		Stream: false,
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal summarize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create summarize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send summarize request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama status %d: %s", resp.StatusCode, string(body))
	}

	var response ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode summarize response: %w", err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("ollama error: %s", response.Error)
	}

	summary := strings.TrimSpace(response.Message.Content)
	if summary == "" {
		return "", fmt.Errorf("ollama returned an empty summary")
	}

	if tokens.Estimate(summary) > targetTokens {
		l.logger.Debug("llm summary overflowed budget, truncating",
			zap.Int("target_tokens", targetTokens),
			zap.Int("summary_tokens", tokens.Estimate(summary)),
		)
		return NewNaive().Summarize(ctx, summary, targetTokens)
	}

	return summary, nil
}

// Status reports llm mode. The plain LLM summarizer does not probe; use the
// auto-fallback wrapper for availability tracking.
func (l *LLM) Status() Status {
	return Status{
		Mode:         ModeLLM,
		Availability: AvailabilityAvailable,
		Endpoint:     l.baseURL,
	}
}

var _ Summarizer = (*LLM)(nil)
