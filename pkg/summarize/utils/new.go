// Package summarizeutils constructs summarizers from configuration.
package summarizeutils

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/config"
	"github.com/quiltmem/quilt/pkg/summarize"
)

// NewSummarizer constructs the summarizer selected by cfg.Summarizer.
func NewSummarizer(cfg *config.Config, logger *zap.Logger) (summarize.Summarizer, error) {
	timeout := time.Duration(cfg.Summarizer.TimeoutSeconds) * time.Second

	switch cfg.Summarizer.Type {
	case "naive":
		return summarize.NewNaive(), nil

	case "llm":
		return summarize.NewLLM(summarize.LLMConfig{
			Host:    cfg.Summarizer.Host,
			Model:   cfg.Summarizer.Model,
			Timeout: timeout,
		}, logger)

	case "auto_fallback":
		return summarize.NewAutoFallback(summarize.AutoFallbackConfig{
			Host:    cfg.Summarizer.Host,
			Model:   cfg.Summarizer.Model,
			Timeout: timeout,
			Backoff: time.Duration(cfg.Summarizer.BackoffSeconds) * time.Second,
		}, logger)

	default:
		return nil, fmt.Errorf("unknown summarizer type: %s", cfg.Summarizer.Type)
	}
}
