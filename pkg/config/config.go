// Package config loads and validates the quilt configuration.
//
// Config precedence (highest to lowest):
//  1. Environment variables (QUILT_SUMMARIZER_HOST, QUILT_MEMORY_STORE_TYPE, …)
//  2. config.toml file values
//  3. Defaults from NewDefaultConfig()
//
// OLLAMA_HOST is honored as a conventional override for the summarizer and
// embedding endpoints, matching how local LLM tooling is usually addressed.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// ValidationError reports invalid or missing configuration. It is fatal at
// startup of the consuming application and is never swallowed.
type ValidationError struct {
	Key    string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
}

// Load reads configuration from the given TOML file (optional), applies
// environment overrides, validates, and returns the result. An empty path
// means defaults plus environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setViperDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return nil, fmt.Errorf("reading config %s: %w", path, err)
				}
			}
		}
	}

	v.SetEnvPrefix("QUILT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)

	// OLLAMA_HOST overrides the configured endpoints, matching the local
	// LLM tooling convention.
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		cfg.Summarizer.Host = host
		if cfg.Embedding.Provider == "ollama" {
			cfg.Embedding.Target = host
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save persists the configuration as TOML.
func Save(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Parse parses raw TOML bytes into a Config without applying defaults or
// environment overrides.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}
	return cfg, nil
}

// Validate checks the closed enum fields and required backend parameters.
func (c *Config) Validate() error {
	switch c.Summarizer.Type {
	case "naive", "llm", "auto_fallback":
	default:
		return ValidationError{
			Key:    "summarizer.type",
			Reason: fmt.Sprintf("%q is not one of naive, llm, auto_fallback", c.Summarizer.Type),
		}
	}

	if c.Summarizer.Type != "naive" && c.Summarizer.Host == "" {
		return ValidationError{Key: "summarizer.host", Reason: "required for llm and auto_fallback summarizers"}
	}

	switch c.FeedbackStore.Type {
	case "json", "sqlite":
	default:
		return ValidationError{
			Key:    "feedback_store.type",
			Reason: fmt.Sprintf("%q is not one of json, sqlite", c.FeedbackStore.Type),
		}
	}
	if c.FeedbackStore.Path == "" {
		return ValidationError{Key: "feedback_store.path", Reason: "required"}
	}

	switch c.MemoryStore.Type {
	case "json", "sqlite", "sqlite_vec":
		if c.MemoryStore.Path == "" {
			return ValidationError{Key: "memory_store.path", Reason: "required"}
		}
	case "vector":
		// In-memory chromem is valid, so no required fields.
	case "postgres_vector":
		if c.MemoryStore.Host == "" || c.MemoryStore.Database == "" {
			return ValidationError{
				Key:    "memory_store",
				Reason: "postgres_vector requires host and database",
			}
		}
	default:
		return ValidationError{
			Key:    "memory_store.type",
			Reason: fmt.Sprintf("%q is not one of json, sqlite, vector, sqlite_vec, postgres_vector", c.MemoryStore.Type),
		}
	}

	if isVectorType(c.MemoryStore.Type) {
		switch c.Embedding.Provider {
		case "ollama", "mock":
		default:
			return ValidationError{
				Key:    "embedding.provider",
				Reason: fmt.Sprintf("%q is not one of ollama, mock", c.Embedding.Provider),
			}
		}
		if c.Embedding.Dimensions == 0 {
			return ValidationError{Key: "embedding.dimensions", Reason: "required for vector stores"}
		}
	}

	if w := c.Engine.SimilarityWeight; w < 0 || w > 1 {
		return ValidationError{Key: "engine.similarity_weight", Reason: "must be in [0, 1]"}
	}

	if c.EventStream.Enabled && len(c.EventStream.Brokers) == 0 {
		return ValidationError{Key: "event_stream.brokers", Reason: "required when event stream is enabled"}
	}

	return nil
}

func isVectorType(t string) bool {
	return t == "vector" || t == "sqlite_vec" || t == "postgres_vector"
}
