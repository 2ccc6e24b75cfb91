// Package ollama provides an Embedder backed by the Ollama embeddings API.
package ollama

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

	"github.com/quiltmem/quilt/pkg/embeddings"
)

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error"`
}

// Embedder calls POST /api/embed on an Ollama-compatible endpoint.
type Embedder struct {
	baseURL    string
	model      string
	dimensions uint
	client     *http.Client
	logger     *zap.Logger
}

// Config holds configuration for the Ollama embedder.
type Config struct {
	// Target is the endpoint base URL, e.g. "http://localhost:11434".
	Target string

	// Model is the embedding model, e.g. "nomic-embed-text".
	Model string

	// Dimensions is the expected vector width. Mismatched responses fail.
	Dimensions uint

	// Timeout bounds each request. Zero means 30 seconds.
	Timeout time.Duration
}

// NewEmbedder creates an Ollama-backed embedder.
func NewEmbedder(c Config, logger *zap.Logger) (*Embedder, error) {
	if c.Target == "" {
		return nil, fmt.Errorf("embedding target URL is required")
	}
	if c.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("embedding dimensions must be configured")
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Embedder{
		baseURL:    strings.TrimRight(c.Target, "/"),
		model:      c.Model,
		dimensions: c.Dimensions,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Embed returns the embedding for one text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode, string(body))
	}

	var response embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", response.Error)
	}
	if len(response.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama returned no embeddings")
	}

	vec := response.Embeddings[0]
	if uint(len(vec)) != e.dimensions {
		return nil, fmt.Errorf("embedding width %d does not match configured %d", len(vec), e.dimensions)
	}

	return vec, nil
}

// Dimensions is the configured vector width.
func (e *Embedder) Dimensions() uint {
	return e.dimensions
}

var _ embeddings.Embedder = (*Embedder)(nil)
