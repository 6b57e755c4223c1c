// Package embedding provides a client for the optional text-embedding
// service used by semantic similarity. The engine treats the service as
// best-effort: callers degrade to lexical similarity when it is unavailable.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/precedent/internal/cache"
	"github.com/rs/zerolog"
)

// Client for an embedding HTTP service exposing POST /embed.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
	cache   *cache.Cache
}

// NewClient creates an embedding service client.
// cache is optional - if nil, caching is disabled.
func NewClient(baseURL string, c *cache.Cache, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "embedding").Logger(),
		cache:   c,
	}
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed returns the embedding vector for a text, consulting the cache first.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	cacheKey, keyErr := cache.Key("embedding", text)
	if c.cache != nil && keyErr == nil {
		var cached []float64
		if c.cache.Get(cacheKey, &cached) && len(cached) > 0 {
			c.log.Debug().Int("dims", len(cached)).Msg("Cache hit")
			return cached, nil
		}
	}

	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	url := c.baseURL + "/embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d", resp.StatusCode)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty vector")
	}

	if c.cache != nil && keyErr == nil {
		c.cache.Set(cacheKey, result.Embedding)
	}

	c.log.Debug().Int("dims", len(result.Embedding)).Msg("Fetched embedding")
	return result.Embedding, nil
}
