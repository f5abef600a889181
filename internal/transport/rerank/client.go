// Package rerank calls the external relevance-scoring oracle.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

// Score is one oracle result; Index refers back into the submitted documents.
// Scores are open real-valued, not bounded to [0,1].
type Score struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Config holds reranking service settings.
type Config struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client is an HTTP client for the reranking service:
// POST {model, query, documents} -> {results: [{index, score}]}.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a rerank client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []Score `json:"results"`
}

// Rerank scores documents against the query. The response carries one score
// per submitted document, in oracle-chosen order.
func (c *Client) Rerank(ctx context.Context, query string, documents []string) ([]Score, error) {
	body, err := json.Marshal(rerankRequest{
		Model:     c.cfg.Model,
		Query:     query,
		Documents: documents,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("rerank call: %w", domain.ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("rerank call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rerank service returned %d: %s", resp.StatusCode, string(raw))
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", domain.ErrUpstreamMalformed)
	}

	for _, s := range parsed.Results {
		if s.Index < 0 || s.Index >= len(documents) {
			return nil, fmt.Errorf("rerank result index %d out of range: %w",
				s.Index, domain.ErrUpstreamMalformed)
		}
	}

	return parsed.Results, nil
}
