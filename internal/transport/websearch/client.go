// Package websearch calls the external web search provider.
package websearch

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
	"github.com/prolix-oc/Enspira-sub000/internal/retry"
)

// Config holds web search provider settings.
type Config struct {
	URL        string
	APIKey     string
	MaxResults int
	Timeout    time.Duration
}

// Client is an HTTP client for the search provider:
// POST {query, freshness, max_results} -> {results: [{url, title, source}]}.
// Search is an idempotent read and is retried with backoff.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a web search client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	Query      string `json:"query"`
	Freshness  string `json:"freshness,omitempty"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		URL    string `json:"url"`
		Title  string `json:"title"`
		Source string `json:"source"`
	} `json:"results"`
}

// Search executes the inferred query. An empty result list is a valid
// outcome, not an error.
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) ([]domain.ResultLink, error) {
	body, err := json.Marshal(searchRequest{
		Query:      q.Query,
		Freshness:  string(q.Freshness),
		MaxResults: c.cfg.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	var parsed searchResponse
	err = retry.Do(ctx, func() error {
		return c.doSearch(ctx, body, &parsed)
	})
	if err != nil {
		return nil, err
	}

	links := make([]domain.ResultLink, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		links = append(links, domain.ResultLink{URL: r.URL, Title: r.Title, Source: r.Source})
	}
	return links, nil
}

func (c *Client) doSearch(ctx context.Context, body []byte, out *searchResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("web search: %w", domain.ErrUpstreamTimeout)
		}
		return fmt.Errorf("web search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("search provider returned %d: %s", resp.StatusCode, string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode search response: %w", domain.ErrUpstreamMalformed)
	}
	return nil
}
