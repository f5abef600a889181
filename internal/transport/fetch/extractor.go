// Package fetch retrieves web pages and extracts their readable main content.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
	"github.com/prolix-oc/Enspira-sub000/internal/metrics"
)

// defaultUserAgents rotate per request so page fetches do not present a
// single client identity.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:126.0) Gecko/20100101 Firefox/126.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:126.0) Gecko/20100101 Firefox/126.0",
}

// nonContentSelector matches markup stripped before readability extraction.
const nonContentSelector = "script,style,noscript,iframe,svg,nav,header,footer,aside,form,button"

// Config holds page fetching settings.
type Config struct {
	PerPageTimeout time.Duration // per-URL fetch deadline, default 10s
	MaxBodyBytes   int64         // response size cap, default 2 MiB
	UserAgents     []string
}

// Extractor fetches result pages concurrently and extracts readable text.
type Extractor struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New creates a page extractor.
func New(cfg Config, logger *zap.Logger) *Extractor {
	if cfg.PerPageTimeout <= 0 {
		cfg.PerPageTimeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 2 << 20
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents
	}
	return &Extractor{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.PerPageTimeout},
		logger: logger,
	}
}

// Extract fetches every link concurrently and concatenates the readable text
// with per-page attribution headers. A page that fails to fetch or parse
// contributes an empty segment without failing the batch; failed reports how
// many pages were lost. Only caller cancellation aborts the whole batch.
func (e *Extractor) Extract(ctx context.Context, links []domain.ResultLink) (string, int, error) {
	if len(links) == 0 {
		return "", 0, nil
	}

	segments := make([]string, len(links))
	var wg sync.WaitGroup

	for i, link := range links {
		wg.Add(1)
		go func(i int, link domain.ResultLink) {
			defer wg.Done()

			text, err := e.extractPage(ctx, link)
			if err != nil {
				metrics.ExtractPagesTotal.WithLabelValues("failed").Inc()
				e.logger.Warn("Page extraction failed",
					zap.String("url", link.URL), zap.Error(err))
				return
			}
			metrics.ExtractPagesTotal.WithLabelValues("ok").Inc()
			segments[i] = text
		}(i, link)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return "", len(links), fmt.Errorf("extraction cancelled: %w", err)
	}

	var parts []string
	failed := 0
	for _, seg := range segments {
		if seg == "" {
			failed++
			continue
		}
		parts = append(parts, seg)
	}

	return strings.Join(parts, "\n\n"), failed, nil
}

// extractPage fetches one URL under its own deadline and runs the
// readability extractor over the stripped document.
func (e *Extractor) extractPage(ctx context.Context, link domain.ResultLink) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.PerPageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgents[rand.Intn(len(e.cfg.UserAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.cfg.MaxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	text, err := extractReadable(body, link.URL)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("no readable content")
	}

	return attributionHeader(link) + text, nil
}

// extractReadable strips non-content markup and runs the readability
// main-content extractor.
func extractReadable(html []byte, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find(nonContentSelector).Remove()

	cleaned, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("serialize html: %w", err)
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(cleaned), u)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}

	return strings.TrimSpace(article.TextContent), nil
}

func attributionHeader(link domain.ResultLink) string {
	title := link.Title
	if title == "" {
		title = link.URL
	}
	src := link.Source
	if src == "" {
		src = link.URL
	}
	return fmt.Sprintf("=== %s (%s) ===\n", title, src)
}
