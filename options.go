package enspira

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string

	embeddingAPIKey   string
	embeddingBaseURL  string
	embeddingModel    string
	vectorDimensions  int
	embeddingCache    bool
	embeddingCacheTTL time.Duration

	completionAPIKey  string
	completionBaseURL string
	completionModel   string
	completionTimeout time.Duration

	rerankURL       string
	rerankAPIKey    string
	rerankModel     string
	rerankConfigSet bool
	rerankHigh      float64
	rerankAccept    float64
	rerankLow       float64
	rerankModerate  float64

	websearchURL    string
	websearchAPIKey string
	maxResults      int

	topK           int
	scoreThreshold float64

	hnswM           int
	hnswEFConstruct int

	logger *zap.Logger
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedding sets the embedding provider credentials and model.
func WithEmbedding(apiKey, baseURL, model string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingAPIKey = apiKey
		c.embeddingBaseURL = baseURL
		c.embeddingModel = model
		c.vectorDimensions = dimensions
	})
}

// WithEmbeddingCache enables Redis-backed caching of embeddings. Cached
// entries expire after ttl; zero keeps them forever.
func WithEmbeddingCache(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingCache = true
		c.embeddingCacheTTL = ttl
	})
}

// WithCompletion sets the completion provider used for query inference and
// summarization.
func WithCompletion(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.completionAPIKey = apiKey
		c.completionBaseURL = baseURL
		c.completionModel = model
	})
}

// WithCompletionTimeout overrides the completion call deadline.
func WithCompletionTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.completionTimeout = d
	})
}

// WithRerank sets the relevance scoring oracle endpoint. Without it rerank
// runs in permanent similarity fallback.
func WithRerank(url, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.rerankURL = url
		c.rerankAPIKey = apiKey
		c.rerankModel = model
	})
}

// WithRerankThresholds overrides the relevance tier cut-offs.
func WithRerankThresholds(high, acceptable, low, moderate float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.rerankConfigSet = true
		c.rerankHigh = high
		c.rerankAccept = acceptable
		c.rerankLow = low
		c.rerankModerate = moderate
	})
}

// WithWebSearch sets the web search provider used for augmentation.
// Without it augmentation is disabled.
func WithWebSearch(url, apiKey string, maxResults int) Option {
	return optionFunc(func(c *clientConfig) {
		c.websearchURL = url
		c.websearchAPIKey = apiKey
		c.maxResults = maxResults
	})
}

// WithTopK sets how many similarity hits each retrieval requests.
// Default: 10.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithScoreThreshold drops similarity hits below the given cosine score.
// Default: 0 (disabled).
func WithScoreThreshold(t float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.scoreThreshold = t
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=32, EFConstruct=400.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
