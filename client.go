// Package enspira retrieves ranked knowledge context for conversational
// agents: messages are embedded, matched against per-tenant vector
// collections, relevance-checked by a scoring oracle, and augmented from
// the web when the stored knowledge is not good enough.
package enspira

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbredis "github.com/prolix-oc/Enspira-sub000/internal/db/redis"
	"github.com/prolix-oc/Enspira-sub000/internal/domain"
	"github.com/prolix-oc/Enspira-sub000/internal/metrics"
	collectionrepo "github.com/prolix-oc/Enspira-sub000/internal/repository/collection"
	"github.com/prolix-oc/Enspira-sub000/internal/repository/embcache"
	recordrepo "github.com/prolix-oc/Enspira-sub000/internal/repository/record"
	searchrepo "github.com/prolix-oc/Enspira-sub000/internal/repository/search"
	"github.com/prolix-oc/Enspira-sub000/internal/transport/fetch"
	openaitr "github.com/prolix-oc/Enspira-sub000/internal/transport/openai"
	rerankclient "github.com/prolix-oc/Enspira-sub000/internal/transport/rerank"
	"github.com/prolix-oc/Enspira-sub000/internal/transport/websearch"
	augmentuc "github.com/prolix-oc/Enspira-sub000/internal/usecase/augment"
	gatewayuc "github.com/prolix-oc/Enspira-sub000/internal/usecase/gateway"
	healthuc "github.com/prolix-oc/Enspira-sub000/internal/usecase/health"
	ingestuc "github.com/prolix-oc/Enspira-sub000/internal/usecase/ingest"
	rerankuc "github.com/prolix-oc/Enspira-sub000/internal/usecase/rerank"
	retrievaluc "github.com/prolix-oc/Enspira-sub000/internal/usecase/retrieval"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the enspira SDK entry point.
type Client struct {
	store     *dbredis.Store
	gateway   *gatewayuc.Service
	retrieval *retrievaluc.Service
	ingest    *ingestuc.Service
	health    *healthuc.Service
}

// New creates an enspira Client and connects to the knowledge store.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		vectorDimensions: 1536,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("enspira: database address required (use WithRedis)")
	}
	if cfg.embeddingAPIKey == "" {
		return nil, errors.New("enspira: embedding provider required (use WithEmbedding)")
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("enspira: create redis store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("enspira: database not ready: %w", err)
	}

	return wireClient(store, cfg)
}

func wireClient(store *dbredis.Store, cfg *clientConfig) (*Client, error) {
	logger := cfg.logger

	collRepo := collectionrepo.New(store)
	if cfg.hnswM > 0 || cfg.hnswEFConstruct > 0 {
		collRepo = collRepo.WithHNSW(collectionrepo.HNSWConfig{
			M:           cfg.hnswM,
			EFConstruct: cfg.hnswEFConstruct,
		})
	}
	recRepo := recordrepo.New(store)
	searchRepo := searchrepo.New(store)

	provider := openaitr.NewEmbedder(&openaitr.Config{
		APIKey:     cfg.embeddingAPIKey,
		BaseURL:    cfg.embeddingBaseURL,
		Model:      cfg.embeddingModel,
		Dimensions: cfg.vectorDimensions,
		Logger:     logger,
	})
	var embedder domain.Embedder = provider
	if cfg.embeddingCache {
		embedder = embcache.New(provider, store, cfg.embeddingCacheTTL, metrics.EmbeddingCacheTotal, logger)
	}

	gateway := gatewayuc.New(collRepo, recRepo, cfg.vectorDimensions, logger)

	var oracle rerankuc.Oracle = disabledOracle{}
	if cfg.rerankURL != "" {
		oracle = &oracleAdapter{inner: rerankclient.New(rerankclient.Config{
			URL:    cfg.rerankURL,
			APIKey: cfg.rerankAPIKey,
			Model:  cfg.rerankModel,
		})}
	}
	rerankCfg := rerankuc.DefaultConfig()
	if cfg.rerankConfigSet {
		rerankCfg.High = cfg.rerankHigh
		rerankCfg.Acceptable = cfg.rerankAccept
		rerankCfg.Low = cfg.rerankLow
		rerankCfg.Moderate = cfg.rerankModerate
	}
	reranker := rerankuc.New(oracle, rerankCfg, logger)

	var augmenter retrievaluc.Augmenter = disabledAugmenter{}
	if cfg.websearchURL != "" && cfg.completionAPIKey != "" {
		completer := openaitr.NewCompleter(&openaitr.CompleterConfig{
			APIKey:  cfg.completionAPIKey,
			BaseURL: cfg.completionBaseURL,
			Model:   cfg.completionModel,
			Timeout: cfg.completionTimeout,
			Logger:  logger,
		})
		searcher := websearch.New(websearch.Config{
			URL:        cfg.websearchURL,
			APIKey:     cfg.websearchAPIKey,
			MaxResults: cfg.maxResults,
		})
		extractor := fetch.New(fetch.Config{}, logger)
		augmenter = augmentuc.New(completer, searcher, extractor, gateway, embedder, logger)
	}

	retrieval := retrievaluc.New(embedder, gateway, searchRepo, reranker, augmenter,
		retrievaluc.Config{TopK: cfg.topK, ScoreThreshold: cfg.scoreThreshold}, logger)

	return &Client{
		store:     store,
		gateway:   gateway,
		retrieval: retrieval,
		ingest:    ingestuc.New(provider, gateway, logger),
		health:    healthuc.New(store, provider),
	}, nil
}

// Retrieve returns ranked knowledge context for one user message.
func (c *Client) Retrieve(ctx context.Context, tenant string, kind Kind, message string, allowAugmentation bool) (Context, error) {
	rc, err := c.retrieval.RetrieveContext(ctx, tenant, domain.Kind(kind), message, allowAugmentation)
	if err != nil {
		return Context{}, fmt.Errorf("retrieve: %w", err)
	}
	return contextFromDomain(rc), nil
}

// Ingest embeds and stores a batch of records, deduplicated by key.
// Returns how many records were actually inserted.
func (c *Client) Ingest(ctx context.Context, tenant string, kind Kind, records []Record) (int, error) {
	recs := make([]domain.KnowledgeRecord, 0, len(records))
	for _, in := range records {
		rec, err := recordFromPublic(in, tenant, domain.Kind(kind))
		if err != nil {
			return 0, fmt.Errorf("record %q: %w", in.Key, err)
		}
		recs = append(recs, rec)
	}
	inserted, err := c.ingest.Ingest(ctx, tenant, domain.Kind(kind), recs)
	if err != nil {
		return 0, fmt.Errorf("ingest: %w", err)
	}
	return inserted, nil
}

// Reset drops the tenant collection and re-provisions it empty.
func (c *Client) Reset(ctx context.Context, tenant string, kind Kind) error {
	if err := c.gateway.Reset(ctx, tenant, domain.Kind(kind)); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Health runs component health checks.
func (c *Client) Health(ctx context.Context) HealthReport {
	report := c.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthReport{Status: string(report.Status), Checks: checks}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// oracleAdapter converts the rerank wire response into positional scores.
// An oracle that skips or repeats a document is malformed, not a source of
// silent zero scores.
type oracleAdapter struct {
	inner *rerankclient.Client
}

func (a *oracleAdapter) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	scores, err := a.inner.Rerank(ctx, query, documents)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(documents))
	seen := make([]bool, len(documents))
	for _, s := range scores {
		if seen[s.Index] {
			return nil, fmt.Errorf("rerank result index %d repeated: %w",
				s.Index, domain.ErrUpstreamMalformed)
		}
		seen[s.Index] = true
		out[s.Index] = s.Score
	}
	if len(scores) != len(documents) {
		return nil, fmt.Errorf("rerank scored %d of %d documents: %w",
			len(scores), len(documents), domain.ErrUpstreamMalformed)
	}
	return out, nil
}

// disabledOracle fails every call, keeping rerank in similarity fallback
// when no oracle endpoint is configured.
type disabledOracle struct{}

func (disabledOracle) Rerank(_ context.Context, _ string, _ []string) ([]float64, error) {
	return nil, errors.New("enspira: rerank oracle not configured (use WithRerank)")
}

// disabledAugmenter opts out of every augmentation when no web search or
// completion provider is configured.
type disabledAugmenter struct{}

func (disabledAugmenter) Augment(_ context.Context, _, _ string) (domain.AugmentationResult, error) {
	return domain.AugmentationResult{}, domain.ErrAugmentationOptedOut
}

func recordFromPublic(in Record, tenant string, kind domain.Kind) (domain.KnowledgeRecord, error) {
	var payload domain.Payload
	switch domain.Variant(in.Variant) {
	case domain.VariantDocument:
		payload = domain.Document{Source: in.Source, Content: in.Content, URLs: in.URLs}
	case domain.VariantChatTurn:
		payload = domain.ChatTurn{Speaker: in.Speaker, Message: in.Message}
	case domain.VariantVoiceTurn:
		payload = domain.VoiceTurn{Speaker: in.Speaker, Transcript: in.Transcript}
	default:
		return domain.KnowledgeRecord{}, fmt.Errorf("unknown variant %q", in.Variant)
	}
	return domain.NewRecord(in.Key, tenant, kind, payload)
}

func contextFromDomain(rc domain.RankedContext) Context {
	out := Context{
		Entries: make([]ContextEntry, len(rc.Entries)),
		Signals: Signals{
			HighCount:          rc.Signals.HighCount,
			AvgTop5:            rc.Signals.AvgTop5,
			BelowAcceptablePct: rc.Signals.BelowAcceptablePct,
		},
		Augmented: rc.Augmented,
	}
	for i, e := range rc.Entries {
		out.Entries[i] = ContextEntry{
			Text:   e.Text,
			Score:  e.Score,
			Tier:   string(e.Tier),
			Source: string(e.Source),
		}
	}
	return out
}
