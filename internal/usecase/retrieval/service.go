// Package retrieval orchestrates the full context pipeline: embed the user
// message, search the tenant collection, rerank the hits, and augment from
// the web when the quality signals call for it.
package retrieval

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
	"github.com/prolix-oc/Enspira-sub000/internal/metrics"
)

// Config holds the search-side knobs of the pipeline.
type Config struct {
	TopK           int     // similarity hits requested per query
	ScoreThreshold float64 // cosine similarity floor, 0 disables
}

// DefaultConfig returns the standard search settings.
func DefaultConfig() Config {
	return Config{TopK: 10, ScoreThreshold: 0}
}

// Service is the retrieval orchestrator.
type Service struct {
	embedder  domain.Embedder
	gateway   Gateway
	search    SearchRepository
	reranker  Reranker
	augmenter Augmenter
	cfg       Config
	logger    *zap.Logger
}

// New creates the orchestrator.
func New(embedder domain.Embedder, gateway Gateway, search SearchRepository, reranker Reranker, augmenter Augmenter, cfg Config, logger *zap.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	return &Service{
		embedder:  embedder,
		gateway:   gateway,
		search:    search,
		reranker:  reranker,
		augmenter: augmenter,
		cfg:       cfg,
		logger:    logger,
	}
}

// RetrieveContext runs the pipeline for one user message.
//
// Collection and schema problems are returned as errors: the deployment is
// misconfigured and retrying the same request cannot help. Upstream failures
// past that point degrade instead: the caller gets the best context the
// pipeline could still produce, down to the explicit empty marker.
func (s *Service) RetrieveContext(ctx context.Context, tenant string, kind domain.Kind, message string, allowAugmentation bool) (domain.RankedContext, error) {
	start := time.Now()

	col, err := s.gateway.EnsureReady(ctx, tenant, kind)
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues(string(kind), "failed").Inc()
		return domain.RankedContext{}, err
	}

	emb, err := s.embedder.Embed(ctx, message)
	if err != nil {
		s.logger.Error("Message embedding failed, returning empty context",
			zap.String("tenant", tenant), zap.Error(err))
		metrics.RetrievalRequestsTotal.WithLabelValues(string(kind), "failed").Inc()
		return domain.RankedContext{}, nil
	}
	if err := domain.CheckDimension(emb.Embedding, col); err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues(string(kind), "failed").Inc()
		return domain.RankedContext{}, err
	}

	candidates, err := s.search.Search(ctx, tenant, kind, emb.Embedding, s.cfg.TopK, s.cfg.ScoreThreshold)
	if err != nil {
		s.logger.Error("Similarity search failed, returning empty context",
			zap.String("tenant", tenant), zap.Error(err))
		metrics.RetrievalRequestsTotal.WithLabelValues(string(kind), "failed").Inc()
		return domain.RankedContext{}, nil
	}

	if len(candidates) == 0 {
		return s.emptyCollectionPath(ctx, tenant, kind, message, allowAugmentation, start)
	}

	result := s.reranker.Rerank(ctx, message, candidates)

	rc := domain.RankedContext{Signals: result.Signals}
	source := domain.SourceReranked
	if result.Fallback {
		source = domain.SourceSimilarity
	}
	for _, cand := range result.Primary {
		rc.Entries = append(rc.Entries, domain.ContextEntry{
			Text:   cand.Payload.ContextText(),
			Score:  cand.Relevance,
			Tier:   cand.Tier,
			Source: source,
		})
	}

	if allowAugmentation && s.reranker.ShouldAugment(result.Signals) {
		if aug, ok := s.augment(ctx, tenant, message); ok {
			rc.Entries = append(rc.Entries, augmentedEntry(aug))
			rc.Augmented = true
		}
	}

	s.observe(kind, rc, start)
	return rc, nil
}

// emptyCollectionPath handles the zero-candidate case: augment when allowed,
// otherwise hand back the explicit empty marker. An empty collection is a
// normal state for a fresh tenant, not an error.
func (s *Service) emptyCollectionPath(ctx context.Context, tenant string, kind domain.Kind, message string, allowAugmentation bool, start time.Time) (domain.RankedContext, error) {
	rc := domain.RankedContext{}
	if allowAugmentation {
		if aug, ok := s.augment(ctx, tenant, message); ok {
			rc.Entries = append(rc.Entries, augmentedEntry(aug))
			rc.Augmented = true
		}
	}
	s.observe(kind, rc, start)
	return rc, nil
}

// augment runs the chain and absorbs its failures: an opted-out decision is
// logged at debug, anything else at warn, and retrieval proceeds without the
// extra entry either way.
func (s *Service) augment(ctx context.Context, tenant, message string) (domain.AugmentationResult, bool) {
	aug, err := s.augmenter.Augment(ctx, tenant, message)
	if err != nil {
		if errors.Is(err, domain.ErrAugmentationOptedOut) {
			s.logger.Debug("Augmentation opted out", zap.String("tenant", tenant))
		} else {
			s.logger.Warn("Augmentation failed",
				zap.String("tenant", tenant),
				zap.String("stage", string(domain.StageOf(err))),
				zap.Error(err))
		}
		return domain.AugmentationResult{}, false
	}
	return aug, true
}

func (s *Service) observe(kind domain.Kind, rc domain.RankedContext, start time.Time) {
	outcome := "ok"
	switch {
	case rc.Empty():
		outcome = "empty"
	case rc.Augmented:
		outcome = "augmented"
	}
	metrics.RetrievalRequestsTotal.WithLabelValues(string(kind), outcome).Inc()

	augmented := "false"
	if rc.Augmented {
		augmented = "true"
	}
	metrics.RetrievalDuration.WithLabelValues(string(kind), augmented).Observe(time.Since(start).Seconds())
}

func augmentedEntry(aug domain.AugmentationResult) domain.ContextEntry {
	return domain.ContextEntry{
		Text:   aug.Summary,
		Source: domain.SourceAugmented,
	}
}
