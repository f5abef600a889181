// Package augment implements the web augmentation chain: infer a search
// query from the user message, search the web, extract page content,
// summarize it, and persist the summary for future retrieval.
package augment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
	"github.com/prolix-oc/Enspira-sub000/internal/metrics"
)

const inferInstruction = `You decide whether a web lookup would improve the answer to the user's message.
If a lookup helps, respond with exactly these lines:
QUERY: <a concise web search query>
SUBJECT: <a short subject the findings should be filed under>
FRESHNESS: <day, week or month, only when recency matters>
If no lookup would help, respond with the single word NONE.
Respond with nothing else.`

const summarizeInstruction = `Summarize the following web page excerpts into a compact briefing about "%s".
Keep only facts relevant to the subject, merge duplicate claims and drop navigation noise.
Write plain prose without headings.`

// Service runs the augmentation chain.
type Service struct {
	completer Completer
	searcher  Searcher
	extractor Extractor
	persister Persister
	embedder  domain.Embedder
	logger    *zap.Logger
}

// New creates an augmentation service.
func New(completer Completer, searcher Searcher, extractor Extractor, persister Persister, embedder domain.Embedder, logger *zap.Logger) *Service {
	return &Service{
		completer: completer,
		searcher:  searcher,
		extractor: extractor,
		persister: persister,
		embedder:  embedder,
		logger:    logger,
	}
}

// Augment runs the full chain for a user message. It returns
// domain.ErrAugmentationOptedOut when the model decides no lookup would
// help; that is a normal outcome, not a failure. Every failure is tagged
// with the stage it happened in. A failed persist does not discard the
// summary: the result is still returned for immediate use.
func (s *Service) Augment(ctx context.Context, tenant, message string) (domain.AugmentationResult, error) {
	query, err := s.infer(ctx, message)
	if err != nil {
		return domain.AugmentationResult{}, err
	}

	links, err := s.search(ctx, query)
	if err != nil {
		return domain.AugmentationResult{}, err
	}

	pages, err := s.extract(ctx, query, links)
	if err != nil {
		return domain.AugmentationResult{}, err
	}

	result, err := s.summarize(ctx, query, pages, links)
	if err != nil {
		return domain.AugmentationResult{}, err
	}

	s.persist(ctx, tenant, result)

	return result, nil
}

// infer asks the model whether a lookup helps and what to search for.
func (s *Service) infer(ctx context.Context, message string) (domain.SearchQuery, error) {
	raw, err := s.completer.Complete(ctx, inferInstruction, message)
	if err != nil {
		metrics.AugmentationTotal.WithLabelValues("inference", "failed").Inc()
		return domain.SearchQuery{}, domain.NewStageError(domain.StageInference, domain.ErrUpstreamTimeout, err, "query inference")
	}

	query, err := parseInference(raw)
	if err != nil {
		if errors.Is(err, domain.ErrAugmentationOptedOut) {
			metrics.AugmentationTotal.WithLabelValues("inference", "opted_out").Inc()
			return domain.SearchQuery{}, err
		}
		metrics.AugmentationTotal.WithLabelValues("inference", "failed").Inc()
		return domain.SearchQuery{}, domain.NewStageError(domain.StageInference, err, nil, "parse inference output")
	}

	metrics.AugmentationTotal.WithLabelValues("inference", "ok").Inc()
	s.logger.Debug("Augmentation query inferred",
		zap.String("query", query.Query),
		zap.String("subject", query.Subject),
		zap.String("freshness", string(query.Freshness)))
	return query, nil
}

func (s *Service) search(ctx context.Context, query domain.SearchQuery) ([]domain.ResultLink, error) {
	links, err := s.searcher.Search(ctx, query)
	if err != nil {
		metrics.AugmentationTotal.WithLabelValues("websearch", "failed").Inc()
		return nil, domain.NewStageError(domain.StageWebSearch, domain.ErrUpstreamTimeout, err, "web search")
	}
	if len(links) == 0 {
		metrics.AugmentationTotal.WithLabelValues("websearch", "empty").Inc()
		return nil, domain.NewStageError(domain.StageWebSearch, domain.ErrNoData, nil,
			fmt.Sprintf("no results for %q", query.Query))
	}
	metrics.AugmentationTotal.WithLabelValues("websearch", "ok").Inc()
	return links, nil
}

func (s *Service) extract(ctx context.Context, query domain.SearchQuery, links []domain.ResultLink) (string, error) {
	pages, failed, err := s.extractor.Extract(ctx, links)
	if err != nil {
		metrics.AugmentationTotal.WithLabelValues("extraction", "failed").Inc()
		return "", domain.NewStageError(domain.StageExtraction, domain.ErrPartialExtraction, err, "extract pages")
	}
	if pages == "" {
		metrics.AugmentationTotal.WithLabelValues("extraction", "failed").Inc()
		return "", domain.NewStageError(domain.StageExtraction, domain.ErrNoData, nil,
			fmt.Sprintf("all %d pages failed for %q", len(links), query.Query))
	}
	if failed > 0 {
		s.logger.Warn("Partial page extraction",
			zap.String("query", query.Query),
			zap.Int("failed", failed),
			zap.Int("total", len(links)))
	}
	metrics.AugmentationTotal.WithLabelValues("extraction", "ok").Inc()
	return pages, nil
}

func (s *Service) summarize(ctx context.Context, query domain.SearchQuery, pages string, links []domain.ResultLink) (domain.AugmentationResult, error) {
	summary, err := s.completer.Complete(ctx, fmt.Sprintf(summarizeInstruction, query.Subject), pages)
	if err != nil {
		metrics.AugmentationTotal.WithLabelValues("summarize", "failed").Inc()
		return domain.AugmentationResult{}, domain.NewStageError(domain.StageSummarize, domain.ErrUpstreamTimeout, err, "summarize pages")
	}
	if summary == "" {
		metrics.AugmentationTotal.WithLabelValues("summarize", "failed").Inc()
		return domain.AugmentationResult{}, domain.NewStageError(domain.StageSummarize, domain.ErrUpstreamMalformed, nil, "empty summary")
	}
	metrics.AugmentationTotal.WithLabelValues("summarize", "ok").Inc()

	urls := make([]string, 0, len(links))
	for _, link := range links {
		urls = append(urls, link.URL)
	}
	return domain.AugmentationResult{
		Subject:    query.Subject,
		Summary:    summary,
		SourceURLs: urls,
	}, nil
}

// persist writes the summary back as a general knowledge record. Writes are
// not retried; a replay is caught by key dedup on the next insert. Failure
// here is logged but never surfaced, the caller already has the summary.
func (s *Service) persist(ctx context.Context, tenant string, result domain.AugmentationResult) {
	rec, err := result.Record(tenant)
	if err != nil {
		metrics.AugmentationTotal.WithLabelValues("persist", "failed").Inc()
		s.logger.Warn("Augmentation record invalid", zap.String("subject", result.Subject), zap.Error(err))
		return
	}

	emb, err := s.embedder.Embed(ctx, rec.Payload().ContextText())
	if err != nil {
		metrics.AugmentationTotal.WithLabelValues("persist", "failed").Inc()
		s.logger.Warn("Augmentation embedding failed", zap.String("subject", result.Subject), zap.Error(err))
		return
	}

	inserted, err := s.persister.Insert(ctx, tenant, domain.KindGeneral,
		[]domain.KnowledgeRecord{rec.WithEmbedding(emb.Embedding)})
	if err != nil {
		metrics.AugmentationTotal.WithLabelValues("persist", "failed").Inc()
		s.logger.Warn("Augmentation persist failed", zap.String("subject", result.Subject), zap.Error(err))
		return
	}

	metrics.AugmentationTotal.WithLabelValues("persist", "ok").Inc()
	s.logger.Info("Augmentation summary persisted",
		zap.String("tenant", tenant),
		zap.String("subject", result.Subject),
		zap.Int("inserted", inserted))
}
