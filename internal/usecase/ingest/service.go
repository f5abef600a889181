// Package ingest vectorizes knowledge records in bulk and writes them into
// a tenant collection.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

// Service embeds and persists record batches.
type Service struct {
	embedder domain.BatchEmbedder
	gateway  Gateway
	logger   *zap.Logger
}

// New creates an ingest service.
func New(embedder domain.BatchEmbedder, gateway Gateway, logger *zap.Logger) *Service {
	return &Service{embedder: embedder, gateway: gateway, logger: logger}
}

// Ingest embeds records that carry no vector yet and inserts the batch.
// Records arriving with a vector keep it, subject to the dimension check.
// Returns how many records were actually inserted after dedup.
func (s *Service) Ingest(ctx context.Context, tenant string, kind domain.Kind, records []domain.KnowledgeRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	col, err := s.gateway.EnsureReady(ctx, tenant, kind)
	if err != nil {
		return 0, err
	}

	var texts []string
	var missing []int
	for i, rec := range records {
		if len(rec.Embedding()) == 0 {
			texts = append(texts, rec.Payload().ContextText())
			missing = append(missing, i)
		}
	}

	if len(texts) > 0 {
		batch, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return 0, domain.NewStageError(domain.StageEmbedding, domain.ErrEmbeddingProviderError, err, "embed batch")
		}
		if len(batch.Embeddings) != len(texts) {
			return 0, domain.NewStageError(domain.StageEmbedding, domain.ErrUpstreamMalformed, nil,
				fmt.Sprintf("embedding count %d does not match batch size %d", len(batch.Embeddings), len(texts)))
		}
		for j, i := range missing {
			records[i] = records[i].WithEmbedding(batch.Embeddings[j])
		}
	}

	for _, rec := range records {
		if err := domain.CheckDimension(rec.Embedding(), col); err != nil {
			return 0, fmt.Errorf("record %q: %w", rec.Key(), err)
		}
	}

	inserted, err := s.gateway.Insert(ctx, tenant, kind, records)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Batch ingested",
		zap.String("tenant", tenant),
		zap.String("kind", string(kind)),
		zap.Int("received", len(records)),
		zap.Int("inserted", inserted))

	return inserted, nil
}
