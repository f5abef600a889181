package retrieval

import (
	"context"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
	"github.com/prolix-oc/Enspira-sub000/internal/usecase/rerank"
)

// Gateway readies tenant collections before they are searched.
type Gateway interface {
	EnsureReady(ctx context.Context, tenant string, kind domain.Kind) (domain.Collection, error)
}

// SearchRepository runs the vector similarity query.
type SearchRepository interface {
	Search(ctx context.Context, tenant string, kind domain.Kind, vector []float32, topK int, scoreThreshold float64) ([]domain.SearchCandidate, error)
}

// Reranker scores candidates and decides whether augmentation should run.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.SearchCandidate) rerank.Result
	ShouldAugment(sig domain.QualitySignals) bool
}

// Augmenter runs the web augmentation chain.
type Augmenter interface {
	Augment(ctx context.Context, tenant, message string) (domain.AugmentationResult, error)
}
