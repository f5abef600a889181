package ingest

import (
	"context"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

// Gateway readies collections and persists records.
type Gateway interface {
	EnsureReady(ctx context.Context, tenant string, kind domain.Kind) (domain.Collection, error)
	Insert(ctx context.Context, tenant string, kind domain.Kind, records []domain.KnowledgeRecord) (int, error)
}
