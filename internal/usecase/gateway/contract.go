package gateway

import (
	"context"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

// CollectionRepository defines the storage contract for collection lifecycle.
type CollectionRepository interface {
	Create(ctx context.Context, col domain.Collection) error
	Get(ctx context.Context, tenant string, kind domain.Kind) (domain.Collection, error)
	Exists(ctx context.Context, tenant string, kind domain.Kind) (bool, error)
	VerifyIndex(ctx context.Context, tenant string, kind domain.Kind) error
	Drop(ctx context.Context, tenant string, kind domain.Kind) error
}

// RecordRepository defines the storage contract for knowledge records.
type RecordRepository interface {
	Count(ctx context.Context, tenant string, kind domain.Kind) (int, error)
	Keys(ctx context.Context, tenant string, kind domain.Kind) (map[string]struct{}, error)
	InsertMulti(ctx context.Context, records []domain.KnowledgeRecord) error
}
