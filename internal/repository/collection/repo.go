// Package collection persists tenant collection metadata and FT indexes.
package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/prolix-oc/Enspira-sub000/internal/db"
	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

// store is the consumer interface for collections (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements usecase/gateway.CollectionRepository.
type Repo struct {
	store store
	hnsw  HNSWConfig
}

// New creates a collection repository.
func New(s store) *Repo {
	return &Repo{store: s, hnsw: HNSWConfig{M: 32, EFConstruct: 400}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// Create provisions a collection: HSET metadata then FT.CREATE index.
// On FT.CREATE failure, rolls back the HSET via DEL.
func (r *Repo) Create(ctx context.Context, col domain.Collection) error {
	metaKey := metaKey(col.TenantID(), col.Kind())
	exists, err := r.store.Exists(ctx, metaKey)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return domain.ErrAlreadyExists
	}

	indexDef := buildIndex(col, r.hnsw)
	hashData := collectionToHash(col)

	if err := r.store.HSet(ctx, metaKey, hashData); err != nil {
		return fmt.Errorf("hset collection %s: %w", col.Name(), err)
	}

	// FT.CREATE -- rollback HSET on error
	if err := r.store.CreateIndex(ctx, indexDef); err != nil {
		cleanupErr := r.store.Del(ctx, metaKey)
		return errors.Join(err, cleanupErr)
	}

	return nil
}

// Get retrieves collection metadata, including the configured dimension.
func (r *Repo) Get(ctx context.Context, tenant string, kind domain.Kind) (domain.Collection, error) {
	m, err := r.store.HGetAll(ctx, metaKey(tenant, kind))
	if err != nil {
		return domain.Collection{}, fmt.Errorf("hgetall collection %s:%s: %w", tenant, kind, err)
	}
	if len(m) == 0 {
		return domain.Collection{}, domain.ErrNotFound
	}

	return collectionFromHash(m)
}

// Exists checks whether the collection is provisioned.
func (r *Repo) Exists(ctx context.Context, tenant string, kind domain.Kind) (bool, error) {
	ok, err := r.store.Exists(ctx, metaKey(tenant, kind))
	if err != nil {
		return false, fmt.Errorf("check exists %s:%s: %w", tenant, kind, err)
	}
	return ok, nil
}

// VerifyIndex confirms the FT index backs the collection. Used by the gateway
// when moving a collection from Unloaded to Loaded.
func (r *Repo) VerifyIndex(ctx context.Context, tenant string, kind domain.Kind) error {
	ok, err := r.store.IndexExists(ctx, indexName(tenant, kind))
	if err != nil {
		return fmt.Errorf("check index %s:%s: %w", tenant, kind, err)
	}
	if !ok {
		return fmt.Errorf("index %s missing: %w", indexName(tenant, kind), domain.ErrNotFound)
	}
	return nil
}

// Drop removes a collection: backup metadata, DEL hash, FT.DROPINDEX
// (rollback HSET on error). Dropping the index deletes the records under it.
func (r *Repo) Drop(ctx context.Context, tenant string, kind domain.Kind) error {
	metaKey := metaKey(tenant, kind)

	metaBackup, err := r.store.HGetAll(ctx, metaKey)
	if err != nil {
		return fmt.Errorf("hgetall collection %s:%s: %w", tenant, kind, err)
	}
	if len(metaBackup) == 0 {
		return domain.ErrNotFound
	}

	idxName := indexName(tenant, kind)
	idxExists, err := r.store.IndexExists(ctx, idxName)
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	if !idxExists {
		return domain.ErrNotFound
	}

	if err := r.store.Del(ctx, metaKey); err != nil {
		return fmt.Errorf("del collection %s:%s: %w", tenant, kind, err)
	}

	// FT.DROPINDEX -- rollback HSET on error
	if err := r.store.DropIndex(ctx, idxName); err != nil {
		cleanupErr := r.store.HSet(ctx, metaKey, metaBackup)
		return errors.Join(err, cleanupErr)
	}

	return nil
}

// Store key patterns: enspira:collection:{tenant}:{kind},
// enspira:{tenant}:{kind}:idx, enspira:{tenant}:{kind}:rec:{key}

func metaKey(tenant string, kind domain.Kind) string {
	return fmt.Sprintf("%scollection:%s:%s", domain.KeyPrefix, tenant, kind)
}

func indexName(tenant string, kind domain.Kind) string {
	return fmt.Sprintf("%s%s:%s:idx", domain.KeyPrefix, tenant, kind)
}

func recordPrefix(tenant string, kind domain.Kind) string {
	return fmt.Sprintf("%s%s:%s:rec:", domain.KeyPrefix, tenant, kind)
}
