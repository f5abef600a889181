// Package gateway manages tenant collection lifecycle and record ingestion.
//
// A collection moves through three states: absent (no metadata, no index),
// unloaded (provisioned in storage but not verified by this process), and
// loaded (index verified, dimension cached in memory). EnsureReady drives a
// collection to loaded and is safe to call from concurrent requests.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/prolix-oc/Enspira-sub000/internal/db"
	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

// Service owns collection state transitions and deduplicated inserts.
type Service struct {
	collections CollectionRepository
	records     RecordRepository
	dimension   int
	logger      *zap.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	loaded map[string]domain.Collection
}

// New creates a gateway service. dimension is the embedding width every
// collection in this deployment is provisioned with.
func New(collections CollectionRepository, records RecordRepository, dimension int, logger *zap.Logger) *Service {
	return &Service{
		collections: collections,
		records:     records,
		dimension:   dimension,
		logger:      logger,
		loaded:      make(map[string]domain.Collection),
	}
}

// EnsureReady drives the collection for tenant and kind to the loaded state,
// provisioning it first when absent. Concurrent callers for the same
// collection share a single provisioning attempt.
func (s *Service) EnsureReady(ctx context.Context, tenant string, kind domain.Kind) (domain.Collection, error) {
	name := tenant + ":" + string(kind)

	s.mu.RLock()
	col, ok := s.loaded[name]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	v, err, _ := s.group.Do(name, func() (any, error) {
		return s.ensure(ctx, tenant, kind)
	})
	if err != nil {
		return domain.Collection{}, err
	}
	return v.(domain.Collection), nil
}

func (s *Service) ensure(ctx context.Context, tenant string, kind domain.Kind) (domain.Collection, error) {
	name := tenant + ":" + string(kind)

	// Another waiter may have finished while we queued for the flight.
	s.mu.RLock()
	col, ok := s.loaded[name]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	exists, err := s.collections.Exists(ctx, tenant, kind)
	if err != nil {
		return domain.Collection{}, domain.NewStageError(domain.StageGateway, domain.ErrProvisioning, err, "check collection")
	}

	if !exists {
		if err := s.provision(ctx, tenant, kind); err != nil {
			return domain.Collection{}, err
		}
	}

	col, err = s.collections.Get(ctx, tenant, kind)
	if err != nil {
		return domain.Collection{}, domain.NewStageError(domain.StageGateway, domain.ErrProvisioning, err, "read collection metadata")
	}

	if err := s.collections.VerifyIndex(ctx, tenant, kind); err != nil {
		return domain.Collection{}, domain.NewStageError(domain.StageGateway, domain.ErrProvisioning, err, "verify index")
	}

	s.mu.Lock()
	s.loaded[name] = col
	s.mu.Unlock()

	s.logger.Info("Collection loaded",
		zap.String("tenant", tenant),
		zap.String("kind", string(kind)),
		zap.Int("dimension", col.Dimension()))

	return col, nil
}

// provision creates metadata and index, tolerating a lost creation race
// against another process.
func (s *Service) provision(ctx context.Context, tenant string, kind domain.Kind) error {
	col, err := domain.NewCollection(tenant, kind, s.dimension)
	if err != nil {
		return domain.NewStageError(domain.StageGateway, domain.ErrConfiguration, err, "build collection")
	}

	err = s.collections.Create(ctx, col)
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) && !errors.Is(err, db.ErrIndexExists) {
		return domain.NewStageError(domain.StageGateway, domain.ErrProvisioning, err, "create collection")
	}

	s.logger.Info("Collection provisioned",
		zap.String("tenant", tenant),
		zap.String("kind", string(kind)))
	return nil
}

// Insert writes records into the collection, skipping keys that already
// exist. When the stored count already equals len(records) the whole insert
// is treated as a replay and skipped without a write. Returns how many
// records were actually inserted.
func (s *Service) Insert(ctx context.Context, tenant string, kind domain.Kind, records []domain.KnowledgeRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	if _, err := s.EnsureReady(ctx, tenant, kind); err != nil {
		return 0, err
	}

	count, err := s.records.Count(ctx, tenant, kind)
	if err != nil {
		return 0, domain.NewStageError(domain.StagePersist, domain.ErrProvisioning, err, "count records")
	}
	if count == len(records) {
		s.logger.Debug("Insert skipped, record count matches",
			zap.String("tenant", tenant),
			zap.String("kind", string(kind)),
			zap.Int("count", count))
		return 0, nil
	}

	existing, err := s.records.Keys(ctx, tenant, kind)
	if err != nil {
		return 0, domain.NewStageError(domain.StagePersist, domain.ErrProvisioning, err, "list record keys")
	}

	fresh := make([]domain.KnowledgeRecord, 0, len(records))
	for _, rec := range records {
		if _, ok := existing[rec.Key()]; ok {
			continue
		}
		fresh = append(fresh, rec)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if err := s.records.InsertMulti(ctx, fresh); err != nil {
		return 0, domain.NewStageError(domain.StagePersist, domain.ErrProvisioning, err, "insert records")
	}

	s.logger.Info("Records inserted",
		zap.String("tenant", tenant),
		zap.String("kind", string(kind)),
		zap.Int("inserted", len(fresh)),
		zap.Int("skipped", len(records)-len(fresh)))

	return len(fresh), nil
}

// Reset drops the collection and re-provisions it empty. The collection
// returns to the unloaded state until the next EnsureReady.
func (s *Service) Reset(ctx context.Context, tenant string, kind domain.Kind) error {
	name := tenant + ":" + string(kind)

	s.mu.Lock()
	delete(s.loaded, name)
	s.mu.Unlock()

	if err := s.collections.Drop(ctx, tenant, kind); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.NewStageError(domain.StageGateway, domain.ErrProvisioning, err, "drop collection")
	}

	if err := s.provision(ctx, tenant, kind); err != nil {
		return fmt.Errorf("reprovision after reset: %w", err)
	}

	s.logger.Info("Collection reset",
		zap.String("tenant", tenant),
		zap.String("kind", string(kind)))
	return nil
}

// Dimension returns the embedding width collections are provisioned with.
func (s *Service) Dimension() int { return s.dimension }
