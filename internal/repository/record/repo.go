// Package record persists knowledge records as JSON documents under a
// collection's FT index prefix.
package record

import (
	"context"
	"fmt"
	"strings"

	"github.com/prolix-oc/Enspira-sub000/internal/db"
	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

// store is the consumer interface for records (ISP).
type store interface {
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements usecase/gateway.RecordRepository.
type Repo struct {
	store store
}

// New creates a record repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Count returns the number of records stored in a collection.
func (r *Repo) Count(ctx context.Context, tenant string, kind domain.Kind) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName(tenant, kind), "*")
	if err != nil {
		return 0, fmt.Errorf("search count %s:%s: %w", tenant, kind, err)
	}
	return n, nil
}

// Keys returns the set of record keys stored in a collection.
func (r *Repo) Keys(ctx context.Context, tenant string, kind domain.Kind) (map[string]struct{}, error) {
	prefix := recordPrefix(tenant, kind)
	stored, err := r.store.Scan(ctx, prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan records %s:%s: %w", tenant, kind, err)
	}

	keys := make(map[string]struct{}, len(stored))
	for _, k := range stored {
		keys[strings.TrimPrefix(k, prefix)] = struct{}{}
	}
	return keys, nil
}

// InsertMulti writes records in a single pipelined round-trip.
// Callers are responsible for dedup; an existing key would be overwritten
// with identical identity, which keeps retried writes safe.
func (r *Repo) InsertMulti(ctx context.Context, records []domain.KnowledgeRecord) error {
	if len(records) == 0 {
		return nil
	}

	items := make([]db.JSONSetItem, 0, len(records))
	for _, rec := range records {
		data, err := marshalDoc(rec)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.Key(), err)
		}
		items = append(items, db.JSONSetItem{
			Key:  recordPrefix(rec.TenantID(), rec.Kind()) + rec.Key(),
			Path: "$",
			Data: data,
		})
	}

	if err := r.store.JSONSetMulti(ctx, items); err != nil {
		return fmt.Errorf("json.set records: %w", err)
	}
	return nil
}

func indexName(tenant string, kind domain.Kind) string {
	return fmt.Sprintf("%s%s:%s:idx", domain.KeyPrefix, tenant, kind)
}

func recordPrefix(tenant string, kind domain.Kind) string {
	return fmt.Sprintf("%s%s:%s:rec:", domain.KeyPrefix, tenant, kind)
}
