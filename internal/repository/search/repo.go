// Package search runs vector similarity queries against a loaded collection.
package search

import (
	"context"
	"fmt"

	"github.com/prolix-oc/Enspira-sub000/internal/db"
	"github.com/prolix-oc/Enspira-sub000/internal/domain"
	recordrepo "github.com/prolix-oc/Enspira-sub000/internal/repository/record"
	"github.com/prolix-oc/Enspira-sub000/internal/retry"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements usecase/retrieval.Searcher.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Search performs a KNN similarity search on a collection. The caller supplies
// an already-normalized, dimension-matched vector. Results are ordered by
// descending similarity; zero matches is a valid empty result, not an error.
func (r *Repo) Search(
	ctx context.Context, tenant string, kind domain.Kind,
	vector []float32, topK int, scoreThreshold float64,
) ([]domain.SearchCandidate, error) {
	q := &db.KNNQuery{
		IndexName:    fmt.Sprintf("%s%s:%s:idx", domain.KeyPrefix, tenant, kind),
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{"$", "__vector_score"},
	}

	// KNN search is an idempotent read and is retried with backoff.
	var sr *db.SearchResult
	err := retry.Do(ctx, func() error {
		var searchErr error
		sr, searchErr = r.store.SearchKNN(ctx, q)
		return searchErr
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s:%s: %w", tenant, kind, err)
	}

	candidates := make([]domain.SearchCandidate, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		if entry.Score < scoreThreshold {
			continue
		}

		doc, err := recordrepo.ParseDoc([]byte(entry.Fields["$"]))
		if err != nil {
			// A record that no longer parses contributes nothing.
			continue
		}
		payload, err := doc.Payload()
		if err != nil {
			continue
		}

		candidates = append(candidates, domain.SearchCandidate{
			Key:        doc.Key,
			Similarity: entry.Score,
			Payload:    payload,
		})
	}

	return candidates, nil
}
