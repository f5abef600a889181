package rerank

import "context"

// Oracle scores documents against a query in a second relevance pass. Scores
// are returned aligned with the documents slice.
type Oracle interface {
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
}
