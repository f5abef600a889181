package augment

import (
	"context"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

// Completer produces a model completion for an instruction and content pair.
type Completer interface {
	Complete(ctx context.Context, instruction, content string) (string, error)
}

// Searcher runs an inferred query against the web search provider.
type Searcher interface {
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.ResultLink, error)
}

// Extractor fetches result pages and returns their concatenated readable
// text along with the number of pages that failed.
type Extractor interface {
	Extract(ctx context.Context, links []domain.ResultLink) (string, int, error)
}

// Persister writes the augmentation summary back to the knowledge store.
type Persister interface {
	Insert(ctx context.Context, tenant string, kind domain.Kind, records []domain.KnowledgeRecord) (int, error)
}
