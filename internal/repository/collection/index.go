package collection

import (
	"github.com/prolix-oc/Enspira-sub000/internal/db"
	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

// buildIndex constructs the FT index definition for a tenant collection:
// key TAG (dedup lookups), content TEXT, variant TAG, and the HNSW cosine
// vector field sized to the collection dimension.
func buildIndex(col domain.Collection, hnsw HNSWConfig) *db.IndexDefinition {
	return db.NewIndex(indexName(col.TenantID(), col.Kind())).
		OnJSON().
		Prefix(recordPrefix(col.TenantID(), col.Kind())).
		Tag("$.key", "key").
		Tag("$.variant", "variant").
		Text("$.content", "content").
		VectorHNSW("$.vector", "vector", col.Dimension(), db.DistanceCosine, hnsw.M, hnsw.EFConstruct).
		Build()
}
