package domain

// Freshness hints how recent web search results should be.
type Freshness string

// Freshness hints accepted by the search provider.
const (
	FreshnessAny   Freshness = ""
	FreshnessDay   Freshness = "day"
	FreshnessWeek  Freshness = "week"
	FreshnessMonth Freshness = "month"
)

// ParseFreshness maps a free-form hint to a known freshness value.
// Unknown hints degrade to FreshnessAny.
func ParseFreshness(s string) Freshness {
	switch Freshness(s) {
	case FreshnessDay, FreshnessWeek, FreshnessMonth:
		return Freshness(s)
	}
	return FreshnessAny
}

// SearchQuery is an inferred web search request.
type SearchQuery struct {
	Subject   string // compact subject the summary will be keyed by
	Query     string
	Freshness Freshness
}

// ResultLink is a single web search hit.
type ResultLink struct {
	URL    string
	Title  string
	Source string
}

// AugmentationResult is the outcome of the web augmentation chain. It is
// returned as an extra context entry and persisted as a KnowledgeRecord of
// kind KindGeneral for future reuse.
type AugmentationResult struct {
	Subject    string
	Summary    string
	SourceURLs []string
}

// Record converts the augmentation result into a persistable KnowledgeRecord.
func (a AugmentationResult) Record(tenantID string) (KnowledgeRecord, error) {
	return NewRecord(SubjectKey(a.Subject), tenantID, KindGeneral, Document{
		Content: a.Summary,
		URLs:    a.SourceURLs,
	})
}
