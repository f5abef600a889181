package domain

// SearchCandidate is a similarity search hit, not yet relevance-checked.
type SearchCandidate struct {
	Key        string
	Similarity float64 // cosine similarity, descending in search results
	Payload    Payload
}

// Tier is the reranker's relevance classification bucket.
type Tier string

// Relevance tiers, best to worst.
const (
	TierHigh       Tier = "high"
	TierAcceptable Tier = "acceptable"
	TierLow        Tier = "low"
	TierRejected   Tier = "rejected"
)

// RerankedCandidate is a candidate with a second-pass relevance score attached.
// Scores are open real-valued, not bounded to [0,1].
type RerankedCandidate struct {
	SearchCandidate
	Relevance float64
	Tier      Tier
}

// QualitySignals are the three independent signals driving the augmentation
// trigger. One tripping signal is enough; using three avoids brittleness
// against scoring-oracle drift.
type QualitySignals struct {
	HighCount          int
	AvgTop5            float64
	BelowAcceptablePct float64 // fraction of candidates below the acceptable threshold
}

// ContextSource says how a context entry was obtained.
type ContextSource string

// Context entry sources.
const (
	SourceReranked   ContextSource = "reranked"
	SourceSimilarity ContextSource = "similarity" // rerank fallback or backfill from raw top-K
	SourceAugmented  ContextSource = "augmented"
)

// ContextEntry is one knowledge snippet selected for the prompt.
type ContextEntry struct {
	Text   string
	Score  float64
	Tier   Tier
	Source ContextSource
}

// RankedContext is the orchestrator's result: reranked candidates first, then
// the augmentation summary when one was produced.
type RankedContext struct {
	Entries   []ContextEntry
	Signals   QualitySignals
	Augmented bool
}

// Empty reports the explicit "no additional context" marker.
func (rc RankedContext) Empty() bool { return len(rc.Entries) == 0 }
