package enspira

// Kind partitions a tenant's knowledge into separately indexed collections.
type Kind string

// Knowledge kinds.
const (
	KindGeneral  Kind = "general"
	KindDocument Kind = "document"
	KindChat     Kind = "chat"
	KindVoice    Kind = "voice"
)

// Record variants.
const (
	VariantDocument  = "document"
	VariantChatTurn  = "chat_turn"
	VariantVoiceTurn = "voice_turn"
)

// Record is one unit of knowledge to ingest. Fill the fields matching the
// variant: Content/Source/URLs for documents, Speaker/Message for chat
// turns, Speaker/Transcript for voice turns.
type Record struct {
	Key        string
	Variant    string
	Content    string
	Source     string
	Speaker    string
	Message    string
	Transcript string
	URLs       []string
}

// ContextEntry is one knowledge snippet selected for the prompt.
type ContextEntry struct {
	Text   string
	Score  float64
	Tier   string
	Source string // "reranked", "similarity" or "augmented"
}

// Signals are the quality measurements of the rerank pass.
type Signals struct {
	HighCount          int
	AvgTop5            float64
	BelowAcceptablePct float64
}

// Context is the ranked retrieval result. An empty Entries slice is the
// explicit "no additional context" marker.
type Context struct {
	Entries   []ContextEntry
	Signals   Signals
	Augmented bool
}

// Empty reports whether retrieval produced no context.
func (c Context) Empty() bool { return len(c.Entries) == 0 }

// HealthReport aggregates component health checks.
type HealthReport struct {
	Status string
	Checks map[string]string
}
