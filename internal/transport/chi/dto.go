package chi

import (
	"errors"
	"fmt"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

// Error codes returned to API clients.
const (
	codeBadRequest        = "bad_request"
	codeValidationFailed  = "validation_failed"
	codeNotFound          = "not_found"
	codeAlreadyExists     = "already_exists"
	codeDimMismatch       = "vector_dim_mismatch"
	codeConfiguration     = "configuration_error"
	codeProvisioning      = "provisioning_failed"
	codeEmbeddingProvider = "embedding_provider_error"
	codeUpstreamTimeout   = "upstream_timeout"
	codeInternalError     = "internal_error"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

// RetrieveRequest asks for ranked context for one user message.
type RetrieveRequest struct {
	TenantID          string `json:"tenant_id"`
	Kind              string `json:"kind"`
	Message           string `json:"message"`
	AllowAugmentation *bool  `json:"allow_augmentation"` // default true
}

// ContextEntryResponse is one selected knowledge snippet.
type ContextEntryResponse struct {
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Tier   string  `json:"tier,omitempty"`
	Source string  `json:"source"`
}

// SignalsResponse mirrors the quality signals of the rerank pass.
type SignalsResponse struct {
	HighCount          int     `json:"high_count"`
	AvgTop5            float64 `json:"avg_top5"`
	BelowAcceptablePct float64 `json:"below_acceptable_pct"`
}

// RetrieveResponse is the ranked context for a message.
type RetrieveResponse struct {
	Entries   []ContextEntryResponse `json:"entries"`
	Signals   SignalsResponse        `json:"signals"`
	Augmented bool                   `json:"augmented"`
}

// RecordInput is one record of an ingest batch.
type RecordInput struct {
	Key        string   `json:"key"`
	Variant    string   `json:"variant"`
	Content    string   `json:"content,omitempty"`
	Source     string   `json:"source,omitempty"`
	Speaker    string   `json:"speaker,omitempty"`
	Message    string   `json:"message,omitempty"`
	Transcript string   `json:"transcript,omitempty"`
	URLs       []string `json:"urls,omitempty"`
}

// IngestRequest is a bulk record write.
type IngestRequest struct {
	Records []RecordInput `json:"records"`
}

// IngestResponse reports the write outcome.
type IngestResponse struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// HealthResponse is the aggregated health report.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// recordFromInput builds the domain record for one ingest item.
func recordFromInput(in RecordInput, tenant string, kind domain.Kind) (domain.KnowledgeRecord, error) {
	var payload domain.Payload
	switch domain.Variant(in.Variant) {
	case domain.VariantDocument:
		payload = domain.Document{Source: in.Source, Content: in.Content, URLs: in.URLs}
	case domain.VariantChatTurn:
		payload = domain.ChatTurn{Speaker: in.Speaker, Message: in.Message}
	case domain.VariantVoiceTurn:
		payload = domain.VoiceTurn{Speaker: in.Speaker, Transcript: in.Transcript}
	default:
		return domain.KnowledgeRecord{}, fmt.Errorf("unknown variant %q", in.Variant)
	}
	return domain.NewRecord(in.Key, tenant, kind, payload)
}

func contextToResponse(rc domain.RankedContext) RetrieveResponse {
	resp := RetrieveResponse{
		Entries: make([]ContextEntryResponse, len(rc.Entries)),
		Signals: SignalsResponse{
			HighCount:          rc.Signals.HighCount,
			AvgTop5:            rc.Signals.AvgTop5,
			BelowAcceptablePct: rc.Signals.BelowAcceptablePct,
		},
		Augmented: rc.Augmented,
	}
	for i, e := range rc.Entries {
		resp.Entries[i] = ContextEntryResponse{
			Text:   e.Text,
			Score:  e.Score,
			Tier:   string(e.Tier),
			Source: string(e.Source),
		}
	}
	return resp
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrConfiguration,
		domain.ErrProvisioning,
		domain.ErrVectorDimMismatch,
		domain.ErrUpstreamTimeout,
		domain.ErrUpstreamMalformed,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}
