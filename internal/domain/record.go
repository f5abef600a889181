package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind partitions a tenant's knowledge into separate collections.
type Kind string

// Knowledge kinds.
const (
	// KindGeneral holds general knowledge, including persisted augmentation summaries.
	KindGeneral Kind = "general"
	// KindDocument holds ingested source documents.
	KindDocument Kind = "document"
	// KindChat holds prior chat turns.
	KindChat Kind = "chat"
	// KindVoice holds transcribed voice turns.
	KindVoice Kind = "voice"
)

// IsValid checks whether the kind is one of the supported knowledge kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindGeneral, KindDocument, KindChat, KindVoice:
		return true
	}
	return false
}

// Variant tags the payload shape of a KnowledgeRecord.
type Variant string

// Record payload variants.
const (
	VariantDocument  Variant = "document"
	VariantChatTurn  Variant = "chat_turn"
	VariantVoiceTurn Variant = "voice_turn"
)

// Payload is the tagged union of record contents. Each variant knows how to
// render itself as prompt context, so callers never probe for shape.
type Payload interface {
	Variant() Variant
	// ContextText renders the payload as a context block for the prompt.
	ContextText() string
	// Body returns the raw text the record was embedded from.
	Body() string
}

// Document is knowledge sourced from an ingested document or a persisted
// augmentation summary.
type Document struct {
	Source  string   // canonical source name, empty for augmentation summaries
	Content string   // bounded length, see MaxContentLen
	URLs    []string // attribution for augmentation write-backs
}

// Variant implements Payload.
func (d Document) Variant() Variant { return VariantDocument }

// Body implements Payload.
func (d Document) Body() string { return d.Content }

// ContextText implements Payload.
func (d Document) ContextText() string {
	if d.Source == "" {
		return d.Content
	}
	return fmt.Sprintf("[%s]\n%s", d.Source, d.Content)
}

// ChatTurn is a prior chat message stored as knowledge.
type ChatTurn struct {
	Speaker string
	Message string
}

// Variant implements Payload.
func (c ChatTurn) Variant() Variant { return VariantChatTurn }

// Body implements Payload.
func (c ChatTurn) Body() string { return c.Message }

// ContextText implements Payload.
func (c ChatTurn) ContextText() string {
	return fmt.Sprintf("%s said: %s", c.Speaker, c.Message)
}

// VoiceTurn is a transcribed voice message stored as knowledge.
type VoiceTurn struct {
	Speaker    string
	Transcript string
}

// Variant implements Payload.
func (v VoiceTurn) Variant() Variant { return VariantVoiceTurn }

// Body implements Payload.
func (v VoiceTurn) Body() string { return v.Transcript }

// ContextText implements Payload.
func (v VoiceTurn) ContextText() string {
	return fmt.Sprintf("%s said (voice): %s", v.Speaker, v.Transcript)
}

// MaxContentLen bounds record text content.
const MaxContentLen = 16384

var keyRegex = regexp.MustCompile(`^[a-zA-Z0-9._:-]+$`)

// KnowledgeRecord is an immutable unit of stored knowledge. The key is the
// canonical identity within (tenant, kind); records are deduplicated by key,
// never mutated, and deleted only by bulk tenant reset.
type KnowledgeRecord struct {
	key       string
	tenantID  string
	kind      Kind
	payload   Payload
	embedding []float32 // L2-normalized, dimension fixed by the owning collection
	createdAt int64     // unix millis
}

// NewRecord validates and creates a KnowledgeRecord. The embedding may be
// attached later via WithEmbedding (bulk ingestion embeds in batches).
func NewRecord(key, tenantID string, kind Kind, payload Payload) (KnowledgeRecord, error) {
	if err := validateKey(key); err != nil {
		return KnowledgeRecord{}, err
	}
	if tenantID == "" {
		return KnowledgeRecord{}, fmt.Errorf("tenant id is required")
	}
	if !kind.IsValid() {
		return KnowledgeRecord{}, fmt.Errorf("invalid knowledge kind: %q", kind)
	}
	if payload == nil {
		return KnowledgeRecord{}, fmt.Errorf("payload is required")
	}
	if body := payload.Body(); body == "" {
		return KnowledgeRecord{}, fmt.Errorf("payload body is required")
	} else if len(body) > MaxContentLen {
		return KnowledgeRecord{}, fmt.Errorf("payload body too long (%d > %d)", len(body), MaxContentLen)
	}
	return KnowledgeRecord{
		key:      key,
		tenantID: tenantID,
		kind:     kind,
		payload:  payload,
	}, nil
}

// Reconstruct creates a KnowledgeRecord without validation (storage hydration).
func Reconstruct(
	key, tenantID string, kind Kind, payload Payload,
	embedding []float32, createdAt int64,
) KnowledgeRecord {
	return KnowledgeRecord{
		key:       key,
		tenantID:  tenantID,
		kind:      kind,
		payload:   payload,
		embedding: embedding,
		createdAt: createdAt,
	}
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("record key is required")
	}
	if len(key) > 128 {
		return fmt.Errorf("record key too long (max 128)")
	}
	if !keyRegex.MatchString(key) {
		return fmt.Errorf("record key must match %s", keyRegex.String())
	}
	return nil
}

// WithEmbedding returns a copy of the record carrying the given vector.
func (r KnowledgeRecord) WithEmbedding(vec []float32) KnowledgeRecord {
	r.embedding = vec
	return r
}

// Key returns the canonical identity within (tenant, kind).
func (r KnowledgeRecord) Key() string { return r.key }

// TenantID returns the owning tenant.
func (r KnowledgeRecord) TenantID() string { return r.tenantID }

// Kind returns the knowledge kind.
func (r KnowledgeRecord) Kind() Kind { return r.kind }

// Payload returns the tagged payload.
func (r KnowledgeRecord) Payload() Payload { return r.payload }

// Embedding returns the record vector (nil until embedded).
func (r KnowledgeRecord) Embedding() []float32 { return r.embedding }

// CreatedAt returns the storage timestamp in unix millis (0 until persisted).
func (r KnowledgeRecord) CreatedAt() int64 { return r.createdAt }

// SubjectKey derives a canonical record key from a free-form subject,
// e.g. "Mount  Everest height" -> "mount-everest-height".
func SubjectKey(subject string) string {
	s := strings.ToLower(strings.TrimSpace(subject))
	var b strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	key := strings.TrimSuffix(b.String(), "-")
	if len(key) > 128 {
		key = key[:128]
	}
	if key == "" {
		key = "subject"
	}
	return key
}
