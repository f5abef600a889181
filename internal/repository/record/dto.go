package record

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

// Doc is the stored JSON shape of a knowledge record. The variant tag drives
// exhaustive payload reconstruction; search results reuse this parsing.
type Doc struct {
	Key       string    `json:"key"`
	Variant   string    `json:"variant"`
	Content   string    `json:"content"`
	Source    string    `json:"source,omitempty"`
	Speaker   string    `json:"speaker,omitempty"`
	URLs      []string  `json:"urls,omitempty"`
	Vector    []float32 `json:"vector"`
	CreatedAt int64     `json:"created_at"`
}

// Payload reconstructs the tagged payload union from the stored variant.
func (d Doc) Payload() (domain.Payload, error) {
	switch domain.Variant(d.Variant) {
	case domain.VariantDocument:
		return domain.Document{Source: d.Source, Content: d.Content, URLs: d.URLs}, nil
	case domain.VariantChatTurn:
		return domain.ChatTurn{Speaker: d.Speaker, Message: d.Content}, nil
	case domain.VariantVoiceTurn:
		return domain.VoiceTurn{Speaker: d.Speaker, Transcript: d.Content}, nil
	}
	return nil, fmt.Errorf("unknown record variant %q", d.Variant)
}

// ParseDoc decodes a stored record document. JSON.GET with path "$" wraps the
// document in a one-element array; both shapes are accepted.
func ParseDoc(data []byte) (Doc, error) {
	var d Doc
	if err := json.Unmarshal(data, &d); err == nil && d.Variant != "" {
		return d, nil
	}

	var arr []Doc
	if err := json.Unmarshal(data, &arr); err != nil {
		return Doc{}, fmt.Errorf("parse record doc: %w", err)
	}
	if len(arr) == 0 {
		return Doc{}, fmt.Errorf("parse record doc: empty result")
	}
	return arr[0], nil
}

func marshalDoc(rec domain.KnowledgeRecord) ([]byte, error) {
	d := Doc{
		Key:       rec.Key(),
		Variant:   string(rec.Payload().Variant()),
		Content:   rec.Payload().Body(),
		Vector:    rec.Embedding(),
		CreatedAt: rec.CreatedAt(),
	}
	if d.CreatedAt == 0 {
		d.CreatedAt = time.Now().UnixMilli()
	}

	switch p := rec.Payload().(type) {
	case domain.Document:
		d.Source = p.Source
		d.URLs = p.URLs
	case domain.ChatTurn:
		d.Speaker = p.Speaker
	case domain.VoiceTurn:
		d.Speaker = p.Speaker
	}

	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal record doc: %w", err)
	}
	return data, nil
}
