package chi

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

func TestRecordFromInput_Document(t *testing.T) {
	rec, err := recordFromInput(RecordInput{
		Key:     "go-spec",
		Variant: "document",
		Source:  "wiki",
		Content: "the go spec",
		URLs:    []string{"https://go.dev/ref/spec"},
	}, "tenant-1", domain.KindGeneral)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Payload().ContextText(); got != "[wiki]\nthe go spec" {
		t.Errorf("context text: got %q", got)
	}
}

func TestRecordFromInput_ChatTurn(t *testing.T) {
	rec, err := recordFromInput(RecordInput{
		Key:     "turn-42",
		Variant: "chat_turn",
		Speaker: "sam",
		Message: "hello there",
	}, "tenant-1", domain.KindChat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Payload().ContextText(); got != "sam said: hello there" {
		t.Errorf("context text: got %q", got)
	}
}

func TestRecordFromInput_VoiceTurn(t *testing.T) {
	rec, err := recordFromInput(RecordInput{
		Key:        "turn-43",
		Variant:    "voice_turn",
		Speaker:    "kim",
		Transcript: "hello",
	}, "tenant-1", domain.KindVoice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Payload().ContextText(); got != "kim said (voice): hello" {
		t.Errorf("context text: got %q", got)
	}
}

func TestRecordFromInput_UnknownVariant(t *testing.T) {
	_, err := recordFromInput(RecordInput{
		Key:     "k",
		Variant: "image",
		Content: "x",
	}, "tenant-1", domain.KindGeneral)
	if err == nil {
		t.Fatal("expected error for unknown variant")
	}
}

func TestRecordFromInput_ValidationPropagates(t *testing.T) {
	_, err := recordFromInput(RecordInput{
		Key:     "",
		Variant: "document",
		Content: "x",
	}, "tenant-1", domain.KindGeneral)
	if err == nil {
		t.Error("expected validation error for empty key")
	}
}

func TestContextToResponse(t *testing.T) {
	rc := domain.RankedContext{
		Entries: []domain.ContextEntry{
			{Text: "a", Score: 7.2, Tier: domain.TierHigh, Source: domain.SourceReranked},
			{Text: "b", Score: 0, Source: domain.SourceAugmented},
		},
		Signals:   domain.QualitySignals{HighCount: 1, AvgTop5: 7.2, BelowAcceptablePct: 0.5},
		Augmented: true,
	}

	resp := contextToResponse(rc)
	if len(resp.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(resp.Entries))
	}
	if resp.Entries[0].Tier != "high" || resp.Entries[0].Source != "reranked" {
		t.Errorf("entry 0: got tier %q source %q", resp.Entries[0].Tier, resp.Entries[0].Source)
	}
	if resp.Entries[1].Tier != "" {
		t.Errorf("untiered entry should serialize empty, got %q", resp.Entries[1].Tier)
	}
	if !resp.Augmented || resp.Signals.HighCount != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestSafeDomainMessage(t *testing.T) {
	wrapped := fmt.Errorf("provisioning tenant-1: %w", domain.ErrProvisioning)
	if got := safeDomainMessage(wrapped); got != domain.ErrProvisioning.Error() {
		t.Errorf("sentinel: got %q", got)
	}
	if got := safeDomainMessage(errors.New("redis connection string leaked")); got != "internal error" {
		t.Errorf("non-sentinel: got %q", got)
	}
}
