package augment

import (
	"errors"
	"testing"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

func TestParseInference_WellFormed(t *testing.T) {
	raw := "QUERY: current go release\nSUBJECT: Go releases\nFRESHNESS: month"

	q, err := parseInference(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Query != "current go release" {
		t.Errorf("got query %q", q.Query)
	}
	if q.Subject != "Go releases" {
		t.Errorf("got subject %q", q.Subject)
	}
	if q.Freshness != domain.FreshnessMonth {
		t.Errorf("got freshness %q", q.Freshness)
	}
}

func TestParseInference_QueryOnly(t *testing.T) {
	q, err := parseInference("QUERY: capital of mongolia")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Subject != q.Query {
		t.Errorf("expected subject to default to query, got %q", q.Subject)
	}
	if q.Freshness != domain.FreshnessAny {
		t.Errorf("expected any freshness, got %q", q.Freshness)
	}
}

func TestParseInference_OptOut(t *testing.T) {
	for _, raw := range []string{"NONE", "NONE\n", "  NONE  "} {
		_, err := parseInference(raw)
		if !errors.Is(err, domain.ErrAugmentationOptedOut) {
			t.Errorf("parseInference(%q): expected ErrAugmentationOptedOut, got %v", raw, err)
		}
	}
}

func TestParseInference_LenientRepair(t *testing.T) {
	// Fenced, bulleted, lower-cased tags still parse on the second pass.
	raw := "```\n- query: latest cve for openssl\n- freshness: week\n```"

	q, err := parseInference(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Query != "latest cve for openssl" {
		t.Errorf("got query %q", q.Query)
	}
	if q.Freshness != domain.FreshnessWeek {
		t.Errorf("got freshness %q", q.Freshness)
	}
}

func TestParseInference_LenientOptOut(t *testing.T) {
	_, err := parseInference("```\nnone\n```")
	if !errors.Is(err, domain.ErrAugmentationOptedOut) {
		t.Errorf("expected ErrAugmentationOptedOut, got %v", err)
	}
}

func TestParseInference_Malformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "I think you should search for cats"} {
		_, err := parseInference(raw)
		if !errors.Is(err, domain.ErrUpstreamMalformed) {
			t.Errorf("parseInference(%q): expected ErrUpstreamMalformed, got %v", raw, err)
		}
	}
}

func TestParseInference_UnknownFreshnessDegrades(t *testing.T) {
	q, err := parseInference("QUERY: something\nFRESHNESS: decade")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Freshness != domain.FreshnessAny {
		t.Errorf("expected unknown freshness to degrade to any, got %q", q.Freshness)
	}
}
