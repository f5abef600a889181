package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestStageError_MatchesKindAndCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewStageError(StageWebSearch, ErrUpstreamTimeout, cause, "web search")

	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Error("expected errors.Is to match the kind sentinel")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to match the wrapped cause")
	}
	if errors.Is(err, ErrNoData) {
		t.Error("unexpected match against unrelated sentinel")
	}
}

func TestStageError_SurvivesWrapping(t *testing.T) {
	err := NewStageError(StagePersist, ErrProvisioning, nil, "insert records")
	wrapped := fmt.Errorf("ingest: %w", err)

	if StageOf(wrapped) != StagePersist {
		t.Errorf("expected stage persist, got %q", StageOf(wrapped))
	}
	if !errors.Is(wrapped, ErrProvisioning) {
		t.Error("expected kind sentinel to survive wrapping")
	}
}

func TestStageOf_Untagged(t *testing.T) {
	if got := StageOf(errors.New("plain")); got != "" {
		t.Errorf("expected empty stage, got %q", got)
	}
	if got := StageOf(nil); got != "" {
		t.Errorf("expected empty stage for nil, got %q", got)
	}
}
