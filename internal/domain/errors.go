package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrConfiguration signals configuration drift (dimension mismatch, missing schema).
	ErrConfiguration = errors.New("configuration error")
	// ErrProvisioning signals a failed collection create or load.
	ErrProvisioning = errors.New("provisioning failed")
	// ErrVectorDimMismatch signals an embedding dimension mismatch against the collection schema.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrUpstreamTimeout signals an external call exceeding its deadline.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrUpstreamMalformed signals an unparseable upstream response.
	ErrUpstreamMalformed = errors.New("upstream response malformed")
	// ErrNoData signals zero candidates with augmentation disallowed or opted out.
	ErrNoData = errors.New("no data")
	// ErrPartialExtraction signals that some page extractions failed. Non-fatal.
	ErrPartialExtraction = errors.New("partial extraction failure")
	// ErrAugmentationOptedOut signals that query inference decided no external
	// knowledge is needed. Distinct from inference failure: callers skip silently.
	ErrAugmentationOptedOut = errors.New("augmentation opted out")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// Stage identifies which pipeline stage produced an error.
type Stage string

// Pipeline stages, in call order.
const (
	StageEmbedding  Stage = "embedding"
	StageGateway    Stage = "gateway"
	StageSearch     Stage = "search"
	StageRerank     Stage = "rerank"
	StageInference  Stage = "inference"
	StageWebSearch  Stage = "web_search"
	StageExtraction Stage = "extraction"
	StageSummarize  Stage = "summarize"
	StagePersist    Stage = "persist"
)

// StageError tags an error with the pipeline stage that produced it,
// letting callers branch on stage and kind instead of matching message text.
type StageError struct {
	Stage   Stage
	Kind    error // one of the sentinel errors above
	Detail  string
	At      time.Time
	wrapped error
}

// NewStageError creates a stage-tagged error wrapping cause.
func NewStageError(stage Stage, kind, cause error, detail string) *StageError {
	return &StageError{
		Stage:   stage,
		Kind:    kind,
		Detail:  detail,
		At:      time.Now().UTC(),
		wrapped: cause,
	}
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.wrapped != nil {
		msg += ": " + e.wrapped.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the wrapped cause to errors.Is.
func (e *StageError) Unwrap() []error {
	if e.wrapped == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.wrapped}
}

// StageOf returns the pipeline stage of err, or "" if err carries no stage tag.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
