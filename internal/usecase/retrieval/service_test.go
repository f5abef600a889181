package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
	"github.com/prolix-oc/Enspira-sub000/internal/usecase/rerank"
)

// --- Mocks ---

type mockEmbedder struct {
	vector []float32
	err    error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vector}, nil
}

type mockGateway struct {
	col domain.Collection
	err error
}

func (m *mockGateway) EnsureReady(_ context.Context, tenant string, kind domain.Kind) (domain.Collection, error) {
	if m.err != nil {
		return domain.Collection{}, m.err
	}
	if m.col.Dimension() == 0 {
		return domain.ReconstructCollection(tenant, kind, 4, time.Now().UnixMilli()), nil
	}
	return m.col, nil
}

type mockSearch struct {
	candidates []domain.SearchCandidate
	err        error
	calls      int
}

func (m *mockSearch) Search(_ context.Context, _ string, _ domain.Kind, _ []float32, _ int, _ float64) ([]domain.SearchCandidate, error) {
	m.calls++
	return m.candidates, m.err
}

type mockReranker struct {
	result  rerank.Result
	trigger bool
	calls   int
}

func (m *mockReranker) Rerank(_ context.Context, _ string, _ []domain.SearchCandidate) rerank.Result {
	m.calls++
	return m.result
}

func (m *mockReranker) ShouldAugment(_ domain.QualitySignals) bool {
	return m.trigger
}

type mockAugmenter struct {
	result domain.AugmentationResult
	err    error
	calls  int
}

func (m *mockAugmenter) Augment(_ context.Context, _, _ string) (domain.AugmentationResult, error) {
	m.calls++
	if m.err != nil {
		return domain.AugmentationResult{}, m.err
	}
	return m.result, nil
}

func okVector() []float32 { return []float32{1, 0, 0, 0} }

func rankedCandidates() rerank.Result {
	return rerank.Result{
		Primary: []domain.RerankedCandidate{
			{
				SearchCandidate: domain.SearchCandidate{Key: "a", Similarity: 0.9, Payload: domain.Document{Content: "alpha"}},
				Relevance:       7.0,
				Tier:            domain.TierHigh,
			},
			{
				SearchCandidate: domain.SearchCandidate{Key: "b", Similarity: 0.8, Payload: domain.Document{Content: "beta"}},
				Relevance:       5.0,
				Tier:            domain.TierAcceptable,
			},
		},
		Signals: domain.QualitySignals{HighCount: 2, AvgTop5: 6.0},
	}
}

func newService(emb *mockEmbedder, gw *mockGateway, search *mockSearch, rr *mockReranker, aug *mockAugmenter) *Service {
	return New(emb, gw, search, rr, aug, DefaultConfig(), zap.NewNop())
}

// --- Tests ---

func TestRetrieve_HappyPath(t *testing.T) {
	search := &mockSearch{candidates: []domain.SearchCandidate{{Key: "a", Payload: domain.Document{Content: "alpha"}}}}
	rr := &mockReranker{result: rankedCandidates()}
	aug := &mockAugmenter{}
	svc := newService(&mockEmbedder{vector: okVector()}, &mockGateway{}, search, rr, aug)

	rc, err := svc.RetrieveContext(context.Background(), "tenant-a", domain.KindGeneral, "question", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rc.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(rc.Entries))
	}
	if rc.Entries[0].Source != domain.SourceReranked {
		t.Errorf("expected reranked source, got %q", rc.Entries[0].Source)
	}
	if rc.Augmented {
		t.Error("augmentation should not run when the trigger is off")
	}
	if aug.calls != 0 {
		t.Errorf("expected no augment calls, got %d", aug.calls)
	}
}

func TestRetrieve_TriggerRunsAugmentation(t *testing.T) {
	search := &mockSearch{candidates: []domain.SearchCandidate{{Key: "a", Payload: domain.Document{Content: "alpha"}}}}
	rr := &mockReranker{result: rankedCandidates(), trigger: true}
	aug := &mockAugmenter{result: domain.AugmentationResult{Subject: "s", Summary: "fresh facts"}}
	svc := newService(&mockEmbedder{vector: okVector()}, &mockGateway{}, search, rr, aug)

	rc, err := svc.RetrieveContext(context.Background(), "tenant-a", domain.KindGeneral, "question", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rc.Augmented {
		t.Fatal("expected augmented context")
	}
	last := rc.Entries[len(rc.Entries)-1]
	if last.Source != domain.SourceAugmented {
		t.Errorf("expected augmented entry last, got %q", last.Source)
	}
	if last.Text != "fresh facts" {
		t.Errorf("got %q", last.Text)
	}
}

func TestRetrieve_TriggerSuppressedWhenDisallowed(t *testing.T) {
	search := &mockSearch{candidates: []domain.SearchCandidate{{Key: "a", Payload: domain.Document{Content: "alpha"}}}}
	rr := &mockReranker{result: rankedCandidates(), trigger: true}
	aug := &mockAugmenter{}
	svc := newService(&mockEmbedder{vector: okVector()}, &mockGateway{}, search, rr, aug)

	rc, err := svc.RetrieveContext(context.Background(), "tenant-a", domain.KindGeneral, "question", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.Augmented || aug.calls != 0 {
		t.Error("augmentation must not run when disallowed")
	}
}

func TestRetrieve_EmptyCollectionAugments(t *testing.T) {
	search := &mockSearch{}
	rr := &mockReranker{}
	aug := &mockAugmenter{result: domain.AugmentationResult{Subject: "s", Summary: "from the web"}}
	svc := newService(&mockEmbedder{vector: okVector()}, &mockGateway{}, search, rr, aug)

	rc, err := svc.RetrieveContext(context.Background(), "tenant-a", domain.KindGeneral, "question", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rc.Augmented {
		t.Fatal("expected augmentation on empty collection")
	}
	if len(rc.Entries) != 1 || rc.Entries[0].Text != "from the web" {
		t.Fatalf("expected single augmented entry, got %+v", rc.Entries)
	}
	if rr.calls != 0 {
		t.Error("rerank should not run with zero candidates")
	}
}

func TestRetrieve_EmptyCollectionNoAugmentationMarker(t *testing.T) {
	aug := &mockAugmenter{}
	svc := newService(&mockEmbedder{vector: okVector()}, &mockGateway{}, &mockSearch{}, &mockReranker{}, aug)

	rc, err := svc.RetrieveContext(context.Background(), "tenant-a", domain.KindGeneral, "question", false)
	if err != nil {
		t.Fatalf("empty context is a marker, not an error: %v", err)
	}
	if !rc.Empty() {
		t.Error("expected explicit empty context")
	}
	if aug.calls != 0 {
		t.Error("augmentation must not run when disallowed")
	}
}

func TestRetrieve_AugmentationFailureDegrades(t *testing.T) {
	aug := &mockAugmenter{err: domain.NewStageError(domain.StageWebSearch, domain.ErrUpstreamTimeout, nil, "search down")}
	svc := newService(&mockEmbedder{vector: okVector()}, &mockGateway{}, &mockSearch{}, &mockReranker{}, aug)

	rc, err := svc.RetrieveContext(context.Background(), "tenant-a", domain.KindGeneral, "question", true)
	if err != nil {
		t.Fatalf("augmentation failure must degrade, got %v", err)
	}
	if !rc.Empty() {
		t.Error("expected empty context after failed augmentation")
	}
}

func TestRetrieve_GatewayFailureIsFatal(t *testing.T) {
	gw := &mockGateway{err: domain.NewStageError(domain.StageGateway, domain.ErrProvisioning, nil, "index gone")}
	svc := newService(&mockEmbedder{vector: okVector()}, gw, &mockSearch{}, &mockReranker{}, &mockAugmenter{})

	_, err := svc.RetrieveContext(context.Background(), "tenant-a", domain.KindGeneral, "question", true)
	if !errors.Is(err, domain.ErrProvisioning) {
		t.Fatalf("expected provisioning error, got %v", err)
	}
}

func TestRetrieve_DimensionMismatchIsFatal(t *testing.T) {
	svc := newService(&mockEmbedder{vector: []float32{1, 0}}, &mockGateway{}, &mockSearch{}, &mockReranker{}, &mockAugmenter{})

	_, err := svc.RetrieveContext(context.Background(), "tenant-a", domain.KindGeneral, "question", true)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestRetrieve_EmbeddingFailureReturnsEmptyContext(t *testing.T) {
	emb := &mockEmbedder{err: errors.New("provider: 503")}
	search := &mockSearch{}
	svc := newService(emb, &mockGateway{}, search, &mockReranker{}, &mockAugmenter{})

	rc, err := svc.RetrieveContext(context.Background(), "tenant-a", domain.KindGeneral, "question", true)
	if err != nil {
		t.Fatalf("embedding failure must degrade to empty context, got %v", err)
	}
	if !rc.Empty() {
		t.Error("expected empty context")
	}
	if search.calls != 0 {
		t.Error("search should not run without an embedding")
	}
}

func TestRetrieve_SearchFailureReturnsEmptyContext(t *testing.T) {
	search := &mockSearch{err: errors.New("FT.SEARCH: timeout")}
	svc := newService(&mockEmbedder{vector: okVector()}, &mockGateway{}, search, &mockReranker{}, &mockAugmenter{})

	rc, err := svc.RetrieveContext(context.Background(), "tenant-a", domain.KindGeneral, "question", true)
	if err != nil {
		t.Fatalf("search failure must degrade to empty context, got %v", err)
	}
	if !rc.Empty() {
		t.Error("expected empty context")
	}
}

func TestRetrieve_FallbackEntriesTaggedSimilarity(t *testing.T) {
	search := &mockSearch{candidates: []domain.SearchCandidate{{Key: "a", Payload: domain.Document{Content: "alpha"}}}}
	rr := &mockReranker{result: rerank.Result{
		Primary: []domain.RerankedCandidate{
			{SearchCandidate: domain.SearchCandidate{Key: "a", Similarity: 0.9, Payload: domain.Document{Content: "alpha"}}, Relevance: 0.9},
		},
		Fallback: true,
	}}
	svc := newService(&mockEmbedder{vector: okVector()}, &mockGateway{}, search, rr, &mockAugmenter{})

	rc, err := svc.RetrieveContext(context.Background(), "tenant-a", domain.KindGeneral, "question", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.Entries[0].Source != domain.SourceSimilarity {
		t.Errorf("expected similarity source, got %q", rc.Entries[0].Source)
	}
}
