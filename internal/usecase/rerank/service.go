// Package rerank runs the second-pass relevance scoring over similarity
// search candidates and computes the quality signals that drive the
// augmentation trigger.
package rerank

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
	"github.com/prolix-oc/Enspira-sub000/internal/metrics"
)

// Config holds the tier cut-offs and trigger thresholds. Scores from the
// oracle are open real-valued, so the cut-offs are deployment-tunable.
type Config struct {
	High               float64 // tier cut-off for high relevance
	Acceptable         float64 // tier cut-off for acceptable relevance
	Low                float64 // tier cut-off for low relevance, below is rejected
	Moderate           float64 // avg-of-top-5 floor, below trips the trigger
	MinPrimary         int     // minimum primary candidates before backfill
	MinHighCount       int     // fewer high-tier hits than this trips the trigger
	BelowAcceptableMax float64 // below-acceptable fraction above this trips the trigger
	FallbackTopK       int     // candidates kept when the oracle is unavailable
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		High:               6.0,
		Acceptable:         4.5,
		Low:                1.4,
		Moderate:           5.0,
		MinPrimary:         3,
		MinHighCount:       2,
		BelowAcceptableMax: 0.6,
		FallbackTopK:       5,
	}
}

// Result is the outcome of one rerank pass.
type Result struct {
	Primary  []domain.RerankedCandidate // selected candidates, best first
	Signals  domain.QualitySignals
	Fallback bool // oracle unavailable, similarity order used instead
}

// Service scores candidates through the oracle and classifies them.
type Service struct {
	oracle Oracle
	cfg    Config
	logger *zap.Logger
}

// New creates a rerank service.
func New(oracle Oracle, cfg Config, logger *zap.Logger) *Service {
	if cfg.MinPrimary <= 0 {
		cfg.MinPrimary = 3
	}
	if cfg.FallbackTopK <= 0 {
		cfg.FallbackTopK = 5
	}
	if cfg.MinHighCount <= 0 {
		cfg.MinHighCount = 2
	}
	return &Service{oracle: oracle, cfg: cfg, logger: logger}
}

// Rerank scores candidates against the query and selects the primary set.
// When no candidate yields scoreable text the pass reports empty signals, so
// the trigger reads it the same as insufficient quality. An oracle failure
// degrades to similarity order instead of failing retrieval.
func (s *Service) Rerank(ctx context.Context, query string, candidates []domain.SearchCandidate) Result {
	scoreable, texts := scoreableTexts(candidates)
	if len(scoreable) == 0 {
		metrics.RerankRequestsTotal.WithLabelValues("empty").Inc()
		return Result{}
	}

	scores, err := s.oracle.Rerank(ctx, query, texts)
	if err != nil || len(scores) != len(texts) {
		metrics.RerankRequestsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("Rerank oracle unavailable, falling back to similarity order",
			zap.Int("candidates", len(texts)), zap.Error(err))
		return s.fallback(scoreable)
	}
	metrics.RerankRequestsTotal.WithLabelValues("ok").Inc()

	ranked := make([]domain.RerankedCandidate, len(scoreable))
	for i, cand := range scoreable {
		tier := s.classify(scores[i])
		metrics.RerankTierTotal.WithLabelValues(string(tier)).Inc()
		ranked[i] = domain.RerankedCandidate{
			SearchCandidate: cand,
			Relevance:       scores[i],
			Tier:            tier,
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Relevance > ranked[j].Relevance
	})

	return Result{
		Primary: s.selectPrimary(ranked, scoreable),
		Signals: s.signals(ranked),
	}
}

// ShouldAugment evaluates the trigger. Any one tripping signal is enough.
func (s *Service) ShouldAugment(sig domain.QualitySignals) bool {
	if sig.HighCount < s.cfg.MinHighCount {
		return true
	}
	if sig.AvgTop5 < s.cfg.Moderate {
		return true
	}
	if sig.BelowAcceptablePct > s.cfg.BelowAcceptableMax {
		return true
	}
	return false
}

func (s *Service) classify(score float64) domain.Tier {
	switch {
	case score >= s.cfg.High:
		return domain.TierHigh
	case score >= s.cfg.Acceptable:
		return domain.TierAcceptable
	case score >= s.cfg.Low:
		return domain.TierLow
	default:
		return domain.TierRejected
	}
}

// selectPrimary keeps the acceptable-and-above candidates, backfilling from
// the low tier and then raw similarity order until MinPrimary is reached.
// Whenever candidates exist the primary set is non-empty.
func (s *Service) selectPrimary(ranked []domain.RerankedCandidate, raw []domain.SearchCandidate) []domain.RerankedCandidate {
	var primary []domain.RerankedCandidate
	seen := make(map[string]struct{})

	for _, rc := range ranked {
		if rc.Tier == domain.TierHigh || rc.Tier == domain.TierAcceptable {
			primary = append(primary, rc)
			seen[rc.Key] = struct{}{}
		}
	}

	if len(primary) < s.cfg.MinPrimary {
		for _, rc := range ranked {
			if len(primary) >= s.cfg.MinPrimary {
				break
			}
			if rc.Tier != domain.TierLow {
				continue
			}
			if _, ok := seen[rc.Key]; ok {
				continue
			}
			primary = append(primary, rc)
			seen[rc.Key] = struct{}{}
		}
	}

	if len(primary) < s.cfg.MinPrimary {
		bySim := make([]domain.SearchCandidate, len(raw))
		copy(bySim, raw)
		sort.SliceStable(bySim, func(i, j int) bool {
			return bySim[i].Similarity > bySim[j].Similarity
		})
		for _, cand := range bySim {
			if len(primary) >= s.cfg.MinPrimary {
				break
			}
			if _, ok := seen[cand.Key]; ok {
				continue
			}
			primary = append(primary, domain.RerankedCandidate{
				SearchCandidate: cand,
				Relevance:       cand.Similarity,
				Tier:            domain.TierRejected,
			})
			seen[cand.Key] = struct{}{}
		}
	}

	return primary
}

func (s *Service) signals(ranked []domain.RerankedCandidate) domain.QualitySignals {
	sig := domain.QualitySignals{}
	if len(ranked) == 0 {
		return sig
	}

	below := 0
	for _, rc := range ranked {
		if rc.Tier == domain.TierHigh {
			sig.HighCount++
		}
		if rc.Relevance < s.cfg.Acceptable {
			below++
		}
	}
	sig.BelowAcceptablePct = float64(below) / float64(len(ranked))

	n := 5
	if len(ranked) < n {
		n = len(ranked)
	}
	var sum float64
	for _, rc := range ranked[:n] {
		sum += rc.Relevance
	}
	sig.AvgTop5 = sum / float64(n)

	return sig
}

// fallback returns the top scoreable candidates by raw similarity. Signals
// stay at their zero value, which reads as degraded quality to the trigger.
func (s *Service) fallback(candidates []domain.SearchCandidate) Result {
	bySim := make([]domain.SearchCandidate, len(candidates))
	copy(bySim, candidates)
	sort.SliceStable(bySim, func(i, j int) bool {
		return bySim[i].Similarity > bySim[j].Similarity
	})
	if len(bySim) > s.cfg.FallbackTopK {
		bySim = bySim[:s.cfg.FallbackTopK]
	}

	primary := make([]domain.RerankedCandidate, len(bySim))
	for i, cand := range bySim {
		primary[i] = domain.RerankedCandidate{
			SearchCandidate: cand,
			Relevance:       cand.Similarity,
			Tier:            domain.TierRejected,
		}
	}
	return Result{Primary: primary, Fallback: true}
}

// scoreableTexts collects the context text of each candidate, dropping those
// whose payload yields nothing to score.
func scoreableTexts(candidates []domain.SearchCandidate) ([]domain.SearchCandidate, []string) {
	scoreable := make([]domain.SearchCandidate, 0, len(candidates))
	texts := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Payload == nil {
			continue
		}
		text := cand.Payload.ContextText()
		if text == "" {
			continue
		}
		scoreable = append(scoreable, cand)
		texts = append(texts, text)
	}
	return scoreable, texts
}
