// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fusion computes a trust score for a claimed relation from
// heterogeneous evidence items.
//
// A Scorer takes a weighted mean of item confidences, where each source type
// has a fixed authority weight. It adds a bonus for source diversity and
// subtracts a penalty for detected conflicts. A Detector finds pairwise
// conflicts and Resolve arbitrates them without discarding evidence.
// VerifyCitation checks identifiers embedded in an item. A
// MultiSourceVerifier turns raw per-source lookups into evidence and scores
// them end to end.
package fusion

import (
	"fmt"
	"log/slog"

	"github.com/pdiddy/concept-engine/internal/metrics"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// Scoring constants.
const (
	diversityStep     = 0.05
	diversityCap      = 0.15
	conflictStep      = 0.1
	conflictCap       = 0.3
	lowScoreThreshold = 0.5

	defaultMinEvidence = 2
)

// Warning strings attached to CredibilityResult.
const (
	WarnNoEvidence  = "no supporting evidence"
	WarnSingleType  = "all evidence comes from one source type; no cross-validation"
	WarnLowScore    = "low credibility score; use this relation with caution"
	WarnUnknownType = "evidence with an unrecognized source type was weighted neutrally"
)

// Scorer fuses evidence into a CredibilityResult. The zero value is not
// usable; construct with NewScorer.
type Scorer struct {
	minEvidence int
	detector    Detector
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option customizes a Scorer.
type Option func(*Scorer)

// WithLogger sets the scorer logger.
func WithLogger(l *slog.Logger) Option { return func(s *Scorer) { s.logger = l } }

// WithMetrics counts detected conflicts by type.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Scorer) { s.metrics = m } }

// NewScorer returns a Scorer for cfg. Zero fields take their defaults
// (minimum evidence 2, conflict threshold 0.6).
func NewScorer(cfg types.FusionConfig, opts ...Option) *Scorer {
	s := &Scorer{
		minEvidence: cfg.MinEvidence,
		detector:    Detector{Threshold: cfg.ConflictThreshold},
	}
	if s.minEvidence <= 0 {
		s.minEvidence = defaultMinEvidence
	}
	if s.detector.Threshold <= 0 {
		s.detector.Threshold = DefaultConflictThreshold
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Detector returns the conflict detector used by s.
func (s *Scorer) Detector() Detector { return s.detector }

// Score fuses evidence into a CredibilityResult. It never fails: thin,
// uniform, or conflicting evidence lowers the score and adds warnings.
// Confidences are clamped to [0,1] and unknown source types earn no
// diversity bonus; use ValidateEvidence to reject such input instead.
func (s *Scorer) Score(evidence []types.EvidenceItem) types.CredibilityResult {
	if len(evidence) == 0 {
		return types.CredibilityResult{
			Score:     0,
			Level:     types.LevelQuestionable,
			Conflicts: []types.ConflictRecord{},
			Warnings:  []string{WarnNoEvidence},
		}
	}

	base := s.base(evidence)
	distinct := distinctTypes(evidence)
	bonus := max(0, min(diversityCap, float64(distinct-1)*diversityStep))

	conflicts := s.detector.Detect(evidence)
	for _, c := range conflicts {
		s.metrics.IncConflict(string(c.Type))
	}
	penalty := conflictPenalty(conflicts)

	score := clamp01(base + bonus - penalty)
	result := types.CredibilityResult{
		Score:           score,
		Level:           types.LevelFor(score),
		EvidenceCount:   len(evidence),
		SourceDiversity: bonus,
		Conflicts:       conflicts,
		Warnings:        s.warnings(evidence, distinct, len(conflicts), score),
	}

	s.logger.Debug("credibility calculated",
		"evidence", len(evidence), "base", base, "bonus", bonus,
		"penalty", penalty, "score", score, "level", result.Level)
	return result
}

// base is the authority-weighted mean of confidences, scaled down when fewer
// than the minimum number of items are present.
func (s *Scorer) base(evidence []types.EvidenceItem) float64 {
	var sum, weights float64
	for _, e := range evidence {
		w := e.SourceType.Weight()
		sum += clamp01(e.Confidence) * w
		weights += w
	}
	if weights == 0 {
		return 0
	}
	b := sum / weights
	if len(evidence) < s.minEvidence {
		b *= float64(len(evidence)) / float64(s.minEvidence)
	}
	return b
}

func (s *Scorer) warnings(evidence []types.EvidenceItem, distinct, conflicts int, score float64) []string {
	count := len(evidence)
	out := []string{}
	if count < s.minEvidence {
		out = append(out, fmt.Sprintf("insufficient evidence (%d/%d); credibility may be low", count, s.minEvidence))
	}
	if distinct == 1 {
		out = append(out, WarnSingleType)
	}
	if conflicts > 0 {
		out = append(out, fmt.Sprintf("%d evidence conflict(s) detected; needs further review", conflicts))
	}
	if score < lowScoreThreshold {
		out = append(out, WarnLowScore)
	}
	for _, e := range evidence {
		if !e.SourceType.Known() {
			out = append(out, WarnUnknownType)
			break
		}
	}
	return out
}

func conflictPenalty(conflicts []types.ConflictRecord) float64 {
	var total float64
	for _, c := range conflicts {
		total += c.Severity * conflictStep
	}
	return min(conflictCap, total)
}

// distinctTypes counts the known source types present.
func distinctTypes(evidence []types.EvidenceItem) int {
	seen := make(map[types.SourceType]struct{}, len(evidence))
	for _, e := range evidence {
		if e.SourceType.Known() {
			seen[e.SourceType] = struct{}{}
		}
	}
	return len(seen)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
