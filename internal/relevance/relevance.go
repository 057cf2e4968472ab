// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package relevance finds semantically close concepts that live in distant
// disciplines.
package relevance

import (
	"context"
	"log/slog"
	"sort"

	"github.com/pdiddy/concept-engine/internal/similarity"
)

// Similarity returns a similarity in [0,1] for two texts. The similarity
// adapter satisfies it.
type Similarity interface {
	Similarity(ctx context.Context, x, y string) float32
}

const (
	sameDisciplineCutoff = 0.8
	relatedCutoff        = 0.5
	boostFactor          = 0.3
	weakPenalty          = 0.8

	DefaultTopK               = 5
	DefaultSimilarityCutoff   = 0.5
	DefaultDiversityThreshold = 0.3
)

// Distance describes how two concepts relate across disciplines.
type Distance struct {
	Semantic   float64 `json:"semantic_similarity" yaml:"semantic_similarity"`
	Discipline float64 `json:"discipline_similarity" yaml:"discipline_similarity"`
	Boost      float64 `json:"cross_discipline_boost" yaml:"cross_discipline_boost"`
	Final      float64 `json:"final_score" yaml:"final_score"`
}

// Candidate is a concept with its discipline.
type Candidate struct {
	Concept    string `json:"concept" yaml:"concept"`
	Discipline string `json:"discipline" yaml:"discipline"`
}

// Relative is a candidate that passed FindDistantRelatives.
type Relative struct {
	Candidate `yaml:",inline"`
	Score     float64 `json:"score" yaml:"score"`
}

// Options tunes FindDistantRelatives. Zero fields take the defaults.
type Options struct {
	TopK               int
	SimilarityCutoff   float64
	DiversityThreshold float64
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.SimilarityCutoff <= 0 {
		o.SimilarityCutoff = DefaultSimilarityCutoff
	}
	if o.DiversityThreshold <= 0 {
		o.DiversityThreshold = DefaultDiversityThreshold
	}
	return o
}

// Finder computes cross-discipline distances.
type Finder struct {
	sim    Similarity
	logger *slog.Logger
}

// NewFinder returns a Finder backed by sim. logger may be nil.
func NewFinder(sim Similarity, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Finder{sim: sim, logger: logger}
}

// ConceptDistance rewards pairs that are semantically related but come from
// dissimilar disciplines. Pairs within one discipline keep their semantic
// score; weakly related pairs across disciplines are damped by 0.8.
func (f *Finder) ConceptDistance(ctx context.Context, a, b, discA, discB string) Distance {
	semantic := similarity.Widen(f.sim.Similarity(ctx, a, b))
	discipline := similarity.Widen(f.sim.Similarity(ctx, discA, discB))
	return distance(semantic, discipline)
}

func distance(semantic, discipline float64) Distance {
	d := Distance{
		Semantic:   semantic,
		Discipline: discipline,
		Boost:      1 + (1-discipline)*boostFactor,
	}
	switch {
	case discipline > sameDisciplineCutoff:
		d.Final = semantic
	case semantic > relatedCutoff:
		d.Final = semantic * d.Boost
	default:
		d.Final = semantic * weakPenalty
	}
	d.Final = min(1, max(0, d.Final))
	return d
}

// FindDistantRelatives returns the candidates from disciplines unlike
// coreDiscipline that still relate to core, best first. Candidates whose
// discipline similarity exceeds 1 - DiversityThreshold or whose semantic
// similarity is below SimilarityCutoff are skipped.
func (f *Finder) FindDistantRelatives(ctx context.Context, core, coreDiscipline string, candidates []Candidate, opts Options) []Relative {
	opts = opts.withDefaults()

	relatives := []Relative{}
	for _, c := range candidates {
		discipline := similarity.Widen(f.sim.Similarity(ctx, coreDiscipline, c.Discipline))
		if discipline > 1-opts.DiversityThreshold {
			continue
		}
		semantic := similarity.Widen(f.sim.Similarity(ctx, core, c.Concept))
		if semantic < opts.SimilarityCutoff {
			continue
		}
		relatives = append(relatives, Relative{Candidate: c, Score: distance(semantic, discipline).Final})
	}

	sort.SliceStable(relatives, func(i, j int) bool { return relatives[i].Score > relatives[j].Score })
	f.logger.Info("distant relatives found",
		"concept", core, "discipline", coreDiscipline, "count", len(relatives))

	if len(relatives) > opts.TopK {
		relatives = relatives[:opts.TopK]
	}
	return relatives
}
