// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package selector turns a noisy list of generated candidates into a bounded,
// ordered set of scored nodes.
//
// Selection scores every candidate against the seed, estimates its
// credibility, sorts by similarity (ties by credibility, then generation
// order), keeps candidates at or above the threshold, and then relaxes or
// truncates the kept set so that its size falls within [TargetMin, TargetMax]
// whenever enough candidates exist.
package selector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/concept-engine/internal/credibility"
	"github.com/pdiddy/concept-engine/internal/metrics"
	"github.com/pdiddy/concept-engine/internal/similarity"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// ErrInvalidInput is returned for an empty seed or invalid bounds. It is the
// only error Select returns.
var ErrInvalidInput = errors.New("invalid input")

// Scorer computes seed-to-candidate similarity with provenance.
type Scorer interface {
	ScoreBatch(ctx context.Context, reference string, candidates []string) []similarity.Score
}

// Authority reports whether an authoritative source knows a label.
// Implementations absorb their own errors and report false.
type Authority interface {
	Exists(ctx context.Context, label string) bool
}

// Options bounds one selection.
type Options struct {
	TargetMin int     `validate:"gt=0"`
	TargetMax int     `validate:"gt=0,gtefield=TargetMin"`
	Threshold float64 `validate:"gte=0,lte=1"`

	// SeedDiscipline labels the seed node; empty means unknown.
	SeedDiscipline string
}

// DefaultOptions returns min 3, max 9, threshold 0.62.
func DefaultOptions() Options {
	return Options{TargetMin: 3, TargetMax: 9, Threshold: 0.62}
}

// OptionsFrom converts selector config into Options.
func OptionsFrom(cfg types.SelectorConfig) Options {
	return Options{TargetMin: cfg.TargetMin, TargetMax: cfg.TargetMax, Threshold: cfg.Threshold}
}

const authorityConcurrency = 4

// Selector performs candidate selection.
type Selector struct {
	scorer    Scorer
	authority Authority
	validate  *validator.Validate
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option customizes a Selector.
type Option func(*Selector)

// WithLogger sets the selection logger.
func WithLogger(l *slog.Logger) Option { return func(s *Selector) { s.logger = l } }

// WithMetrics records selection durations.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Selector) { s.metrics = m } }

// New returns a Selector. authority may be nil, in which case no candidate
// counts as authoritatively sourced.
func New(scorer Scorer, authority Authority, opts ...Option) *Selector {
	s := &Selector{
		scorer:    scorer,
		authority: authority,
		validate:  validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

type scored struct {
	cand  types.Candidate
	order int
	sim   float64
	cred  float64
	found bool
}

// Select returns the seed node (depth 0) followed by the selected candidates
// (depth 1) in non-increasing similarity order.
//
// Blank and duplicate candidates (same node id) are ignored. When ctx ends
// before scoring completes, candidates whose similarity could not be computed
// are left out and the nodes already scored are returned.
func (s *Selector) Select(ctx context.Context, seed string, candidates []types.Candidate, opts Options) ([]types.ScoredNode, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil, fmt.Errorf("%w: seed concept is empty", ErrInvalidInput)
	}
	if err := s.validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, describe(err))
	}

	start := time.Now()
	defer func() { s.metrics.ObserveSelectionDuration(time.Since(start).Seconds()) }()

	cands := dedupe(candidates)
	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = c.Name
	}

	var scores []similarity.Score
	if len(cands) > 0 {
		scores = s.scorer.ScoreBatch(ctx, seed, names)
	}
	found := s.lookup(ctx, append([]string{seed}, names...))
	seedFound, found := found[0], found[1:]

	items := make([]scored, 0, len(cands))
	dropped := 0
	for i, c := range cands {
		if scores[i].Origin == similarity.OriginCancelled {
			dropped++
			continue
		}
		sim := clamp01(scores[i].Float64())
		items = append(items, scored{
			cand:  c,
			order: i,
			sim:   sim,
			cred:  credibility.Estimate(sim, found[i]),
			found: found[i],
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.sim != b.sim {
			return a.sim > b.sim
		}
		if a.cred != b.cred {
			return a.cred > b.cred
		}
		return a.order < b.order
	})

	keep := boundedCount(items, opts)

	nodes := make([]types.ScoredNode, 0, keep+1)
	nodes = append(nodes, types.ScoredNode{
		ID:          types.NodeID(seed, opts.SeedDiscipline),
		Label:       seed,
		Discipline:  opts.SeedDiscipline,
		Similarity:  1.0,
		Credibility: credibility.Estimate(1.0, seedFound),
		SourceKind:  sourceKind(seedFound),
		Depth:       0,
	})
	for _, it := range items[:keep] {
		nodes = append(nodes, types.ScoredNode{
			ID:          types.NodeID(it.cand.Name, it.cand.Discipline),
			Label:       it.cand.Name,
			Discipline:  it.cand.Discipline,
			Relation:    it.cand.Relation,
			Principle:   it.cand.Principle,
			Similarity:  it.sim,
			Credibility: it.cred,
			SourceKind:  sourceKind(it.found),
			Depth:       1,
		})
	}

	s.logger.Info("selection complete",
		"seed", seed, "candidates", len(cands), "selected", keep,
		"threshold", opts.Threshold, "dropped_on_cancel", dropped)
	return nodes, nil
}

// boundedCount returns how many of the sorted items to keep: all items at or
// above the threshold, raised to TargetMin when enough items exist, and
// capped at TargetMax.
func boundedCount(items []scored, opts Options) int {
	pass := 0
	for pass < len(items) && items[pass].sim >= opts.Threshold {
		pass++
	}
	n := pass
	if n < opts.TargetMin {
		n = min(opts.TargetMin, len(items))
	}
	if n > opts.TargetMax {
		n = opts.TargetMax
	}
	return n
}

// lookup checks labels against the authority concurrently. Results are
// positional; a nil authority or a finished context reports false.
func (s *Selector) lookup(ctx context.Context, labels []string) []bool {
	found := make([]bool, len(labels))
	if s.authority == nil {
		return found
	}
	var g errgroup.Group
	g.SetLimit(authorityConcurrency)
	for i, label := range labels {
		g.Go(func() error {
			if ctx.Err() == nil {
				found[i] = s.authority.Exists(ctx, label)
			}
			return nil
		})
	}
	_ = g.Wait()
	return found
}

func dedupe(candidates []types.Candidate) []types.Candidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]types.Candidate, 0, len(candidates))
	for _, c := range candidates {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		id := types.NodeID(c.Name, c.Discipline)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, c)
	}
	return out
}

func sourceKind(found bool) types.SourceKind {
	if found {
		return types.SourceAuthoritative
	}
	return types.SourceGenerated
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

// describe flattens validator errors into one readable line.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s (got %v)", fe.Field(), fe.Tag(), fe.Value()))
		}
	}
	return strings.Join(parts, "; ")
}
