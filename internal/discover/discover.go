// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover wires candidate generation, selection, and optional
// multi-source verification into one discovery run, then hands the run to
// the configured sinks.
//
// Only invalid input fails a discovery. Generator failures yield a seed-only
// result, and store, graph, or cache failures are reported as warnings on
// the returned run.
package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/concept-engine/internal/cache"
	"github.com/pdiddy/concept-engine/internal/evidence"
	"github.com/pdiddy/concept-engine/internal/fusion"
	"github.com/pdiddy/concept-engine/internal/generate"
	"github.com/pdiddy/concept-engine/internal/graph"
	"github.com/pdiddy/concept-engine/internal/metrics"
	"github.com/pdiddy/concept-engine/internal/selector"
	"github.com/pdiddy/concept-engine/pkg/types"
)

const (
	defaultCount      = 10
	verifyConcurrency = 4
	sinkTimeout       = 10 * time.Second
)

// Request describes one discovery.
type Request struct {
	Concept     string   `json:"concept"`
	Disciplines []string `json:"disciplines,omitempty"`

	// MaxConcepts caps the number of depth-1 nodes; zero uses the selector bounds.
	MaxConcepts int `json:"max_concepts,omitempty"`

	// Deep runs multi-source verification on every edge.
	Deep bool `json:"deep,omitempty"`

	// NoCache bypasses the result cache for lookup and write.
	NoCache bool `json:"-"`
}

// Collector gathers raw per-source data for one relation.
type Collector interface {
	Collect(ctx context.Context, a, b, relation string, reasoner evidence.Reasoner) fusion.SourceData
}

// RunStore persists finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, run types.Run) error
}

// Pipeline runs discoveries.
type Pipeline struct {
	generator generate.Generator
	selector  *selector.Selector
	opts      selector.Options
	count     int
	timeout   time.Duration

	verifier  *fusion.MultiSourceVerifier
	collector Collector
	reasoner  evidence.Reasoner

	store    RunStore
	graph    graph.Sink
	cache    cache.Cache
	cacheTTL time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithSelectorOptions sets the selection bounds (default selector.DefaultOptions).
func WithSelectorOptions(o selector.Options) Option { return func(p *Pipeline) { p.opts = o } }

// WithCount sets how many candidates are requested from the generator.
func WithCount(n int) Option { return func(p *Pipeline) { p.count = n } }

// WithTimeout bounds one discovery. Whatever was scored when it expires is
// returned.
func WithTimeout(d time.Duration) Option { return func(p *Pipeline) { p.timeout = d } }

// WithVerification enables deep verification. reasoner may be nil.
func WithVerification(v *fusion.MultiSourceVerifier, c Collector, reasoner evidence.Reasoner) Option {
	return func(p *Pipeline) {
		p.verifier, p.collector, p.reasoner = v, c, reasoner
	}
}

// WithStore persists every run.
func WithStore(s RunStore) Option { return func(p *Pipeline) { p.store = s } }

// WithGraph mirrors every run into a graph database.
func WithGraph(g graph.Sink) Option { return func(p *Pipeline) { p.graph = g } }

// WithCache serves repeated requests from c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(p *Pipeline) { p.cache, p.cacheTTL = c, ttl }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// WithMetrics counts discovery runs.
func WithMetrics(m *metrics.Metrics) Option { return func(p *Pipeline) { p.metrics = m } }

// New returns a pipeline over gen and sel.
func New(gen generate.Generator, sel *selector.Selector, opts ...Option) *Pipeline {
	p := &Pipeline{
		generator: gen,
		selector:  sel,
		opts:      selector.DefaultOptions(),
		count:     defaultCount,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p
}

// Discover runs one discovery. The only error it returns wraps
// selector.ErrInvalidInput.
func (p *Pipeline) Discover(ctx context.Context, req Request) (types.Run, error) {
	start := p.now()
	req.Concept = strings.TrimSpace(req.Concept)
	if req.Concept == "" {
		p.metrics.IncDiscoveryRun("invalid")
		return types.Run{}, fmt.Errorf("%w: concept is empty", selector.ErrInvalidInput)
	}
	if req.MaxConcepts < 0 {
		p.metrics.IncDiscoveryRun("invalid")
		return types.Run{}, fmt.Errorf("%w: max_concepts must not be negative", selector.ErrInvalidInput)
	}

	key := cache.Key(req.Concept, req.Disciplines)
	if run, ok := p.cached(ctx, key, req); ok {
		p.metrics.IncDiscoveryRun("cached")
		return run, nil
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var warnings []string
	count := p.count
	if req.MaxConcepts > count {
		count = req.MaxConcepts
	}
	candidates, err := p.generator.Generate(ctx, generate.Request{
		Seed:        req.Concept,
		Disciplines: req.Disciplines,
		Count:       count,
	})
	if err != nil {
		p.logger.Warn("candidate generation failed", "concept", req.Concept, "error", err)
		warnings = append(warnings, fmt.Sprintf("candidate generation failed: %v", err))
		candidates = nil
	}
	if err == nil && len(candidates) == 0 {
		warnings = append(warnings, "generator returned no candidates")
	}

	nodes, err := p.selector.Select(ctx, req.Concept, candidates, p.selectOptions(req))
	if err != nil {
		p.metrics.IncDiscoveryRun("invalid")
		return types.Run{}, err
	}

	edges := make([]types.Edge, 0, len(nodes)-1)
	for _, n := range nodes[1:] {
		edges = append(edges, types.Edge{
			Source:      nodes[0].ID,
			Target:      n.ID,
			Relation:    n.Relation,
			Weight:      n.Similarity,
			Credibility: n.Credibility,
		})
	}

	if req.Deep {
		warnings = append(warnings, p.verify(ctx, req.Concept, nodes[1:], edges)...)
	}
	if ctx.Err() != nil {
		warnings = append(warnings, "discovery deadline reached; result may be partial")
	}

	run := types.Run{
		ID:          p.newID(),
		Concept:     req.Concept,
		Disciplines: req.Disciplines,
		Nodes:       nodes,
		Edges:       edges,
		Warnings:    warnings,
		CreatedAt:   start.UTC(),
		Duration:    p.now().Sub(start),
	}
	// Deep runs carry fused edge scores that a shallow request must not see.
	cacheable := len(warnings) == 0 && !req.NoCache && !req.Deep
	run.Warnings = append(run.Warnings, p.sink(ctx, run, key, cacheable)...)

	p.metrics.IncDiscoveryRun("ok")
	p.logger.Info("discovery complete",
		"run_id", run.ID, "concept", run.Concept, "nodes", len(run.Nodes),
		"warnings", len(run.Warnings), "duration", run.Duration)
	return run, nil
}

func (p *Pipeline) selectOptions(req Request) selector.Options {
	opts := p.opts
	if req.MaxConcepts > 0 && req.MaxConcepts < opts.TargetMax {
		opts.TargetMax = req.MaxConcepts
		opts.TargetMin = min(opts.TargetMin, opts.TargetMax)
	}
	return opts
}

// verify replaces the credibility of each edge with the fused multi-source
// score. Edges without any evidence keep their estimate.
func (p *Pipeline) verify(ctx context.Context, seed string, nodes []types.ScoredNode, edges []types.Edge) []string {
	if p.verifier == nil || p.collector == nil {
		return []string{"deep verification requested but not configured"}
	}

	unsupported := make([]bool, len(edges))
	var g errgroup.Group
	g.SetLimit(verifyConcurrency)
	for i := range edges {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			data := p.collector.Collect(ctx, seed, nodes[i].Label, edges[i].Relation, p.reasoner)
			v := p.verifier.Verify(seed, nodes[i].Label, data)
			if v.EvidenceCount == 0 {
				unsupported[i] = true
				return nil
			}
			edges[i].Credibility = v.Score
			edges[i].Level = v.Level
			return nil
		})
	}
	_ = g.Wait()

	var warnings []string
	for i, u := range unsupported {
		if u {
			warnings = append(warnings, fmt.Sprintf("no evidence found for %s -> %s", seed, nodes[i].Label))
		}
	}
	return warnings
}

func (p *Pipeline) cached(ctx context.Context, key string, req Request) (types.Run, bool) {
	if p.cache == nil || req.NoCache || req.Deep {
		return types.Run{}, false
	}
	data, ok := p.cache.Get(ctx, key)
	if !ok {
		return types.Run{}, false
	}
	var run types.Run
	if err := json.Unmarshal(data, &run); err != nil {
		p.logger.Warn("discarding unreadable cache entry", "key", key, "error", err)
		p.cache.Delete(ctx, key)
		return types.Run{}, false
	}
	if req.MaxConcepts > 0 && len(run.Nodes)-1 > req.MaxConcepts {
		return types.Run{}, false
	}
	run.Cached = true
	p.logger.Debug("discovery served from cache", "key", key, "run_id", run.ID)
	return run, true
}

// sink hands run to each configured sink and returns their failures as
// warnings. Sinks run on a context detached from the request deadline so a
// slow discovery is still recorded.
func (p *Pipeline) sink(ctx context.Context, run types.Run, key string, cacheable bool) []string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	var warnings []string
	if p.store != nil {
		if err := p.store.SaveRun(ctx, run); err != nil {
			p.logger.Warn("saving run failed", "run_id", run.ID, "error", err)
			warnings = append(warnings, fmt.Sprintf("store: %v", err))
		}
	}
	if p.graph != nil {
		if err := p.graph.Write(ctx, run.ID, run.Nodes, run.Edges); err != nil {
			p.logger.Warn("graph write failed", "run_id", run.ID, "error", err)
			warnings = append(warnings, fmt.Sprintf("graph: %v", err))
		}
	}
	if p.cache != nil && cacheable {
		data, err := json.Marshal(run)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("cache: %v", err))
		} else {
			p.cache.Set(ctx, key, data, p.cacheTTL)
		}
	}
	return warnings
}
