// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pdiddy/concept-engine/internal/cache"
	"github.com/pdiddy/concept-engine/internal/discover"
	"github.com/pdiddy/concept-engine/internal/evidence"
	"github.com/pdiddy/concept-engine/internal/fusion"
	"github.com/pdiddy/concept-engine/internal/generate"
	"github.com/pdiddy/concept-engine/internal/graph"
	"github.com/pdiddy/concept-engine/internal/metrics"
	"github.com/pdiddy/concept-engine/internal/selector"
	"github.com/pdiddy/concept-engine/internal/similarity"
	"github.com/pdiddy/concept-engine/internal/store"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// app holds the collaborators built from one configuration. Components are
// created on first use so that commands only pay for what they touch.
type app struct {
	cfg      types.Config
	metrics  *metrics.Metrics
	registry *prometheus.Registry

	sim     *similarity.Adapter
	checker *evidence.Checker
	gen     *generate.OpenAIGenerator
	genErr  error
	genDone bool

	closers []func()
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics()
	if err := m.Register(reg); err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	return &app{cfg: cfg, metrics: m, registry: reg}, nil
}

// close releases every opened resource in reverse order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// similarity returns the adapter for the configured provider. Without an
// API key the adapter still works and yields the fallback value.
func (a *app) similarity(ctx context.Context) *similarity.Adapter {
	if a.sim != nil {
		return a.sim
	}
	cfg := a.cfg.Similarity

	var embedder similarity.Embedder
	switch {
	case cfg.APIKey == "":
		logger.Warn("no similarity API key configured; similarity will use the fallback value", "provider", cfg.Provider)
	case cfg.Provider == "gemini":
		e, err := similarity.NewGeminiEmbedder(ctx, cfg.AIConfig)
		if err != nil {
			logger.Warn("gemini embedder unavailable", "error", err)
			break
		}
		embedder = e
		a.closers = append(a.closers, func() { e.Close() })
	default:
		e, err := similarity.NewOpenAIEmbedder(cfg.AIConfig)
		if err != nil {
			logger.Warn("openai embedder unavailable", "error", err)
			break
		}
		embedder = e
	}

	a.sim = similarity.New(embedder, cfg,
		similarity.WithLogger(logger),
		similarity.WithMetrics(a.metrics))
	return a.sim
}

func (a *app) evidence() *evidence.Checker {
	if a.checker == nil {
		client := &http.Client{Timeout: a.cfg.Evidence.Timeout}
		a.checker = evidence.NewChecker(client, a.cfg.Evidence, logger)
	}
	return a.checker
}

// generator returns the model-backed generator, or nil when no API key is
// configured.
func (a *app) generator() (*generate.OpenAIGenerator, error) {
	if a.genDone {
		return a.gen, a.genErr
	}
	a.genDone = true
	if a.cfg.Generator.APIKey == "" {
		logger.Warn("no generator API key configured; discoveries will be seed-only")
		return nil, nil
	}
	a.gen, a.genErr = generate.NewOpenAIGenerator(a.cfg.Generator)
	return a.gen, a.genErr
}

// reasoner returns the generator as an evidence.Reasoner, or a nil
// interface when there is none.
func (a *app) reasoner() evidence.Reasoner {
	gen, err := a.generator()
	if err != nil || gen == nil {
		return nil
	}
	return gen
}

func (a *app) scorer() *fusion.Scorer {
	return fusion.NewScorer(a.cfg.Fusion, fusion.WithLogger(logger), fusion.WithMetrics(a.metrics))
}

func (a *app) verifier() (*fusion.MultiSourceVerifier, error) {
	strategy, err := fusion.ParseStrategy(a.cfg.Fusion.Strategy)
	if err != nil {
		return nil, err
	}
	return fusion.NewMultiSourceVerifier(a.scorer(), strategy, logger), nil
}

// store opens the run store, or returns nil when persistence is disabled.
func (a *app) store() (*store.Store, error) {
	if a.cfg.Store.DataDir == "" {
		return nil, nil
	}
	s, err := store.Open(a.cfg.Store)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { s.Close() })
	return s, nil
}

func (a *app) cache() cache.Cache {
	c := cache.New(a.cfg.Cache, logger)
	if r, ok := c.(*cache.Redis); ok {
		a.closers = append(a.closers, func() { r.Close() })
	}
	return c
}

// graph connects the graph sink, or returns nil when none is configured
// or the database is unreachable.
func (a *app) graph(ctx context.Context) *graph.Neo4jSink {
	if a.cfg.Graph.URI == "" {
		return nil
	}
	g, err := graph.NewNeo4jSink(ctx, a.cfg.Graph, logger)
	if err != nil {
		logger.Warn("graph sink disabled", "error", err)
		return nil
	}
	g.EnsureIndex(ctx)
	a.closers = append(a.closers, func() { g.Close(context.Background()) })
	return g
}

// pipelineOptions controls which sinks a pipeline writes to.
type pipelineOptions struct {
	persist bool
	cache   bool
}

func (a *app) pipeline(ctx context.Context, po pipelineOptions) (*discover.Pipeline, *store.Store, error) {
	sim := a.similarity(ctx)
	checker := a.evidence()
	sel := selector.New(sim, checker,
		selector.WithLogger(logger),
		selector.WithMetrics(a.metrics))

	var gen generate.Generator = generate.StaticGenerator{}
	g, err := a.generator()
	if err != nil {
		return nil, nil, err
	}
	if g != nil {
		gen = g
	}

	verifier, err := a.verifier()
	if err != nil {
		return nil, nil, err
	}

	opts := []discover.Option{
		discover.WithSelectorOptions(selector.OptionsFrom(a.cfg.Selector)),
		discover.WithCount(a.cfg.Generator.Count),
		discover.WithTimeout(a.cfg.Server.RequestTimeout),
		discover.WithVerification(verifier, checker, a.reasoner()),
		discover.WithLogger(logger),
		discover.WithMetrics(a.metrics),
	}

	var st *store.Store
	if po.persist {
		st, err = a.store()
		if err != nil {
			return nil, nil, err
		}
		if st != nil {
			opts = append(opts, discover.WithStore(st))
		}
	}
	if po.cache {
		opts = append(opts, discover.WithCache(a.cache(), a.cfg.Cache.TTL))
	}
	if g := a.graph(ctx); g != nil {
		opts = append(opts, discover.WithGraph(g))
	}

	return discover.New(gen, sel, opts...), st, nil
}
