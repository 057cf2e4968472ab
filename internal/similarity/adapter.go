// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package similarity computes normalized semantic similarity between text
// labels on top of an external embedding provider.
//
// The Adapter caches results by exact input pair, spaces upstream calls with a
// process-wide Scheduler, retries transient failures with a RetryPolicy, and
// degrades to a neutral fallback value instead of returning errors. Cache,
// scheduler, and clock are injected so that one set can be shared across a
// process and replaced in tests.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/concept-engine/internal/metrics"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// Origin records how a similarity value was obtained.
type Origin int

const (
	OriginUpstream Origin = iota
	OriginCache
	OriginFallback
	// OriginCancelled is a fallback caused by the caller's context ending.
	OriginCancelled
)

func (o Origin) String() string {
	switch o {
	case OriginUpstream:
		return "upstream"
	case OriginCache:
		return "cache"
	case OriginFallback:
		return "fallback"
	case OriginCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Score is a similarity value in [0,1] with its provenance.
type Score struct {
	Value  float32
	Origin Origin
}

// Float64 returns Value widened through its shortest decimal form, so that
// 0.7 stays 0.7 instead of 0.699999988079071.
func (s Score) Float64() float64 { return Widen(s.Value) }

// Widen converts v to float64 without float32 rounding noise.
func Widen(v float32) float64 {
	f, err := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'g', -1, 32), 64)
	if err != nil {
		return float64(v)
	}
	return f
}

const (
	defaultBatchThreshold = 4
	pairConcurrency       = 4
)

// Adapter computes similarities through an Embedder.
type Adapter struct {
	embedder       Embedder
	cache          *Cache
	sched          Scheduler
	clock          Clock
	retry          RetryPolicy
	timeout        time.Duration
	minInterval    time.Duration
	batchThreshold int
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithCache shares c instead of allocating a private cache.
func WithCache(c *Cache) Option { return func(a *Adapter) { a.cache = c } }

// WithScheduler shares s instead of a private Limiter.
func WithScheduler(s Scheduler) Option { return func(a *Adapter) { a.sched = s } }

// WithClock replaces the wall clock used for backoff and spacing.
func WithClock(c Clock) Option { return func(a *Adapter) { a.clock = c } }

// WithRetryPolicy overrides the policy derived from config.
func WithRetryPolicy(p RetryPolicy) Option { return func(a *Adapter) { a.retry = p } }

// WithLogger sets the logger for degraded-path warnings.
func WithLogger(l *slog.Logger) Option { return func(a *Adapter) { a.logger = l } }

// WithMetrics records call, cache, and fallback counts.
func WithMetrics(m *metrics.Metrics) Option { return func(a *Adapter) { a.metrics = m } }

// New builds an Adapter. A nil embedder is allowed: every uncached lookup
// then yields the fallback value. Zero config fields take their defaults.
func New(embedder Embedder, cfg types.SimilarityConfig, opts ...Option) *Adapter {
	def := DefaultRetryPolicy()
	policy := RetryPolicy{
		Retries:  cfg.Retries,
		Backoff:  cfg.Backoff,
		Double:   cfg.DoubleBackoff,
		Fallback: cfg.Fallback,
	}
	if policy.Fallback <= 0 {
		policy.Fallback = def.Fallback
	}
	if policy.Backoff <= 0 {
		policy.Backoff = def.Backoff
	}

	a := &Adapter{
		embedder:       embedder,
		retry:          policy,
		timeout:        cfg.Timeout,
		minInterval:    cfg.MinInterval,
		batchThreshold: cfg.BatchThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.batchThreshold <= 0 {
		a.batchThreshold = defaultBatchThreshold
	}
	if a.clock == nil {
		a.clock = SystemClock
	}
	if a.cache == nil {
		a.cache = NewCache()
	}
	if a.sched == nil {
		a.sched = NewLimiter(a.minInterval, a.clock)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	return a
}

// Similarity returns the normalized similarity of a and b. It never fails;
// unreachable providers yield the fallback value.
func (a *Adapter) Similarity(ctx context.Context, x, y string) float32 {
	return a.Score(ctx, x, y).Value
}

// SimilarityBatch returns the similarity of reference to each candidate,
// in candidate order.
func (a *Adapter) SimilarityBatch(ctx context.Context, reference string, candidates []string) []float32 {
	scores := a.ScoreBatch(ctx, reference, candidates)
	out := make([]float32, len(scores))
	for i, s := range scores {
		out[i] = s.Value
	}
	return out
}

// Score is Similarity with provenance.
func (a *Adapter) Score(ctx context.Context, x, y string) Score {
	if v, ok := a.cache.Get(x, y); ok {
		a.metrics.AddCacheHits(1)
		return Score{Value: v, Origin: OriginCache}
	}
	vecs, err := a.embed(ctx, []string{x, y})
	if err != nil {
		return a.fallback(ctx, err, 1)
	}
	cos, err := Cosine(vecs[0], vecs[1])
	if err != nil {
		return a.fallback(ctx, err, 1)
	}
	v := Normalize(cos)
	a.cache.Put(x, y, v)
	return Score{Value: v, Origin: OriginUpstream}
}

// ScoreBatch is SimilarityBatch with provenance. Cached pairs are served
// first; when at least the batch threshold of pairs remain they are embedded
// in a single upstream call, otherwise each pair is scored separately and
// concurrently.
func (a *Adapter) ScoreBatch(ctx context.Context, reference string, candidates []string) []Score {
	out := make([]Score, len(candidates))
	var missing []int
	hits := 0
	for i, c := range candidates {
		if v, ok := a.cache.Get(reference, c); ok {
			out[i] = Score{Value: v, Origin: OriginCache}
			hits++
			continue
		}
		missing = append(missing, i)
	}
	a.metrics.AddCacheHits(hits)

	switch {
	case len(missing) == 0:
	case len(missing) >= a.batchThreshold:
		a.scoreUpstreamBatch(ctx, reference, candidates, missing, out)
	default:
		var g errgroup.Group
		g.SetLimit(pairConcurrency)
		for _, i := range missing {
			g.Go(func() error {
				out[i] = a.Score(ctx, reference, candidates[i])
				return nil
			})
		}
		_ = g.Wait()
	}
	return out
}

// scoreUpstreamBatch embeds the reference and every distinct missing
// candidate in one call and fills out at the missing positions.
func (a *Adapter) scoreUpstreamBatch(ctx context.Context, reference string, candidates []string, missing []int, out []Score) {
	texts := []string{reference}
	pos := make(map[string]int, len(missing))
	for _, i := range missing {
		c := candidates[i]
		if _, ok := pos[c]; !ok {
			pos[c] = len(texts)
			texts = append(texts, c)
		}
	}

	vecs, err := a.embed(ctx, texts)
	if err != nil {
		fb := a.fallback(ctx, err, len(missing))
		for _, i := range missing {
			out[i] = fb
		}
		return
	}

	for _, i := range missing {
		c := candidates[i]
		cos, err := Cosine(vecs[0], vecs[pos[c]])
		if err != nil {
			out[i] = a.fallback(ctx, err, 1)
			continue
		}
		v := Normalize(cos)
		a.cache.Put(reference, c, v)
		out[i] = Score{Value: v, Origin: OriginUpstream}
	}
}

// embed runs one upstream call under the scheduler and retry policy.
func (a *Adapter) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if a.embedder == nil {
		return nil, Permanent(errors.New("no embedding provider configured"))
	}

	var vecs [][]float32
	attempts, err := a.retry.Do(ctx, a.clock, func(ctx context.Context) error {
		if err := a.sched.Wait(ctx); err != nil {
			return err
		}
		a.metrics.IncSimilarityCall()

		callCtx := ctx
		if a.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, a.timeout)
			defer cancel()
		}
		v, err := a.embedder.Embed(callCtx, texts)
		if err == nil && len(v) != len(texts) {
			err = fmt.Errorf("embedder returned %d vectors for %d texts", len(v), len(texts))
		}
		if err != nil {
			a.metrics.IncSimilarityError()
			a.logger.Debug("embedding attempt failed", "texts", len(texts), "error", err)
			return err
		}
		vecs = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("after %d attempt(s): %w", attempts, err)
	}
	return vecs, nil
}

func (a *Adapter) fallback(ctx context.Context, err error, n int) Score {
	origin := OriginFallback
	if ctx.Err() != nil {
		origin = OriginCancelled
	}
	a.metrics.AddFallbacks(n)
	a.logger.Warn("similarity degraded to fallback",
		"fallback", a.retry.Fallback, "pairs", n, "origin", origin.String(), "error", err)
	return Score{Value: a.retry.Fallback, Origin: origin}
}

// ClearCache empties the shared cache.
func (a *Adapter) ClearCache() { a.cache.Clear() }

// CacheSize returns the number of cached pairs.
func (a *Adapter) CacheSize() int { return a.cache.Len() }

// Fallback returns the neutral value used when the provider is unreachable.
func (a *Adapter) Fallback() float32 { return a.retry.Fallback }
