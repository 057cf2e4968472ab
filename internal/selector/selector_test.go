// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package selector

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/concept-engine/internal/similarity"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// --- test doubles ---

type mockScorer struct {
	scores map[string]similarity.Score
	calls  int
}

func (m *mockScorer) ScoreBatch(_ context.Context, _ string, cands []string) []similarity.Score {
	m.calls++
	out := make([]similarity.Score, len(cands))
	for i, c := range cands {
		s, ok := m.scores[c]
		if !ok {
			s = similarity.Score{Value: 0.75, Origin: similarity.OriginFallback}
		}
		out[i] = s
	}
	return out
}

func sims(values map[string]float32) *mockScorer {
	m := &mockScorer{scores: make(map[string]similarity.Score, len(values))}
	for k, v := range values {
		m.scores[k] = similarity.Score{Value: v, Origin: similarity.OriginUpstream}
	}
	return m
}

type mockAuthority map[string]bool

func (m mockAuthority) Exists(_ context.Context, label string) bool { return m[label] }

func cands(names ...string) []types.Candidate {
	out := make([]types.Candidate, len(names))
	for i, n := range names {
		out[i] = types.Candidate{Name: n, Discipline: "physics", Relation: "related"}
	}
	return out
}

func labels(nodes []types.ScoredNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Label
	}
	return out
}

// --- tests ---

func TestSelect_MinBoundRelaxation(t *testing.T) {
	scorer := sims(map[string]float32{
		"information gain":    0.81,
		"thermodynamic state": 0.77,
		"love":                0.30,
	})
	s := New(scorer, nil)

	nodes, err := s.Select(context.Background(), "entropy",
		cands("love", "thermodynamic state", "information gain"), DefaultOptions())
	require.NoError(t, err)

	require.Len(t, nodes, 4)
	assert.Equal(t, []string{"entropy", "information gain", "thermodynamic state", "love"}, labels(nodes))

	seed := nodes[0]
	assert.Equal(t, 0, seed.Depth)
	assert.Equal(t, 1.0, seed.Similarity)
	for _, n := range nodes[1:] {
		assert.Equal(t, 1, n.Depth)
	}
	assert.InDelta(t, 0.30, nodes[3].Similarity, 1e-6)
}

func TestSelect_ThresholdIsInclusive(t *testing.T) {
	scorer := sims(map[string]float32{
		"a": 0.7, "b": 0.7, "c": 0.7, "d": 0.7, "far": 0.1,
	})
	s := New(scorer, nil)

	nodes, err := s.Select(context.Background(), "seed",
		cands("a", "b", "c", "d", "far"), Options{TargetMin: 1, TargetMax: 9, Threshold: 0.7})
	require.NoError(t, err)

	require.Len(t, nodes, 5)
	for _, n := range nodes[1:] {
		assert.Equal(t, 0.7, n.Similarity)
	}
}

func TestSelect_MaxBoundTruncation(t *testing.T) {
	values := make(map[string]float32)
	var names []string
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("concept-%02d", i)
		names = append(names, name)
		values[name] = 0.70 + float32(i)*0.02
	}
	s := New(sims(values), nil)

	nodes, err := s.Select(context.Background(), "neural network", cands(names...), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, nodes, 10)

	kept := labels(nodes[1:])
	for _, dropped := range []string{"concept-00", "concept-01", "concept-02"} {
		assert.NotContains(t, kept, dropped)
	}
	assert.Equal(t, "concept-11", kept[0])
}

func TestSelect_EmptyCandidatesReturnsSeed(t *testing.T) {
	scorer := sims(nil)
	s := New(scorer, nil)

	nodes, err := s.Select(context.Background(), "entropy", nil, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "entropy", nodes[0].Label)
	assert.Equal(t, "entropy_unknown", nodes[0].ID)
	assert.Zero(t, scorer.calls)
}

func TestSelect_NeverFabricates(t *testing.T) {
	s := New(sims(map[string]float32{"a": 0.1, "b": 0.2}), nil)

	nodes, err := s.Select(context.Background(), "seed", cands("a", "b"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"seed", "b", "a"}, labels(nodes))
}

func TestSelect_TieBreaks(t *testing.T) {
	scorer := sims(map[string]float32{"first": 0.8, "second": 0.8, "third": 0.8, "fourth": 0.9})
	authority := mockAuthority{"third": true}
	s := New(scorer, authority)

	nodes, err := s.Select(context.Background(), "seed", cands("first", "second", "third", "fourth"), DefaultOptions())
	require.NoError(t, err)
	// Highest similarity first, then the authoritative tie, then generation order.
	assert.Equal(t, []string{"seed", "fourth", "third", "first", "second"}, labels(nodes))
	assert.Equal(t, types.SourceAuthoritative, nodes[2].SourceKind)
	assert.Equal(t, types.SourceGenerated, nodes[3].SourceKind)
}

func TestSelect_CredibilityUsesAuthority(t *testing.T) {
	scorer := sims(map[string]float32{"wiki": 0.892, "gen": 0.892})
	s := New(scorer, mockAuthority{"wiki": true, "seed": true})

	nodes, err := s.Select(context.Background(), "seed", cands("wiki", "gen"), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.InDelta(t, 0.95, nodes[0].Credibility, 1e-9)
	assert.InDelta(t, 0.9192, nodes[1].Credibility, 1e-4)
	assert.InDelta(t, 0.70*(0.7+0.3*0.892), nodes[2].Credibility, 1e-4)
}

func TestSelect_InvalidInput(t *testing.T) {
	s := New(sims(nil), nil)
	tests := []struct {
		name string
		seed string
		opts Options
	}{
		{"empty seed", "  ", DefaultOptions()},
		{"zero min", "x", Options{TargetMin: 0, TargetMax: 9, Threshold: 0.6}},
		{"negative max", "x", Options{TargetMin: 3, TargetMax: -1, Threshold: 0.6}},
		{"max below min", "x", Options{TargetMin: 5, TargetMax: 2, Threshold: 0.6}},
		{"threshold out of range", "x", Options{TargetMin: 3, TargetMax: 9, Threshold: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Select(context.Background(), tt.seed, cands("a"), tt.opts)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSelect_FallbackSafety(t *testing.T) {
	adapter := similarity.New(nil, types.DefaultConfig().Similarity)
	s := New(adapter, nil)

	nodes, err := s.Select(context.Background(), "entropy", cands("a", "b", "c"), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, nodes, 4)
	for _, n := range nodes[1:] {
		assert.InDelta(t, 0.75, n.Similarity, 1e-6)
	}
}

func TestSelect_DropsCancelledScores(t *testing.T) {
	scorer := &mockScorer{scores: map[string]similarity.Score{
		"done":    {Value: 0.9, Origin: similarity.OriginUpstream},
		"cached":  {Value: 0.8, Origin: similarity.OriginCache},
		"pending": {Value: 0.75, Origin: similarity.OriginCancelled},
	}}
	s := New(scorer, nil)

	nodes, err := s.Select(context.Background(), "seed", cands("pending", "done", "cached"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"seed", "done", "cached"}, labels(nodes))
}

func TestSelect_IgnoresBlankAndDuplicateCandidates(t *testing.T) {
	s := New(sims(map[string]float32{"a": 0.9, "b": 0.8}), nil)

	input := append(cands("a", " ", "b"), types.Candidate{Name: "A", Discipline: "Physics"})
	nodes, err := s.Select(context.Background(), "seed", input, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"seed", "a", "b"}, labels(nodes))
}

func TestSelect_Idempotent(t *testing.T) {
	scorer := sims(map[string]float32{"a": 0.7, "b": 0.7, "c": 0.65, "d": 0.4})
	s := New(scorer, mockAuthority{"b": true})

	first, err := s.Select(context.Background(), "seed", cands("a", "b", "c", "d"), DefaultOptions())
	require.NoError(t, err)
	second, err := s.Select(context.Background(), "seed", cands("a", "b", "c", "d"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSelect_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	opts := DefaultOptions()

	for trial := 0; trial < 200; trial++ {
		n := opts.TargetMin + rng.Intn(20)
		values := make(map[string]float32, n)
		names := make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("c%d", i)
			values[names[i]] = rng.Float32()
		}
		s := New(sims(values), nil)

		nodes, err := s.Select(context.Background(), "seed", cands(names...), opts)
		require.NoError(t, err)

		depth1 := nodes[1:]
		assert.Equal(t, 0, nodes[0].Depth)
		assert.GreaterOrEqual(t, len(depth1), opts.TargetMin)
		assert.LessOrEqual(t, len(depth1), opts.TargetMax)
		for i, node := range depth1 {
			assert.Equal(t, 1, node.Depth)
			assert.True(t, node.Similarity >= 0 && node.Similarity <= 1)
			assert.True(t, node.Credibility >= 0 && node.Credibility <= 1)
			if i > 0 {
				assert.LessOrEqual(t, node.Similarity, depth1[i-1].Similarity)
			}
		}
	}
}
