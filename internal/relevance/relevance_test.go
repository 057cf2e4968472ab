// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relevance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pairSim returns the configured similarity for a pair in either order and
// 0.5 for unknown pairs.
type pairSim map[[2]string]float32

func (p pairSim) Similarity(_ context.Context, x, y string) float32 {
	if v, ok := p[[2]string{x, y}]; ok {
		return v
	}
	if v, ok := p[[2]string{y, x}]; ok {
		return v
	}
	return 0.5
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name                 string
		semantic, discipline float64
		wantBoost, wantFinal float64
	}{
		{"same discipline keeps semantic", 0.7, 0.9, 1.03, 0.7},
		{"cross discipline boosted", 0.7, 0.2, 1.24, 0.868},
		{"weak cross discipline damped", 0.4, 0.2, 1.24, 0.32},
		{"boost is clamped", 0.95, 0.0, 1.3, 1.0},
		{"discipline at cutoff is cross", 0.6, 0.8, 1.06, 0.636},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := distance(tt.semantic, tt.discipline)
			assert.InDelta(t, tt.wantBoost, d.Boost, 1e-9)
			assert.InDelta(t, tt.wantFinal, d.Final, 1e-9)
			assert.GreaterOrEqual(t, d.Final, 0.0)
			assert.LessOrEqual(t, d.Final, 1.0)
		})
	}
}

func TestConceptDistance(t *testing.T) {
	f := NewFinder(pairSim{
		{"entropy", "information gain"}: 0.75,
		{"physics", "computer science"}: 0.25,
	}, nil)

	d := f.ConceptDistance(context.Background(), "entropy", "information gain", "physics", "computer science")
	assert.InDelta(t, 0.75, d.Semantic, 1e-6)
	assert.InDelta(t, 0.25, d.Discipline, 1e-6)
	assert.InDelta(t, 1.225, d.Boost, 1e-6)
	assert.InDelta(t, 0.91875, d.Final, 1e-6)
}

func TestFindDistantRelatives(t *testing.T) {
	sim := pairSim{
		{"physics", "physics"}:          1.0,
		{"physics", "chemistry"}:        0.75,
		{"physics", "computer science"}: 0.25,
		{"physics", "biology"}:          0.5,
		{"physics", "economics"}:        0.125,

		{"entropy", "free energy"}:      0.875,
		{"entropy", "enthalpy"}:         0.875,
		{"entropy", "information gain"}: 0.75,
		{"entropy", "biodiversity"}:     0.625,
		{"entropy", "market"}:           0.25,
	}
	f := NewFinder(sim, nil)
	cands := []Candidate{
		{"free energy", "physics"},
		{"enthalpy", "chemistry"},
		{"information gain", "computer science"},
		{"biodiversity", "biology"},
		{"market", "economics"},
	}

	got := f.FindDistantRelatives(context.Background(), "entropy", "physics", cands, Options{})
	require.Len(t, got, 2)
	// Same-discipline and near-discipline (0.75 > 0.7) candidates are skipped;
	// "market" is below the semantic cutoff.
	assert.Equal(t, "information gain", got[0].Concept)
	assert.InDelta(t, 0.91875, got[0].Score, 1e-6)
	assert.Equal(t, "biodiversity", got[1].Concept)
	assert.InDelta(t, 0.625*1.15, got[1].Score, 1e-6)

	got = f.FindDistantRelatives(context.Background(), "entropy", "physics", cands, Options{TopK: 1})
	require.Len(t, got, 1)
	assert.Equal(t, "information gain", got[0].Concept)

	got = f.FindDistantRelatives(context.Background(), "entropy", "physics", nil, Options{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
