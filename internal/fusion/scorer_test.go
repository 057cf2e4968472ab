// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fusion

import (
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/concept-engine/internal/metrics"
	"github.com/pdiddy/concept-engine/pkg/types"
)

func item(t types.SourceType, conf float64, content string) types.EvidenceItem {
	return types.EvidenceItem{SourceType: t, SourceName: string(t), Content: content, Confidence: conf}
}

func newTestScorer() *Scorer {
	return NewScorer(types.DefaultConfig().Fusion)
}

func TestScore_NoEvidence(t *testing.T) {
	got := newTestScorer().Score(nil)
	assert.Zero(t, got.Score)
	assert.Equal(t, types.LevelQuestionable, got.Level)
	assert.Equal(t, []string{WarnNoEvidence}, got.Warnings)
	assert.Empty(t, got.Conflicts)
	assert.Zero(t, got.EvidenceCount)
}

func TestScore_ThreeDistinctSources(t *testing.T) {
	evidence := []types.EvidenceItem{
		item(types.SourceReference, 0.95, "Entropy quantifies disorder"),
		item(types.SourcePreprint, 0.85, "Entropy in coding theory"),
		item(types.SourceCuratedDatabase, 0.9, "Entropy, thermodynamics entry"),
	}
	got := newTestScorer().Score(evidence)

	assert.InDelta(t, 0.10, got.SourceDiversity, 1e-9)
	assert.Empty(t, got.Conflicts)
	assert.Equal(t, 3, got.EvidenceCount)
	// Weighted base is about 0.901, so the bonus pushes the score to the cap.
	assert.InDelta(t, 1.0, got.Score, 1e-9)
	assert.Equal(t, types.LevelVerified, got.Level)
	assert.Empty(t, got.Warnings)
}

func TestScore_DivergencePenalty(t *testing.T) {
	evidence := []types.EvidenceItem{
		item(types.SourceEncyclopedia, 0.9, "Entropy quantifies disorder"),
		item(types.SourcePreprint, 0.1, "Entropy in coding theory"),
	}
	got := newTestScorer().Score(evidence)

	require.Len(t, got.Conflicts, 1)
	c := got.Conflicts[0]
	assert.Equal(t, types.ConflictConfidenceDivergence, c.Type)
	assert.InDelta(t, 0.8, c.Severity, 1e-9)
	assert.Equal(t, -1, c.Retained)

	// base 0.45 + bonus 0.05 - penalty 0.08
	assert.InDelta(t, 0.42, got.Score, 1e-9)
	assert.Equal(t, types.LevelUncertain, got.Level)
	assert.Contains(t, got.Warnings, "1 evidence conflict(s) detected; needs further review")
	assert.Contains(t, got.Warnings, WarnLowScore)
}

func TestScore_ThinEvidenceScaledDown(t *testing.T) {
	got := newTestScorer().Score([]types.EvidenceItem{
		item(types.SourceEncyclopedia, 0.8, "Entropy quantifies disorder"),
	})
	assert.InDelta(t, 0.4, got.Score, 1e-9)
	assert.Equal(t, types.LevelUncertain, got.Level)
	assert.Equal(t, []string{
		"insufficient evidence (1/2); credibility may be low",
		WarnSingleType,
		WarnLowScore,
	}, got.Warnings)
}

func TestScore_Caps(t *testing.T) {
	tests := []struct {
		name          string
		evidence      []types.EvidenceItem
		wantDiversity float64
		wantScore     float64
	}{
		{
			name: "conflict penalty capped at 0.3",
			evidence: []types.EvidenceItem{
				item(types.SourceEncyclopedia, 0.95, "a"),
				item(types.SourceEncyclopedia, 0.05, "b"),
				item(types.SourceEncyclopedia, 0.95, "c"),
				item(types.SourceEncyclopedia, 0.05, "d"),
			},
			wantDiversity: 0,
			wantScore:     0.2,
		},
		{
			name: "diversity bonus capped at 0.15",
			evidence: []types.EvidenceItem{
				item(types.SourceEncyclopedia, 0.5, "a"),
				item(types.SourcePreprint, 0.5, "b"),
				item(types.SourceModelReasoning, 0.5, "c"),
				item(types.SourceReference, 0.5, "d"),
				item(types.SourceCuratedDatabase, 0.5, "e"),
			},
			wantDiversity: 0.15,
			wantScore:     0.65,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestScorer().Score(tt.evidence)
			assert.InDelta(t, tt.wantDiversity, got.SourceDiversity, 1e-9)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
		})
	}
}

func TestScore_UnknownSourceTypeUsesNeutralWeight(t *testing.T) {
	got := newTestScorer().Score([]types.EvidenceItem{
		item("blog", 1.0, "a"),
		item(types.SourceReference, 0.0, "b"),
	})
	// (1.0*0.5 + 0*0.95) / 1.45, no bonus for the unknown type, minus divergence 1.0*0.1.
	assert.InDelta(t, 0.5/1.45-0.1, got.Score, 1e-9)
	assert.Zero(t, got.SourceDiversity)
	assert.Contains(t, got.Warnings, WarnUnknownType)
}

func TestScore_UnknownTypesEarnNoDiversity(t *testing.T) {
	got := newTestScorer().Score([]types.EvidenceItem{
		item("bogus", 0.95, "a"),
		item("bogus2", 0.95, "b"),
	})
	assert.InDelta(t, 0.95, got.Score, 1e-9)
	assert.Zero(t, got.SourceDiversity)
	assert.Contains(t, got.Warnings, WarnUnknownType)
}

func TestScore_ClampsOutOfRangeConfidence(t *testing.T) {
	got := newTestScorer().Score([]types.EvidenceItem{
		item(types.SourcePreprint, 2.5, "a"),
		item(types.SourceReference, -0.5, "b"),
	})
	require.Len(t, got.Conflicts, 1)
	assert.Equal(t, 1.0, got.Conflicts[0].Severity)
	assert.True(t, got.Score >= 0 && got.Score <= 1)
	// (1*0.9 + 0*0.95) / 1.85 + 0.05 - 0.1
	assert.InDelta(t, 0.9/1.85+0.05-0.1, got.Score, 1e-9)
}

func TestScore_RangeInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	kinds := []types.SourceType{
		types.SourceEncyclopedia, types.SourcePreprint, types.SourceModelReasoning,
		types.SourceReference, types.SourceCuratedDatabase,
	}
	texts := []string{"can be shown", "cannot be shown", "neutral text", "是", "不是"}
	s := newTestScorer()
	for trial := 0; trial < 500; trial++ {
		n := 1 + rng.Intn(8)
		evidence := make([]types.EvidenceItem, n)
		for i := range evidence {
			evidence[i] = item(kinds[rng.Intn(len(kinds))], rng.Float64(), texts[rng.Intn(len(texts))])
		}
		got := s.Score(evidence)
		assert.True(t, got.Score >= 0 && got.Score <= 1, "score %v out of range", got.Score)
		assert.Equal(t, types.LevelFor(got.Score), got.Level)
	}
}

func TestScore_CountsConflicts(t *testing.T) {
	m := metrics.NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	s := NewScorer(types.DefaultConfig().Fusion, WithMetrics(m))
	s.Score([]types.EvidenceItem{
		item(types.SourceEncyclopedia, 0.9, "x"),
		item(types.SourcePreprint, 0.1, "y"),
	})

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() != metrics.MetricFusionConflicts {
			continue
		}
		for _, metric := range f.GetMetric() {
			assert.Equal(t, "confidence_divergence", metric.GetLabel()[0].GetValue())
			assert.Equal(t, 1.0, metric.GetCounter().GetValue())
			found = true
		}
	}
	assert.True(t, found)
}
