// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// SourceType classifies where an evidence item came from. Each type carries a
// fixed authority weight; see Weight.
type SourceType string

const (
	SourceEncyclopedia    SourceType = "encyclopedia"
	SourcePreprint        SourceType = "preprint"
	SourceModelReasoning  SourceType = "model_reasoning"
	SourceReference       SourceType = "reference"
	SourceCuratedDatabase SourceType = "curated_database"
)

const unknownSourceWeight = 0.5

// sourceWeights is the authority table. Model reasoning is kept low so that
// unverified model assertions cannot carry a score on their own.
var sourceWeights = map[SourceType]float64{
	SourceReference:       0.95,
	SourcePreprint:        0.9,
	SourceCuratedDatabase: 0.85,
	SourceEncyclopedia:    0.7,
	SourceModelReasoning:  0.3,
}

// sourceAliases maps the labels used by upstream collaborators onto source types.
var sourceAliases = map[string]SourceType{
	"wikipedia":         SourceEncyclopedia,
	"arxiv":             SourcePreprint,
	"llm":               SourceModelReasoning,
	"llm_reasoning":     SourceModelReasoning,
	"textbook":          SourceReference,
	"academic_database": SourceCuratedDatabase,
}

// Weight returns the authority weight for t, or 0.5 for an unknown type.
func (t SourceType) Weight() float64 {
	if w, ok := sourceWeights[t]; ok {
		return w
	}
	return unknownSourceWeight
}

// Known reports whether t is one of the defined source types.
func (t SourceType) Known() bool {
	_, ok := sourceWeights[t]
	return ok
}

// DefaultSourceWeights returns a copy of the authority table.
func DefaultSourceWeights() map[SourceType]float64 {
	out := make(map[SourceType]float64, len(sourceWeights))
	for k, v := range sourceWeights {
		out[k] = v
	}
	return out
}

// ParseSourceType resolves a source type name or alias (case-insensitive).
func ParseSourceType(s string) (SourceType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if t := SourceType(s); t.Known() {
		return t, true
	}
	t, ok := sourceAliases[s]
	return t, ok
}

// EvidenceItem is one piece of support for a claimed relation.
type EvidenceItem struct {
	SourceType SourceType `json:"source_type" yaml:"source_type" validate:"source_type"`
	SourceName string     `json:"source_name" yaml:"source_name"`
	Content    string     `json:"content" yaml:"content"`
	URL        string     `json:"url,omitempty" yaml:"url,omitempty"`

	// Confidence is the item-local confidence in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence" validate:"gte=0,lte=1"`

	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// ConflictType names the kind of disagreement between two evidence items.
type ConflictType string

const (
	ConflictConfidenceDivergence  ConflictType = "confidence_divergence"
	ConflictSemanticContradiction ConflictType = "semantic_contradiction"
)

// ConflictRecord pairs two evidence items whose signals disagree. Retained
// is the index into Items chosen by a resolver, or -1 when unresolved.
type ConflictRecord struct {
	Items      [2]EvidenceItem `json:"items" yaml:"items"`
	Type       ConflictType    `json:"conflict_type" yaml:"conflict_type"`
	Severity   float64         `json:"severity" yaml:"severity"`
	Retained   int             `json:"retained" yaml:"retained"`
	Resolution string          `json:"resolution,omitempty" yaml:"resolution,omitempty"`
}

// Level is a credibility band.
type Level string

const (
	LevelVerified     Level = "verified"
	LevelReliable     Level = "reliable"
	LevelProbable     Level = "probable"
	LevelUncertain    Level = "uncertain"
	LevelQuestionable Level = "questionable"
)

// LevelFor maps a score onto its contiguous band.
func LevelFor(score float64) Level {
	switch {
	case score >= 0.9:
		return LevelVerified
	case score >= 0.7:
		return LevelReliable
	case score >= 0.5:
		return LevelProbable
	case score >= 0.3:
		return LevelUncertain
	default:
		return LevelQuestionable
	}
}

// CredibilityResult is the output of evidence fusion.
// Score = clamp01(base + SourceDiversity - conflict penalty).
type CredibilityResult struct {
	Score           float64          `json:"score" yaml:"score"`
	Level           Level            `json:"level" yaml:"level"`
	EvidenceCount   int              `json:"evidence_count" yaml:"evidence_count"`
	SourceDiversity float64          `json:"source_diversity" yaml:"source_diversity"`
	Conflicts       []ConflictRecord `json:"conflicts" yaml:"conflicts"`
	Warnings        []string         `json:"warnings" yaml:"warnings"`
}

// HasConflicts reports whether any conflict was detected.
func (r CredibilityResult) HasConflicts() bool {
	return len(r.Conflicts) > 0
}
