// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the concept-engine pipeline:
// candidates proposed by a generator, the scored nodes and edges that survive
// selection, evidence items and the credibility results computed from them,
// and the configuration for every stage.
package types

import (
	"regexp"
	"strings"
)

// Candidate is an unverified related concept proposed by a generator.
// Candidates are immutable and live only for the discovery call that produced them.
type Candidate struct {
	// Name is the concept label (e.g. "information gain").
	Name string `json:"name" yaml:"name"`

	// Discipline is the generator's self-declared discipline label.
	Discipline string `json:"discipline" yaml:"discipline"`

	// Relation is a free-text relation tag (e.g. "foundation", "application").
	Relation string `json:"relation" yaml:"relation"`

	// Principle is an optional rationale for a cross-discipline link.
	Principle string `json:"cross_principle,omitempty" yaml:"cross_principle,omitempty"`
}

// SourceKind records whether a node's credibility was backed by an
// authoritative lookup or rests on the generator alone.
type SourceKind string

const (
	SourceAuthoritative SourceKind = "authoritative_lookup"
	SourceGenerated     SourceKind = "generated_only"
)

// ScoredNode is a candidate promoted into a discovery result. Similarity and
// Credibility are always present and within [0,1]. The seed node has Depth 0
// and Similarity 1.0.
type ScoredNode struct {
	ID          string     `json:"id" yaml:"id"`
	Label       string     `json:"label" yaml:"label"`
	Discipline  string     `json:"discipline" yaml:"discipline"`
	Relation    string     `json:"relation,omitempty" yaml:"relation,omitempty"`
	Principle   string     `json:"cross_principle,omitempty" yaml:"cross_principle,omitempty"`
	Similarity  float64    `json:"similarity" yaml:"similarity"`
	Credibility float64    `json:"credibility" yaml:"credibility"`
	SourceKind  SourceKind `json:"source_kind" yaml:"source_kind"`
	Depth       int        `json:"depth" yaml:"depth"`
}

// Edge links the seed to an accepted node.
type Edge struct {
	Source      string  `json:"source" yaml:"source"`
	Target      string  `json:"target" yaml:"target"`
	Relation    string  `json:"relation" yaml:"relation"`
	Weight      float64 `json:"weight" yaml:"weight"`
	Credibility float64 `json:"credibility" yaml:"credibility"`

	// Level is set when the edge went through multi-source verification.
	Level Level `json:"level,omitempty" yaml:"level,omitempty"`
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// NodeID derives a deterministic node identifier from a concept name and its
// discipline: punctuation is removed, whitespace becomes underscores, and the
// result is lowercased. An empty discipline maps to "unknown".
func NodeID(name, discipline string) string {
	d := slug(discipline)
	if d == "" {
		d = "unknown"
	}
	return slug(name) + "_" + d
}

func slug(s string) string {
	s = nonWord.ReplaceAllString(strings.TrimSpace(s), "")
	return strings.ToLower(strings.Join(strings.Fields(s), "_"))
}
