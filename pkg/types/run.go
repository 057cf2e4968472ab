// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Run is the outcome of one discovery: the seed node followed by the
// selected depth-1 nodes, and one edge from the seed to each of them.
type Run struct {
	ID          string        `json:"run_id" yaml:"run_id"`
	Concept     string        `json:"concept" yaml:"concept"`
	Disciplines []string      `json:"disciplines,omitempty" yaml:"disciplines,omitempty"`
	Nodes       []ScoredNode  `json:"nodes" yaml:"nodes"`
	Edges       []Edge        `json:"edges" yaml:"edges"`
	Warnings    []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	CreatedAt   time.Time     `json:"created_at" yaml:"created_at"`
	Duration    time.Duration `json:"duration" yaml:"duration"`

	// Cached is set when the run was served from the result cache.
	Cached bool `json:"cached,omitempty" yaml:"-"`
}

// RunSummary is the listing form of a stored run.
type RunSummary struct {
	ID          string        `json:"run_id" yaml:"run_id"`
	Concept     string        `json:"concept" yaml:"concept"`
	Disciplines []string      `json:"disciplines,omitempty" yaml:"disciplines,omitempty"`
	NodeCount   int           `json:"node_count" yaml:"node_count"`
	CreatedAt   time.Time     `json:"created_at" yaml:"created_at"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
}
