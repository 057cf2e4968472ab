// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate proposes candidate concepts related to a seed concept.
//
// Generated output is untrusted: it may hold fewer items than requested,
// duplicates, or names on the exclusion list. ParseCandidates normalizes the
// line format returned by a model, and callers treat an empty result as
// "no candidates" rather than a failure.
package generate

import (
	"context"
	"strings"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// Request describes one generation call.
type Request struct {
	Seed string

	// Disciplines restricts candidates to these fields; empty means any.
	Disciplines []string

	// Exclude lists names that must not be proposed (case-insensitive).
	Exclude []string

	Count int
}

// Generator proposes candidates for a seed concept.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]types.Candidate, error)
}

// ParseCandidates reads one candidate per line in the form
// name|discipline|relation[|principle]. Lines with fewer than three fields
// are skipped, as are blank names, duplicates (same node id), and excluded
// names. At most count candidates are returned; count <= 0 means no limit.
func ParseCandidates(text string, exclude []string, count int) []types.Candidate {
	var parsed []types.Candidate
	for _, line := range strings.Split(text, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "`")
		line = strings.TrimLeft(line, "-*• ")
		fields := strings.Split(line, "|")
		if len(fields) < 3 {
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		c := types.Candidate{Name: fields[0], Discipline: fields[1], Relation: fields[2]}
		if len(fields) > 3 {
			c.Principle = strings.Join(fields[3:], "|")
		}
		parsed = append(parsed, c)
	}
	return filter(parsed, exclude, count)
}

// filter drops blank, excluded, and duplicate candidates and truncates to count.
func filter(candidates []types.Candidate, exclude []string, count int) []types.Candidate {
	excluded := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		excluded[strings.ToLower(strings.TrimSpace(e))] = true
	}

	seen := map[string]bool{}
	var out []types.Candidate
	for _, c := range candidates {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" || excluded[strings.ToLower(c.Name)] {
			continue
		}
		id := types.NodeID(c.Name, c.Discipline)
		if seen[id] {
			continue
		}
		seen[id] = true

		out = append(out, c)
		if count > 0 && len(out) == count {
			break
		}
	}
	return out
}

// StaticGenerator serves a fixed candidate list, minus the seed and
// excluded names, truncated to the requested count.
type StaticGenerator struct {
	Candidates []types.Candidate
}

// Generate returns the configured candidates.
func (g StaticGenerator) Generate(_ context.Context, req Request) ([]types.Candidate, error) {
	return filter(g.Candidates, append([]string{req.Seed}, req.Exclude...), req.Count), nil
}
