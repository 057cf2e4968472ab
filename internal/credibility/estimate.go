// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package credibility converts a single similarity value and an
// authoritative-source flag into a trust score. It is the cheap inline proxy
// used during candidate selection, before any multi-source evidence exists.
package credibility

const (
	authoritativeBase = 0.95
	generatedBase     = 0.70
)

// Bounds of Estimate for similarity in [0,1].
const (
	Min = generatedBase * 0.7
	Max = authoritativeBase
)

// Estimate returns base * (0.7 + 0.3*similarity), where base is 0.95 when an
// authoritative source backs the concept and 0.70 otherwise. Similarity is
// clamped to [0,1] first, so the result always lies in [Min, Max].
func Estimate(similarity float64, hasAuthoritativeSource bool) float64 {
	if similarity < 0 {
		similarity = 0
	}
	if similarity > 1 {
		similarity = 1
	}
	base := generatedBase
	if hasAuthoritativeSource {
		base = authoritativeBase
	}
	return base * (0.7 + 0.3*similarity)
}
