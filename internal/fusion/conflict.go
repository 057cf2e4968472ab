// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fusion

import (
	"fmt"
	"math"
	"strings"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// DefaultConflictThreshold is the confidence gap above which two items diverge.
const DefaultConflictThreshold = 0.6

// SemanticSeverity is the fixed severity of a polarity contradiction.
const SemanticSeverity = 0.9

// Polarity markers, matched as lowercase substrings. This is a keyword
// heuristic, not a negation parser: "no" also matches inside "know".
var (
	negationMarkers = []string{
		"不能", "无法", "不会", "不是", "没有", "非",
		"cannot", "unable", "not", "never", "no",
		"incorrect", "false", "wrong",
	}
	affirmationMarkers = []string{
		"能够", "可以", "会", "是", "有",
		"can", "able", "possible", "yes",
		"correct", "true", "right",
	}
)

// Detector finds pairwise conflicts between evidence items.
type Detector struct {
	// Threshold is the confidence gap that counts as divergence.
	Threshold float64
}

// Detect scans every unordered pair once and returns the conflicts found,
// in pair order. A semantic contradiction takes precedence over divergence
// for the same pair. Returned records are unresolved (Retained = -1).
func (d Detector) Detect(evidence []types.EvidenceItem) []types.ConflictRecord {
	conflicts := []types.ConflictRecord{}
	for i := 0; i < len(evidence); i++ {
		for j := i + 1; j < len(evidence); j++ {
			kind, severity, ok := d.Compare(evidence[i], evidence[j])
			if !ok {
				continue
			}
			conflicts = append(conflicts, types.ConflictRecord{
				Items:    [2]types.EvidenceItem{evidence[i], evidence[j]},
				Type:     kind,
				Severity: severity,
				Retained: -1,
			})
		}
	}
	return conflicts
}

// Compare classifies one pair. The result does not depend on argument order.
func (d Detector) Compare(a, b types.EvidenceItem) (types.ConflictType, float64, bool) {
	if contradicts(a.Content, b.Content) {
		return types.ConflictSemanticContradiction, SemanticSeverity, true
	}
	threshold := d.Threshold
	if threshold <= 0 {
		threshold = DefaultConflictThreshold
	}
	if diff := math.Abs(clamp01(a.Confidence) - clamp01(b.Confidence)); diff > threshold {
		return types.ConflictConfidenceDivergence, diff, true
	}
	return "", 0, false
}

// contradicts reports whether one text carries negation while the other
// affirms without negating.
func contradicts(x, y string) bool {
	xNeg, xAff := polarity(x)
	yNeg, yAff := polarity(y)
	return (xNeg && yAff && !yNeg) || (yNeg && xAff && !xNeg)
}

func polarity(text string) (negated, affirmed bool) {
	t := strings.ToLower(text)
	return containsAny(t, negationMarkers), containsAny(t, affirmationMarkers)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// Strategy selects how a conflict is arbitrated.
type Strategy string

const (
	// HighestConfidence keeps the item with the greater confidence.
	HighestConfidence Strategy = "highest_confidence"
	// MostAuthoritative keeps the item whose source type weighs more.
	MostAuthoritative Strategy = "most_authoritative"
)

// ParseStrategy resolves a strategy name. Empty selects HighestConfidence.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", HighestConfidence:
		return HighestConfidence, nil
	case MostAuthoritative:
		return MostAuthoritative, nil
	default:
		return "", fmt.Errorf("unknown resolution strategy %q (want %s or %s)", s, HighestConfidence, MostAuthoritative)
	}
}

// Resolve marks the retained item of each conflict in place and returns the
// retained items in conflict order. Both items stay in every record. Ties
// keep the first item of the pair.
func Resolve(conflicts []types.ConflictRecord, strategy Strategy) []types.EvidenceItem {
	retained := make([]types.EvidenceItem, 0, len(conflicts))
	for i := range conflicts {
		c := &conflicts[i]
		a, b := c.Items[0], c.Items[1]

		keep := 0
		switch strategy {
		case MostAuthoritative:
			if b.SourceType.Weight() > a.SourceType.Weight() {
				keep = 1
			}
			c.Resolution = fmt.Sprintf("kept most authoritative source (%s)", c.Items[keep].SourceType)
		default:
			if b.Confidence > a.Confidence {
				keep = 1
			}
			c.Resolution = fmt.Sprintf("kept highest-confidence evidence (%s)", c.Items[keep].SourceName)
		}
		c.Retained = keep
		retained = append(retained, c.Items[keep])
	}
	return retained
}
