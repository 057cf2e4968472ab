// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fusion

import (
	"fmt"
	"unicode/utf8"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// PrimarySource identifies where an evidence item came from.
type PrimarySource struct {
	Type       types.SourceType `json:"type" yaml:"type"`
	Name       string           `json:"name" yaml:"name"`
	URL        string           `json:"url,omitempty" yaml:"url,omitempty"`
	Confidence float64          `json:"confidence" yaml:"confidence"`
}

// ReliabilityFactors are the heuristics contributing to trust in one item.
type ReliabilityFactors struct {
	SourceAuthority  float64 `json:"source_authority" yaml:"source_authority"`
	ContentQuality   float64 `json:"content_quality" yaml:"content_quality"`
	TimestampRecency float64 `json:"timestamp_recency" yaml:"timestamp_recency"`
	CitationVerified bool    `json:"citation_verified" yaml:"citation_verified"`
}

// Trace is the provenance record of one evidence item.
type Trace struct {
	PrimarySource    PrimarySource      `json:"primary_source" yaml:"primary_source"`
	Reliability      ReliabilityFactors `json:"reliability_factors" yaml:"reliability_factors"`
	CitationCheck    CitationDetails    `json:"citation_check" yaml:"citation_check"`
	VerificationPath []string           `json:"verification_path" yaml:"verification_path"`
}

// TraceSource builds the provenance record for item.
func TraceSource(item types.EvidenceItem) Trace {
	verified, details := VerifyCitation(item)
	weight := item.SourceType.Weight()

	outcome := "failed"
	if verified {
		outcome = "passed"
	}

	return Trace{
		PrimarySource: PrimarySource{
			Type:       item.SourceType,
			Name:       item.SourceName,
			URL:        item.URL,
			Confidence: item.Confidence,
		},
		Reliability: ReliabilityFactors{
			SourceAuthority:  weight,
			ContentQuality:   contentQuality(item.Content),
			TimestampRecency: recency(item.Timestamp),
			CitationVerified: verified,
		},
		CitationCheck: details,
		VerificationPath: []string{
			fmt.Sprintf("1. primary source: %s", item.SourceName),
			fmt.Sprintf("2. source type: %s", item.SourceType),
			fmt.Sprintf("3. confidence: %g", item.Confidence),
			fmt.Sprintf("4. authority weight: %g", weight),
			fmt.Sprintf("5. citation check: %s", outcome),
		},
	}
}

// contentQuality grades content by length alone.
func contentQuality(content string) float64 {
	n := utf8.RuneCountInString(content)
	switch {
	case n == 0:
		return 0
	case n < 50:
		return 0.3
	case n > 500:
		return 0.8
	default:
		return 0.6
	}
}

// recency does not parse the timestamp yet; any timestamp rates 0.7.
func recency(timestamp string) float64 {
	if timestamp == "" {
		return 0.5
	}
	return 0.7
}
