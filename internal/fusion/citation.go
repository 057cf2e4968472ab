// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fusion

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// Verification methods reported in CitationDetails.
const (
	MethodArxiv = "arxiv"
	MethodDOI   = "doi"
	MethodURL   = "url"
)

var (
	arxivRef      = regexp.MustCompile(`(?i)(?:arxiv\.org/abs/|arxiv:)([a-z\-]+/\d+|[\d.]+)`)
	arxivNewStyle = regexp.MustCompile(`^\d{4}\.\d{5}$`)
	arxivOldStyle = regexp.MustCompile(`^[a-z\-]+/\d{7}$`)
	doiRef        = regexp.MustCompile(`10\.\d{4,}/[\w\-.]+`)
	urlShape      = regexp.MustCompile(`^https?://[\w\-.]+(:\d+)?(/[\w\-./]*)?$`)
)

// minDOILength is the length a DOI-shaped string must exceed to pass.
const minDOILength = 10

// CitationDetails describes the identifiers found in an evidence item.
type CitationDetails struct {
	HasCitations       bool     `json:"has_citations" yaml:"has_citations"`
	CitationsFound     []string `json:"citations_found" yaml:"citations_found"`
	VerifiedCitations  []string `json:"verified_citations" yaml:"verified_citations"`
	InvalidCitations   []string `json:"invalid_citations" yaml:"invalid_citations"`
	VerificationMethod string   `json:"verification_method,omitempty" yaml:"verification_method,omitempty"`
}

// VerifyCitation checks the citation-like strings in an item's content and
// URL for structural plausibility. No network lookup is made.
//
// An item with no citation-like string is verified unless it is model
// reasoning. Otherwise it is verified when at least one citation is valid
// and none is invalid.
func VerifyCitation(item types.EvidenceItem) (bool, CitationDetails) {
	d := CitationDetails{
		CitationsFound:    []string{},
		VerifiedCitations: []string{},
		InvalidCitations:  []string{},
	}
	text := item.Content + " " + item.URL

	for _, m := range arxivRef.FindAllStringSubmatch(text, -1) {
		id := strings.TrimRight(m[1], ".")
		ref := "arxiv:" + id
		d.HasCitations = true
		d.VerificationMethod = MethodArxiv
		d.CitationsFound = append(d.CitationsFound, ref)
		if ValidArxivID(id) {
			d.VerifiedCitations = append(d.VerifiedCitations, ref)
		} else {
			d.InvalidCitations = append(d.InvalidCitations, ref)
		}
	}

	for _, doi := range doiRef.FindAllString(text, -1) {
		doi = strings.TrimRight(doi, ".")
		ref := "doi:" + doi
		d.HasCitations = true
		if d.VerificationMethod == "" {
			d.VerificationMethod = MethodDOI
		}
		d.CitationsFound = append(d.CitationsFound, ref)
		// Short DOI-shaped strings are neither confirmed nor rejected.
		if len(doi) > minDOILength {
			d.VerifiedCitations = append(d.VerifiedCitations, ref)
		}
	}

	if item.URL != "" && len(d.CitationsFound) == 0 {
		ref := "url:" + item.URL
		d.HasCitations = true
		d.VerificationMethod = MethodURL
		if urlShape.MatchString(item.URL) {
			d.VerifiedCitations = append(d.VerifiedCitations, ref)
		} else {
			d.InvalidCitations = append(d.InvalidCitations, ref)
		}
	}

	if !d.HasCitations {
		return item.SourceType != types.SourceModelReasoning, d
	}
	return len(d.VerifiedCitations) > 0 && len(d.InvalidCitations) == 0, d
}

// ValidArxivID reports whether id is a plausible arXiv identifier. New-style
// ids (YYMM.NNNNN) must have a year of at most 50 and a month in 1..12;
// old-style ids are category/NNNNNNN.
func ValidArxivID(id string) bool {
	if arxivOldStyle.MatchString(strings.ToLower(id)) {
		return true
	}
	if !arxivNewStyle.MatchString(id) {
		return false
	}
	year, _ := strconv.Atoi(id[:2])
	month, _ := strconv.Atoi(id[2:4])
	return year <= 50 && month >= 1 && month <= 12
}
