// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fusion

import (
	"log/slog"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// Confidence assigned to evidence extracted from each raw source.
const (
	EncyclopediaConfidence     = 0.75
	PreprintConfidence         = 0.85
	CuratedConfidence          = 0.8
	DefaultReasoningConfidence = 0.6

	maxContentRunes = 500
)

// EncyclopediaData is a raw encyclopedia lookup result.
type EncyclopediaData struct {
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	Summary   string `json:"summary" yaml:"summary"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// PreprintData is a raw preprint search result.
type PreprintData struct {
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	Abstract  string `json:"abstract" yaml:"abstract"`
	PDFURL    string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`
	Published string `json:"published,omitempty" yaml:"published,omitempty"`
}

// CuratedData is a record from a curated bibliographic database.
type CuratedData struct {
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	Abstract  string `json:"abstract" yaml:"abstract"`
	DOI       string `json:"doi,omitempty" yaml:"doi,omitempty"`
	Published string `json:"published,omitempty" yaml:"published,omitempty"`
	CitedBy   int    `json:"cited_by,omitempty" yaml:"cited_by,omitempty"`
}

// ReasoningData is a model's own explanation of a relation.
type ReasoningData struct {
	Reasoning string `json:"reasoning" yaml:"reasoning"`

	// Confidence is the model's stated confidence; nil means 0.6.
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// SourceData holds the raw lookups gathered for one relation. Nil members
// contribute no evidence.
type SourceData struct {
	Encyclopedia *EncyclopediaData `json:"wikipedia,omitempty" yaml:"wikipedia,omitempty"`
	Preprint     *PreprintData     `json:"arxiv,omitempty" yaml:"arxiv,omitempty"`
	Curated      *CuratedData      `json:"openalex,omitempty" yaml:"openalex,omitempty"`
	Reasoning    *ReasoningData    `json:"llm_reasoning,omitempty" yaml:"llm_reasoning,omitempty"`
}

// Evidence converts the raw lookups into evidence items in a fixed order:
// encyclopedia, preprint, curated database, model reasoning.
func (d SourceData) Evidence() []types.EvidenceItem {
	var out []types.EvidenceItem
	if e := d.Encyclopedia; e != nil && e.Summary != "" {
		out = append(out, types.EvidenceItem{
			SourceType: types.SourceEncyclopedia,
			SourceName: "Wikipedia",
			Content:    truncate(e.Summary, maxContentRunes),
			URL:        e.URL,
			Confidence: EncyclopediaConfidence,
			Timestamp:  e.Timestamp,
		})
	}
	if p := d.Preprint; p != nil && p.Abstract != "" {
		out = append(out, types.EvidenceItem{
			SourceType: types.SourcePreprint,
			SourceName: "arXiv",
			Content:    truncate(p.Abstract, maxContentRunes),
			URL:        p.PDFURL,
			Confidence: PreprintConfidence,
			Timestamp:  p.Published,
		})
	}
	if c := d.Curated; c != nil && c.Abstract != "" {
		item := types.EvidenceItem{
			SourceType: types.SourceCuratedDatabase,
			SourceName: "OpenAlex",
			Content:    truncate(c.Abstract, maxContentRunes),
			Confidence: CuratedConfidence,
			Timestamp:  c.Published,
		}
		if c.DOI != "" {
			item.URL = "https://doi.org/" + c.DOI
		}
		out = append(out, item)
	}
	if r := d.Reasoning; r != nil && r.Reasoning != "" {
		conf := DefaultReasoningConfidence
		if r.Confidence != nil {
			conf = clamp01(*r.Confidence)
		}
		out = append(out, types.EvidenceItem{
			SourceType: types.SourceModelReasoning,
			SourceName: "Model reasoning",
			Content:    truncate(r.Reasoning, maxContentRunes),
			Confidence: conf,
		})
	}
	return out
}

// Verification is the outcome of multi-source verification.
type Verification struct {
	types.CredibilityResult `yaml:",inline"`

	// Evidence lists the items extracted from the raw sources.
	Evidence []types.EvidenceItem `json:"evidence" yaml:"evidence"`

	// ConflictsResolved is set when conflicts were arbitrated and the
	// result re-scored with the retained items.
	ConflictsResolved bool `json:"conflicts_resolved" yaml:"conflicts_resolved"`

	// Resolved holds the arbitrated conflicts of the first scoring pass.
	Resolved []types.ConflictRecord `json:"resolved,omitempty" yaml:"resolved,omitempty"`
}

// MultiSourceVerifier cross-checks a relation against several sources.
type MultiSourceVerifier struct {
	scorer   *Scorer
	strategy Strategy
	logger   *slog.Logger
}

// NewMultiSourceVerifier returns a verifier using scorer and strategy. A nil
// scorer uses the defaults.
func NewMultiSourceVerifier(scorer *Scorer, strategy Strategy, logger *slog.Logger) *MultiSourceVerifier {
	if scorer == nil {
		scorer = NewScorer(types.FusionConfig{})
	}
	if strategy == "" {
		strategy = HighestConfidence
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MultiSourceVerifier{scorer: scorer, strategy: strategy, logger: logger}
}

// Verify scores the relation a -> b from data. When conflicts are found they
// are resolved and the evidence is re-scored together with the retained
// items, which reinforces the winning side of each conflict.
func (v *MultiSourceVerifier) Verify(a, b string, data SourceData) Verification {
	return v.VerifyEvidence(a, b, data.Evidence())
}

// VerifyEvidence scores already extracted evidence the way Verify does.
func (v *MultiSourceVerifier) VerifyEvidence(a, b string, evidence []types.EvidenceItem) Verification {
	result := v.scorer.Score(evidence)
	out := Verification{CredibilityResult: result, Evidence: evidence}

	if result.HasConflicts() {
		conflicts := append([]types.ConflictRecord(nil), result.Conflicts...)
		retained := Resolve(conflicts, v.strategy)

		rescored := v.scorer.Score(append(append([]types.EvidenceItem(nil), evidence...), retained...))
		out.CredibilityResult = rescored
		out.ConflictsResolved = true
		out.Resolved = conflicts
		v.logger.Info("conflicts resolved",
			"from", a, "to", b, "conflicts", len(conflicts), "strategy", string(v.strategy))
	}

	v.logger.Info("relation verified",
		"from", a, "to", b, "score", out.Score, "level", out.Level, "evidence", len(evidence))
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
