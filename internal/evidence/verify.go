// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// Relation scoring weights.
const (
	wikiCredit        = 0.3
	paperCredit       = 0.1
	paperCreditCap    = 0.4
	verifiedThreshold = 0.5
	relationPapers    = 3
	keptPapers        = 2

	enrichWikiCredit  = 0.6
	enrichPaperCredit = 0.08
	enrichPapers      = 5

	conceptSnippetRunes = 200
	paperSnippetRunes   = 150

	batchConcurrency = 4
)

// ConceptCheck reports whether a concept has an encyclopedia entry.
type ConceptCheck struct {
	Exists  bool   `json:"exists" yaml:"exists"`
	Source  string `json:"source,omitempty" yaml:"source,omitempty"` // e.g. "zh-wiki"
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Snippet is one piece of raw support for a relation.
type Snippet struct {
	Source  string `json:"source" yaml:"source"`
	URL     string `json:"url" yaml:"url"`
	Snippet string `json:"snippet" yaml:"snippet"`
}

// RelationCheck is the outcome of VerifyRelation.
type RelationCheck struct {
	Credibility float64   `json:"credibility" yaml:"credibility"`
	Evidence    []Snippet `json:"evidence" yaml:"evidence"`
	Sources     []string  `json:"sources" yaml:"sources"`
	Verified    bool      `json:"verified" yaml:"verified"`
}

// Enrichment summarizes what the collaborators know about one concept.
type Enrichment struct {
	Concept       string   `json:"concept" yaml:"concept"`
	Definition    string   `json:"definition" yaml:"definition"`
	WikiExists    bool     `json:"wiki_exists" yaml:"wiki_exists"`
	WikiURL       string   `json:"wiki_url" yaml:"wiki_url"`
	RelatedPapers int      `json:"related_papers" yaml:"related_papers"`
	PaperLinks    []string `json:"paper_links" yaml:"paper_links"`
	Credibility   float64  `json:"credibility" yaml:"credibility"`
	Sources       []string `json:"sources" yaml:"sources"`
}

// Checker verifies concepts and relations against Wikipedia, arXiv and,
// when enabled, OpenAlex.
// Lookup failures are logged and counted as "not found"; no method of
// Checker returns an error.
type Checker struct {
	wiki      *Wikipedia
	arxiv     *Arxiv
	openalex  *OpenAlex // nil unless enabled
	maxPapers int
	logger    *slog.Logger
}

// NewChecker wires Wikipedia and arXiv clients from cfg, and OpenAlex when
// cfg.OpenAlex is set.
func NewChecker(client *http.Client, cfg types.EvidenceConfig, logger *slog.Logger) *Checker {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxPapers := cfg.MaxPapers
	if maxPapers <= 0 {
		maxPapers = relationPapers
	}
	c := &Checker{
		wiki:      NewWikipedia(client, cfg),
		arxiv:     NewArxiv(client, cfg),
		maxPapers: maxPapers,
		logger:    logger,
	}
	if cfg.OpenAlex {
		c.openalex = NewOpenAlex(client, cfg)
	}
	return c
}

// Exists reports whether label has an encyclopedia entry. It is the
// authoritative-source signal for candidate selection.
func (c *Checker) Exists(ctx context.Context, label string) bool {
	return c.CheckConcept(ctx, label).Exists
}

// CheckConcept looks label up in each configured language edition.
func (c *Checker) CheckConcept(ctx context.Context, label string) ConceptCheck {
	page, err := c.wiki.Find(ctx, label)
	if err != nil {
		c.logger.Warn("encyclopedia lookup failed", "concept", label, "error", err)
	}
	if !page.Exists {
		return ConceptCheck{}
	}
	return ConceptCheck{
		Exists:  true,
		Source:  page.Lang + "-wiki",
		URL:     page.URL,
		Summary: truncateRunes(page.Summary, conceptSnippetRunes),
	}
}

// VerifyRelation scores the claimed relation between a and b: 0.3 for each
// concept with an encyclopedia entry, plus 0.1 per paper mentioning both
// (at most 0.4). The relation is verified at 0.5 or more.
func (c *Checker) VerifyRelation(ctx context.Context, a, b, relation string) RelationCheck {
	out := RelationCheck{Evidence: []Snippet{}, Sources: []string{}}
	sources := map[string]bool{}

	for _, concept := range []string{a, b} {
		check := c.CheckConcept(ctx, concept)
		if !check.Exists {
			continue
		}
		out.Evidence = append(out.Evidence, Snippet{
			Source:  fmt.Sprintf("Wikipedia (%s)", check.Source),
			URL:     check.URL,
			Snippet: check.Summary,
		})
		sources[check.Source] = true
		out.Credibility += wikiCredit
	}

	papers, err := c.arxiv.Search(ctx, a+" "+b, relationPapers)
	if err != nil {
		c.logger.Warn("preprint search failed", "query", a+" "+b, "error", err)
	}
	for i, p := range papers {
		if i >= keptPapers {
			break
		}
		out.Evidence = append(out.Evidence, Snippet{
			Source:  "arXiv",
			URL:     p.Link,
			Snippet: p.Title + " - " + truncateRunes(p.Summary, paperSnippetRunes) + "...",
		})
		sources["arxiv"] = true
	}
	out.Credibility += min(paperCreditCap, float64(len(papers))*paperCredit)
	out.Credibility = min(1.0, out.Credibility)
	out.Verified = out.Credibility >= verifiedThreshold

	for s := range sources {
		out.Sources = append(out.Sources, s)
	}
	sort.Strings(out.Sources)

	c.logger.Info("relation checked",
		"from", a, "to", b, "relation", relation,
		"credibility", out.Credibility, "verified", out.Verified)
	return out
}

// BatchVerify checks many concepts concurrently.
func (c *Checker) BatchVerify(ctx context.Context, labels []string) map[string]ConceptCheck {
	results := make([]ConceptCheck, len(labels))
	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i, label := range labels {
		g.Go(func() error {
			results[i] = c.CheckConcept(ctx, label)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]ConceptCheck, len(labels))
	for i, label := range labels {
		out[label] = results[i]
	}
	return out
}

// Enrich combines the encyclopedia entry of concept with the number of
// related papers: 0.6 for an entry plus 0.08 per paper (at most 0.4).
func (c *Checker) Enrich(ctx context.Context, concept, discipline string) Enrichment {
	check := c.CheckConcept(ctx, concept)

	query := concept
	if discipline != "" {
		query = concept + " " + discipline
	}
	papers, err := c.arxiv.Search(ctx, query, enrichPapers)
	if err != nil {
		c.logger.Warn("preprint search failed", "query", query, "error", err)
	}

	e := Enrichment{
		Concept:       concept,
		Definition:    check.Summary,
		WikiExists:    check.Exists,
		WikiURL:       check.URL,
		RelatedPapers: len(papers),
		PaperLinks:    []string{},
		Sources:       []string{},
	}
	if check.Exists {
		e.Credibility += enrichWikiCredit
		e.Sources = append(e.Sources, check.Source)
	}
	if len(papers) > 0 {
		e.Credibility += min(paperCreditCap, float64(len(papers))*enrichPaperCredit)
		e.Sources = append(e.Sources, "arxiv")
	}
	for i, p := range papers {
		if i >= relationPapers {
			break
		}
		e.PaperLinks = append(e.PaperLinks, p.Link)
	}
	return e
}
