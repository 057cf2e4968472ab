// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"

	"github.com/pdiddy/concept-engine/internal/fusion"
)

// Reasoner explains a claimed relation in the model's own words.
type Reasoner interface {
	Reason(ctx context.Context, a, b, relation string) (fusion.ReasoningData, error)
}

// Collect gathers the raw per-source data for the relation a -> b: the
// encyclopedia entry of b, the most relevant paper mentioning both, the most
// relevant OpenAlex work with an abstract when OpenAlex is enabled, and the
// reasoner's explanation when reasoner is non-nil. Sources that fail or find
// nothing are left empty.
func (c *Checker) Collect(ctx context.Context, a, b, relation string, reasoner Reasoner) fusion.SourceData {
	var data fusion.SourceData

	page, err := c.wiki.Find(ctx, b)
	if err != nil {
		c.logger.Warn("encyclopedia lookup failed", "concept", b, "error", err)
	}
	if page.Exists {
		data.Encyclopedia = &fusion.EncyclopediaData{
			Title:   page.Title,
			Summary: page.Summary,
			URL:     page.URL,
		}
	}

	papers, err := c.arxiv.Search(ctx, a+" "+b, c.maxPapers)
	if err != nil {
		c.logger.Warn("preprint search failed", "query", a+" "+b, "error", err)
	}
	if len(papers) > 0 {
		p := papers[0]
		data.Preprint = &fusion.PreprintData{
			Title:     p.Title,
			Abstract:  p.Summary,
			PDFURL:    p.PDFURL,
			Published: p.Published,
		}
	}

	if c.openalex != nil {
		data.Curated = c.curated(ctx, a+" "+b)
	}

	if reasoner != nil {
		r, err := reasoner.Reason(ctx, a, b, relation)
		if err != nil {
			c.logger.Warn("model reasoning failed", "from", a, "to", b, "error", err)
		} else {
			data.Reasoning = &r
		}
	}
	return data
}

func (c *Checker) curated(ctx context.Context, query string) *fusion.CuratedData {
	works, err := c.openalex.Search(ctx, query, c.maxPapers)
	if err != nil {
		c.logger.Warn("curated database search failed", "query", query, "error", err)
		return nil
	}
	for _, w := range works {
		if w.Abstract == "" {
			continue
		}
		return &fusion.CuratedData{
			Title:     w.Title,
			Abstract:  w.Abstract,
			DOI:       w.DOI,
			Published: w.Published,
			CitedBy:   w.CitedBy,
		}
	}
	return nil
}
