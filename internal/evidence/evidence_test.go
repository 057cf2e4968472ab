// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/concept-engine/internal/fusion"
	"github.com/pdiddy/concept-engine/internal/httputil"
	"github.com/pdiddy/concept-engine/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <title>Entropy and
      Information Gain</title>
    <summary>  We relate thermodynamic entropy to information gain.  </summary>
    <published>2023-01-17T18:00:00Z</published>
    <author><name>Alice Smith</name></author>
    <author><name> Bob Jones </name></author>
    <link href="http://arxiv.org/abs/2301.07041v2" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2301.07041v2" rel="related" type="application/pdf"/>
    <category term="cs.IT"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/hep-th/9901001v1</id>
    <title>Old Style Paper</title>
    <summary>Abstract two.</summary>
    <published>1999-01-01T00:00:00Z</published>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2302.00001v1</id>
    <title>Third</title>
    <summary>Abstract three.</summary>
    <published>2023-02-01T00:00:00Z</published>
  </entry>
</feed>`

// fakeSources serves Wikipedia summaries keyed by "lang/Title" and a fixed
// arXiv feed.
type fakeSources struct {
	pages      map[string]string
	feed       string
	wikiStatus int
	wikiCalls  int32
	arxivCalls int32
	lastQuery  atomic.Value
}

func (f *fakeSources) start(t *testing.T) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/arxiv") {
			atomic.AddInt32(&f.arxivCalls, 1)
			f.lastQuery.Store(r.URL.Query().Get("search_query"))
			w.Header().Set("Content-Type", "application/atom+xml")
			fmt.Fprint(w, f.feed)
			return
		}

		atomic.AddInt32(&f.wikiCalls, 1)
		if f.wikiStatus != 0 {
			w.WriteHeader(f.wikiStatus)
			return
		}
		// /{lang}/page/summary/{title}
		parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 4)
		if len(parts) != 4 {
			http.NotFound(w, r)
			return
		}
		lang, title := parts[0], parts[3]
		extract, ok := f.pages[lang+"/"+title]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"type":"https://mediawiki.org/wiki/HyperSwitch/errors/not_found"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"type":    "standard",
			"title":   strings.ReplaceAll(title, "_", " "),
			"extract": extract,
			"content_urls": map[string]any{
				"desktop": map[string]any{"page": "https://" + lang + ".wikipedia.org/wiki/" + title},
			},
		})
	}))
	t.Cleanup(ts.Close)

	oldWiki, oldArxiv := wikipediaAPIBase, arxivAPIBase
	wikipediaAPIBase = ts.URL + "/%s"
	arxivAPIBase = ts.URL + "/arxiv"
	t.Cleanup(func() { wikipediaAPIBase, arxivAPIBase = oldWiki, oldArxiv })
}

func newTestChecker() *Checker {
	return NewChecker(http.DefaultClient, types.DefaultConfig().Evidence, nil)
}

func TestWikipedia_LanguageFallback(t *testing.T) {
	f := &fakeSources{pages: map[string]string{
		"en/Information_gain": "Information gain is the reduction in entropy.",
		"zh/熵":                "熵是一个物理量。",
	}}
	f.start(t)
	w := NewWikipedia(http.DefaultClient, types.DefaultConfig().Evidence)

	page, err := w.Find(context.Background(), "information gain")
	require.NoError(t, err)
	assert.False(t, page.Exists)

	page, err = w.Find(context.Background(), "Information gain")
	require.NoError(t, err)
	assert.True(t, page.Exists)
	assert.Equal(t, "en", page.Lang)
	assert.Equal(t, "Information gain", page.Title)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Information_gain", page.URL)

	page, err = w.Find(context.Background(), "熵")
	require.NoError(t, err)
	assert.Equal(t, "zh", page.Lang)
}

func TestWikipedia_TruncatesSummary(t *testing.T) {
	f := &fakeSources{pages: map[string]string{"zh/熵": strings.Repeat("熵", 800)}}
	f.start(t)

	page, err := NewWikipedia(http.DefaultClient, types.EvidenceConfig{}).Lookup(context.Background(), "zh", "熵")
	require.NoError(t, err)
	assert.Equal(t, 500, len([]rune(page.Summary)))
}

func TestWikipedia_ServerErrorIsReported(t *testing.T) {
	f := &fakeSources{wikiStatus: http.StatusBadGateway}
	f.start(t)
	w := NewWikipedia(http.DefaultClient, types.EvidenceConfig{Languages: []string{"en"}, MaxRetries: 1})

	page, err := w.Find(context.Background(), "Entropy")
	assert.Error(t, err)
	assert.False(t, page.Exists)
	// One attempt plus one retry.
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.wikiCalls))
}

func TestArxiv_Search(t *testing.T) {
	f := &fakeSources{feed: sampleFeed}
	f.start(t)

	papers, err := NewArxiv(http.DefaultClient, types.EvidenceConfig{}).Search(context.Background(), "entropy  information", 3)
	require.NoError(t, err)
	require.Len(t, papers, 3)

	p := papers[0]
	assert.Equal(t, "2301.07041", p.ID)
	assert.Equal(t, "Entropy and Information Gain", p.Title)
	assert.Equal(t, "We relate thermodynamic entropy to information gain.", p.Summary)
	assert.Equal(t, []string{"Alice Smith", "Bob Jones"}, p.Authors)
	assert.Equal(t, "http://arxiv.org/pdf/2301.07041v2", p.PDFURL)
	assert.Equal(t, []string{"cs.IT"}, p.Categories)

	assert.Equal(t, "hep-th/9901001", papers[1].ID)
	assert.Equal(t, "https://arxiv.org/pdf/hep-th/9901001", papers[1].PDFURL)
	assert.Equal(t, "all:entropy information", f.lastQuery.Load())
}

func TestArxiv_EmptyQuery(t *testing.T) {
	_, err := NewArxiv(http.DefaultClient, types.EvidenceConfig{}).Search(context.Background(), "  ", 3)
	assert.Error(t, err)
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"http://arxiv.org/abs/hep-th/9901001v3", "hep-th/9901001"},
		{"http://example.com/paper", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractArxivID(tt.in), tt.in)
	}
}

func TestChecker_VerifyRelation(t *testing.T) {
	f := &fakeSources{
		pages: map[string]string{
			"zh/熵":    "熵是一个物理量。",
			"en/信息增益": "Information gain.",
		},
		feed: sampleFeed,
	}
	f.start(t)

	got := newTestChecker().VerifyRelation(context.Background(), "熵", "信息增益", "foundation")
	// 0.3 + 0.3 + min(0.4, 3*0.1) capped at 1.
	assert.InDelta(t, 0.9, got.Credibility, 1e-9)
	assert.True(t, got.Verified)
	require.Len(t, got.Evidence, 4)
	assert.Equal(t, "Wikipedia (zh-wiki)", got.Evidence[0].Source)
	assert.Equal(t, "Wikipedia (en-wiki)", got.Evidence[1].Source)
	assert.Equal(t, "arXiv", got.Evidence[2].Source)
	assert.Equal(t, []string{"arxiv", "en-wiki", "zh-wiki"}, got.Sources)
}

func TestChecker_VerifyRelationNothingFound(t *testing.T) {
	f := &fakeSources{feed: `<feed xmlns="http://www.w3.org/2005/Atom"></feed>`}
	f.start(t)

	got := newTestChecker().VerifyRelation(context.Background(), "foo", "bar", "related")
	assert.Zero(t, got.Credibility)
	assert.False(t, got.Verified)
	assert.Empty(t, got.Evidence)
	assert.Empty(t, got.Sources)
}

func TestChecker_BatchVerifyAndExists(t *testing.T) {
	f := &fakeSources{pages: map[string]string{"en/Entropy": "Entropy is a measure."}}
	f.start(t)
	c := newTestChecker()

	got := c.BatchVerify(context.Background(), []string{"Entropy", "Nonexistent"})
	require.Len(t, got, 2)
	assert.True(t, got["Entropy"].Exists)
	assert.Equal(t, "en-wiki", got["Entropy"].Source)
	assert.False(t, got["Nonexistent"].Exists)

	assert.True(t, c.Exists(context.Background(), "Entropy"))
	assert.False(t, c.Exists(context.Background(), "Nonexistent"))
}

func TestChecker_Enrich(t *testing.T) {
	f := &fakeSources{pages: map[string]string{"en/Entropy": "Entropy is a measure."}, feed: sampleFeed}
	f.start(t)

	got := newTestChecker().Enrich(context.Background(), "Entropy", "physics")
	assert.True(t, got.WikiExists)
	assert.Equal(t, 3, got.RelatedPapers)
	assert.InDelta(t, 0.6+0.24, got.Credibility, 1e-9)
	assert.Equal(t, []string{"en-wiki", "arxiv"}, got.Sources)
	assert.Len(t, got.PaperLinks, 3)
	assert.Equal(t, "all:Entropy physics", f.lastQuery.Load())
}

type stubReasoner struct {
	data fusion.ReasoningData
	err  error
}

func (s stubReasoner) Reason(context.Context, string, string, string) (fusion.ReasoningData, error) {
	return s.data, s.err
}

func TestChecker_Collect(t *testing.T) {
	f := &fakeSources{pages: map[string]string{"en/Information_gain": "Information gain is a quantity."}, feed: sampleFeed}
	f.start(t)
	c := newTestChecker()

	data := c.Collect(context.Background(), "Entropy", "Information gain", "foundation",
		stubReasoner{data: fusion.ReasoningData{Reasoning: "both measure uncertainty"}})
	require.NotNil(t, data.Encyclopedia)
	assert.Equal(t, "Information gain is a quantity.", data.Encyclopedia.Summary)
	require.NotNil(t, data.Preprint)
	assert.Equal(t, "http://arxiv.org/pdf/2301.07041v2", data.Preprint.PDFURL)
	require.NotNil(t, data.Reasoning)
	assert.Len(t, data.Evidence(), 3)

	data = c.Collect(context.Background(), "Entropy", "Missing", "foundation", stubReasoner{err: errors.New("model down")})
	assert.Nil(t, data.Encyclopedia)
	assert.Nil(t, data.Reasoning)
	assert.NotNil(t, data.Preprint)
}

const sampleOpenAlex = `{"results":[
  {"id":"https://openalex.org/W1","title":"No Abstract Here","doi":null,"publication_year":2019,"cited_by_count":3},
  {"id":"https://openalex.org/W2","title":"Entropy  and Inference","doi":"https://doi.org/10.1103/PhysRev.106.620",
   "publication_date":"1957-05-15","cited_by_count":9000,
   "abstract_inverted_index":{"Information":[0],"theory":[1],"provides":[2],"entropy":[4],"a":[3]}}
]}`

func startOpenAlex(t *testing.T, lastQuery *url.Values) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*lastQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleOpenAlex)
	}))
	t.Cleanup(ts.Close)
	old := openAlexAPIBase
	openAlexAPIBase = ts.URL
	t.Cleanup(func() { openAlexAPIBase = old })
}

func TestOpenAlex_Search(t *testing.T) {
	var q url.Values
	startOpenAlex(t, &q)

	cfg := types.DefaultConfig().Evidence
	cfg.Email = "dev@example.com"
	works, err := NewOpenAlex(http.DefaultClient, cfg).Search(context.Background(), "  entropy   information ", 500)
	require.NoError(t, err)
	require.Len(t, works, 2)

	assert.Equal(t, "entropy information", q.Get("search"))
	assert.Equal(t, "200", q.Get("per_page"))
	assert.Equal(t, "dev@example.com", q.Get("mailto"))

	assert.Empty(t, works[0].Abstract)
	assert.Equal(t, "2019", works[0].Published)
	assert.Equal(t, "Entropy and Inference", works[1].Title)
	assert.Equal(t, "Information theory provides a entropy", works[1].Abstract)
	assert.Equal(t, "10.1103/PhysRev.106.620", works[1].DOI)
	assert.Equal(t, "1957-05-15", works[1].Published)
	assert.Equal(t, 9000, works[1].CitedBy)
}

func TestOpenAlex_EmptyQuery(t *testing.T) {
	_, err := NewOpenAlex(http.DefaultClient, types.DefaultConfig().Evidence).Search(context.Background(), "   ", 1)
	assert.Error(t, err)
}

func TestReconstructAbstract(t *testing.T) {
	assert.Empty(t, reconstructAbstract(nil))
	assert.Equal(t, "to be or not to be", reconstructAbstract(map[string][]int{
		"to": {0, 4}, "be": {1, 5}, "or": {2}, "not": {3},
	}))
}

func TestChecker_CollectWithOpenAlex(t *testing.T) {
	f := &fakeSources{pages: map[string]string{"en/Information_gain": "Information gain is a quantity."}, feed: sampleFeed}
	f.start(t)
	var q url.Values
	startOpenAlex(t, &q)

	cfg := types.DefaultConfig().Evidence
	cfg.OpenAlex = true
	c := NewChecker(http.DefaultClient, cfg, nil)

	data := c.Collect(context.Background(), "Entropy", "Information gain", "foundation", nil)
	require.NotNil(t, data.Curated)
	assert.Equal(t, "Entropy and Inference", data.Curated.Title)
	assert.Equal(t, "Entropy Information gain", q.Get("search"))

	evidence := data.Evidence()
	require.Len(t, evidence, 3)
	assert.Equal(t, types.SourceCuratedDatabase, evidence[2].SourceType)
	assert.Equal(t, "https://doi.org/10.1103/PhysRev.106.620", evidence[2].URL)
}
