// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/concept-engine/internal/httputil"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// openAlexAPIBase is the OpenAlex Works search endpoint. Declared as a var
// so tests can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

const maxOpenAlexResults = 200

// Work is one OpenAlex search result.
type Work struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Abstract  string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	DOI       string `json:"doi,omitempty" yaml:"doi,omitempty"`
	Published string `json:"published,omitempty" yaml:"published,omitempty"`
	CitedBy   int    `json:"cited_by" yaml:"cited_by"`
}

// OpenAlex queries the OpenAlex API.
type OpenAlex struct {
	Client     *http.Client
	UserAgent  string
	MaxRetries int

	// Email is sent as mailto parameter for polite pool access.
	Email string
}

// NewOpenAlex returns an OpenAlex client.
func NewOpenAlex(client *http.Client, cfg types.EvidenceConfig) *OpenAlex {
	return &OpenAlex{Client: client, UserAgent: cfg.UserAgent, MaxRetries: cfg.MaxRetries, Email: cfg.Email}
}

// Search returns up to maxResults works matching query in relevance order.
// Works without an abstract are kept; DOIs are returned without the
// https://doi.org/ prefix.
func (o *OpenAlex) Search(ctx context.Context, query string, maxResults int) ([]Work, error) {
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	maxResults = min(maxResults, maxOpenAlexResults)

	params := url.Values{
		"search":   {query},
		"per_page": {strconv.Itoa(maxResults)},
		"page":     {"1"},
	}
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if o.UserAgent != "" {
		req.Header.Set("User-Agent", o.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, o.Client, req, o.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	works := make([]Work, 0, len(oar.Results))
	for _, w := range oar.Results {
		work := Work{
			ID:        w.ID,
			Title:     collapseSpace(w.Title),
			Abstract:  reconstructAbstract(w.AbstractInvertedIndex),
			DOI:       strings.TrimPrefix(w.DOI, "https://doi.org/"),
			Published: w.PublicationDate,
			CitedBy:   w.CitedByCount,
		}
		if work.Published == "" && w.PublicationYear > 0 {
			work.Published = strconv.Itoa(w.PublicationYear)
		}
		works = append(works, work)
	}
	return works, nil
}

// reconstructAbstract converts an abstract_inverted_index, which maps each
// word to its positions, back to plain text.
func reconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}
	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range index {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos, word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].pos < pairs[j].pos })

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string           `json:"id"`
	Title                 string           `json:"title"`
	DOI                   string           `json:"doi"`
	PublicationDate       string           `json:"publication_date"`
	PublicationYear       int              `json:"publication_year"`
	CitedByCount          int              `json:"cited_by_count"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}
