// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidence gathers raw support for concepts and relations from an
// encyclopedia (Wikipedia REST summaries) and a preprint repository (the
// arXiv Atom API).
package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/concept-engine/internal/httputil"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// wikipediaAPIBase is the REST endpoint pattern; %s is the language edition.
// Declared as a var so tests can substitute an httptest server.
var wikipediaAPIBase = "https://%s.wikipedia.org/api/rest_v1"

const maxSummaryRunes = 500

// Page is one encyclopedia summary.
type Page struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
	Lang    string `json:"lang"`
	Exists  bool   `json:"exists"`
}

// Wikipedia looks concepts up in the Wikipedia REST API.
type Wikipedia struct {
	Client     *http.Client
	Languages  []string
	UserAgent  string
	MaxRetries int
}

// NewWikipedia returns a client for the configured language editions.
func NewWikipedia(client *http.Client, cfg types.EvidenceConfig) *Wikipedia {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{"zh", "en"}
	}
	return &Wikipedia{Client: client, Languages: langs, UserAgent: cfg.UserAgent, MaxRetries: cfg.MaxRetries}
}

type summaryResponse struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Lookup fetches the summary of concept in one language edition. A missing
// page is reported as Exists=false with a nil error.
func (w *Wikipedia) Lookup(ctx context.Context, lang, concept string) (Page, error) {
	missing := Page{Title: concept, Lang: lang}
	title := strings.ReplaceAll(strings.TrimSpace(concept), " ", "_")
	if title == "" {
		return missing, nil
	}

	endpoint := fmt.Sprintf(wikipediaAPIBase, lang) + "/page/summary/" + url.PathEscape(title)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return missing, fmt.Errorf("creating request: %w", err)
	}
	if w.UserAgent != "" {
		req.Header.Set("User-Agent", w.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httputil.DoWithRetry(ctx, w.Client, req, w.MaxRetries)
	if err != nil {
		return missing, fmt.Errorf("wikipedia (%s) request: %w", lang, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return missing, nil
	}
	if resp.StatusCode != http.StatusOK {
		return missing, fmt.Errorf("wikipedia (%s) returned HTTP %d", lang, resp.StatusCode)
	}

	var body summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return missing, fmt.Errorf("parsing wikipedia response: %w", err)
	}
	if body.Type == "https://mediawiki.org/wiki/HyperSwitch/errors/not_found" {
		return missing, nil
	}

	return Page{
		Title:   body.Title,
		Summary: truncateRunes(body.Extract, maxSummaryRunes),
		URL:     body.ContentURLs.Desktop.Page,
		Lang:    lang,
		Exists:  true,
	}, nil
}

// Find tries each language in order and returns the first page found. It
// returns an error only when no edition answered and at least one failed.
func (w *Wikipedia) Find(ctx context.Context, concept string) (Page, error) {
	var errs []error
	for _, lang := range w.Languages {
		page, err := w.Lookup(ctx, lang, concept)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if page.Exists {
			return page, nil
		}
	}
	return Page{Title: concept}, errors.Join(errs...)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
