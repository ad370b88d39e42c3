// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paper-radar/internal/logging"
	"github.com/pdiddy/paper-radar/internal/queue"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// pwcAPIBase is the Papers with Code API root. Declared as a var so tests can
// substitute an httptest server.
var pwcAPIBase = "https://paperswithcode.com/api/v1"

// IDPrefixPapersWithCode marks canonical ids owned by Papers with Code.
const IDPrefixPapersWithCode = "pwc-"

// PapersWithCodeSource queries the Papers with Code API. It needs no key.
type PapersWithCodeSource struct {
	Transport Transport

	// BaseURL overrides pwcAPIBase.
	BaseURL string

	Logger *slog.Logger
}

// Name returns the source identifier.
func (s *PapersWithCodeSource) Name() string { return types.SourcePapersWithCode }

func (s *PapersWithCodeSource) base() string {
	if s.BaseURL != "" {
		return s.BaseURL
	}
	return pwcAPIBase
}

// Search calls /papers/ with page = offset/limit + 1.
func (s *PapersWithCodeSource) Search(ctx context.Context, query string, offset, limit int) ([]types.ResearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	params := url.Values{
		"q":              {query},
		"page":           {strconv.Itoa(offset/limit + 1)},
		"items_per_page": {strconv.Itoa(limit)},
	}
	reqURL := s.base() + "/papers/?" + params.Encode()

	pr, err := get[pwcPage[pwcPaper]](ctx, s.Transport, queue.Normal, s.Name(), reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("Papers with Code search: %w", err)
	}
	if pr == nil {
		return nil, nil
	}

	results := make([]types.ResearchResult, 0, len(pr.Results))
	for _, p := range pr.Results {
		results = append(results, p.toResult(nil))
	}
	return results, nil
}

// Detail calls /papers/{id}/ and, best-effort, /papers/{id}/repositories/.
func (s *PapersWithCodeSource) Detail(ctx context.Context, id string) (*types.ResearchResult, error) {
	paperURL := s.base() + "/papers/" + url.PathEscape(id) + "/"

	p, err := get[pwcPaper](ctx, s.Transport, queue.Priority, s.Name(), paperURL, nil)
	if err != nil {
		return nil, fmt.Errorf("Papers with Code detail %s: %w", id, err)
	}
	if p == nil {
		return nil, nil
	}

	repoURL := s.base() + "/papers/" + url.PathEscape(id) + "/repositories/"
	repos, err := get[pwcPage[pwcRepository]](ctx, s.Transport, queue.Priority, s.Name(), repoURL, nil)
	if err != nil {
		logging.NewComponentLogger(s.Logger, "search").Warn("repository lookup failed",
			logging.Source(s.Name()), logging.PaperID(id), logging.Error(err))
	}
	var list []pwcRepository
	if repos != nil {
		list = repos.Results
	}

	r := p.toResult(pickRepository(list))
	return &r, nil
}

// pickRepository prefers the official implementation, then the most starred.
func pickRepository(repos []pwcRepository) *pwcRepository {
	var best *pwcRepository
	for i := range repos {
		r := &repos[i]
		if r.URL == "" {
			continue
		}
		switch {
		case best == nil:
			best = r
		case r.IsOfficial && !best.IsOfficial:
			best = r
		case r.IsOfficial == best.IsOfficial && r.Stars > best.Stars:
			best = r
		}
	}
	return best
}

func (p pwcPaper) toResult(repo *pwcRepository) types.ResearchResult {
	r := types.ResearchResult{
		Title:    p.Title,
		Abstract: types.OptionalString(p.Abstract),
		PDFURL:   p.URLPDF,
		Metadata: types.Metadata{
			Source:     types.SourcePapersWithCode,
			ProviderID: p.ID,
			Authors:    nonEmpty(p.Authors),
			Venue:      firstNonEmpty(p.Conference, p.Proceeding),
		},
	}
	if p.ID != "" {
		r.ID = IDPrefixPapersWithCode + p.ID
	}
	if t, err := time.Parse("2006-01-02", p.Published); err == nil {
		r.Metadata.Year = t.Year()
	}
	if repo != nil {
		r.CodeURL = types.OptionalString(repo.URL)
		r.Metadata.CodeRepository = &types.CodeRepository{
			URL:       repo.URL,
			Stars:     repo.Stars,
			Framework: repo.Framework,
			Official:  repo.IsOfficial,
		}
	}
	EnsureID(&r)
	return r
}

func nonEmpty(ss []string) []string {
	var out []string
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Papers with Code API JSON structures.
type pwcPage[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

type pwcPaper struct {
	ID         string   `json:"id"`
	ArxivID    string   `json:"arxiv_id"`
	Title      string   `json:"title"`
	Abstract   string   `json:"abstract"`
	Authors    []string `json:"authors"`
	Published  string   `json:"published"`
	URLAbs     string   `json:"url_abs"`
	URLPDF     string   `json:"url_pdf"`
	Conference string   `json:"conference"`
	Proceeding string   `json:"proceeding"`
}

type pwcRepository struct {
	URL        string `json:"url"`
	Owner      string `json:"owner"`
	Name       string `json:"name"`
	Stars      int    `json:"stars"`
	Framework  string `json:"framework"`
	IsOfficial bool   `json:"is_official"`
}
