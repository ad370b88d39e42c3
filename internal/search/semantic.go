// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/paper-radar/internal/queue"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// semanticAPIBase is the Semantic Scholar graph API root. Declared as a var
// so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1"

const semanticFields = "paperId,title,abstract,authors,year,venue,citationCount,openAccessPdf,externalIds"

// IDPrefixSemanticScholar marks canonical ids owned by Semantic Scholar.
const IDPrefixSemanticScholar = "ss-"

// SemanticScholarSource queries the Semantic Scholar graph API.
type SemanticScholarSource struct {
	Transport Transport

	// APIKey is sent as x-api-key when set.
	APIKey string

	// BaseURL overrides semanticAPIBase.
	BaseURL string
}

// Name returns the source identifier.
func (s *SemanticScholarSource) Name() string { return types.SourceSemanticScholar }

func (s *SemanticScholarSource) base() string {
	if s.BaseURL != "" {
		return s.BaseURL
	}
	return semanticAPIBase
}

func (s *SemanticScholarSource) header() http.Header {
	h := http.Header{}
	if s.APIKey != "" {
		h.Set("x-api-key", s.APIKey)
	}
	return h
}

// Search calls /paper/search.
func (s *SemanticScholarSource) Search(ctx context.Context, query string, offset, limit int) ([]types.ResearchResult, error) {
	params := url.Values{
		"query":  {query},
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
		"fields": {semanticFields},
	}
	reqURL := s.base() + "/paper/search?" + params.Encode()

	sr, err := get[semanticResponse](ctx, s.Transport, queue.Normal, s.Name(), reqURL, s.header())
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar search: %w", err)
	}
	if sr == nil {
		return nil, nil
	}

	results := make([]types.ResearchResult, 0, len(sr.Data))
	for _, p := range sr.Data {
		results = append(results, p.toResult())
	}
	return results, nil
}

// Detail calls /paper/{id}. The id may be a 40-hex paper id or a
// "CorpusID:<n>" token.
func (s *SemanticScholarSource) Detail(ctx context.Context, id string) (*types.ResearchResult, error) {
	reqURL := s.base() + "/paper/" + url.PathEscape(id) + "?" + url.Values{"fields": {semanticFields}}.Encode()

	p, err := get[semanticPaper](ctx, s.Transport, queue.Priority, s.Name(), reqURL, s.header())
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar detail %s: %w", id, err)
	}
	if p == nil {
		return nil, nil
	}
	r := p.toResult()
	return &r, nil
}

func (p semanticPaper) toResult() types.ResearchResult {
	r := types.ResearchResult{
		Title:    p.Title,
		Abstract: types.OptionalString(p.Abstract),
		Metadata: types.Metadata{
			Source:     types.SourceSemanticScholar,
			ProviderID: p.PaperID,
			Year:       p.Year,
			Venue:      p.Venue,
			Citations:  p.CitationCount,
		},
	}
	for _, a := range p.Authors {
		if a.Name != "" {
			r.Metadata.Authors = append(r.Metadata.Authors, a.Name)
		}
	}
	if p.OpenAccessPDF != nil {
		r.PDFURL = p.OpenAccessPDF.URL
	}

	switch {
	case p.PaperID != "":
		r.ID = IDPrefixSemanticScholar + p.PaperID
	case p.ExternalIDs.CorpusID > 0:
		r.ID = "CorpusID:" + strconv.Itoa(p.ExternalIDs.CorpusID)
		r.Metadata.ProviderID = r.ID
	}
	EnsureID(&r)
	return r
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string              `json:"paperId"`
	Title         string              `json:"title"`
	Abstract      string              `json:"abstract"`
	Year          int                 `json:"year"`
	Venue         string              `json:"venue"`
	CitationCount int                 `json:"citationCount"`
	Authors       []semanticAuthor    `json:"authors"`
	OpenAccessPDF *semanticPDF        `json:"openAccessPdf"`
	ExternalIDs   semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticPDF struct {
	URL    string `json:"url"`
	Status string `json:"status"`
}

type semanticExternalIDs struct {
	DOI      string `json:"DOI"`
	ArXiv    string `json:"ArXiv"`
	CorpusID int    `json:"CorpusId"`
}
