// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for paper-radar: the canonical
// paper record assembled from every provider, the analysis fields attached by
// enrichment, and the configuration consumed by each component.
package types

import (
	"strings"
	"time"
)

// Provenance values carried in Metadata.Source.
const (
	SourceSemanticScholar = "semantic_scholar"
	SourcePapersWithCode  = "papers_with_code"
	SourceLocal           = "local"
)

// ResearchResult is the canonical paper record. Source adapters and the local
// store produce it; the merge engine assigns ID when a provider left it empty,
// and enrichment appends analysis fields to Metadata. ID is the dedup identity
// and does not change once assigned.
type ResearchResult struct {
	// ID is opaque; its prefix encodes provenance ("ss-", "pwc-", a UUID,
	// a 40-hex token, or a "CorpusID:" token).
	ID string `json:"id" yaml:"id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Abstract is nil when the provider returned none.
	Abstract *string `json:"abstract" yaml:"abstract"`

	// PDFURL links to the paper PDF when one is known.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	// CodeURL is nil when no implementation is linked.
	CodeURL *string `json:"code_url" yaml:"code_url"`

	Metadata Metadata `json:"metadata" yaml:"metadata"`
}

// Metadata holds bibliographic fields and the analysis attached by enrichment.
type Metadata struct {
	// Source identifies the provider or store that produced the record.
	Source string `json:"source" yaml:"source"`

	// ProviderID is the provider-native identifier without the provenance
	// prefix. The local store indexes it for secondary lookups.
	ProviderID string `json:"provider_id,omitempty" yaml:"provider_id,omitempty"`

	Authors   []string `json:"authors" yaml:"authors"`
	Year      int      `json:"year,omitempty" yaml:"year,omitempty"`
	Venue     string   `json:"venue,omitempty" yaml:"venue,omitempty"`
	Citations int      `json:"citations" yaml:"citations"`

	CodeRepository *CodeRepository `json:"code_repository,omitempty" yaml:"code_repository,omitempty"`

	Insights            []Insight             `json:"insights,omitempty" yaml:"insights,omitempty"`
	Concepts            []Concept             `json:"concepts,omitempty" yaml:"concepts,omitempty"`
	Difficulty          *DifficultyAssessment `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	CodeSnippets        []CodeSnippet         `json:"code_snippets,omitempty" yaml:"code_snippets,omitempty"`
	ImplementationSteps []ImplementationStep  `json:"implementation_steps,omitempty" yaml:"implementation_steps,omitempty"`

	// Analyzed flips to true once the enrichment pipeline has run to completion.
	Analyzed   bool       `json:"analyzed" yaml:"analyzed"`
	AnalyzedAt *time.Time `json:"analyzed_at,omitempty" yaml:"analyzed_at,omitempty"`
}

// CodeRepository describes the implementation linked to a paper.
type CodeRepository struct {
	URL       string `json:"url" yaml:"url"`
	Stars     int    `json:"stars" yaml:"stars"`
	Framework string `json:"framework,omitempty" yaml:"framework,omitempty"`
	Official  bool   `json:"official" yaml:"official"`
}

// PaperDetail pairs a resolved paper with the short analysis text shown
// alongside it. It is the value cached by the detail resolver.
type PaperDetail struct {
	Paper    ResearchResult `json:"paper" yaml:"paper"`
	Analysis string         `json:"analysis" yaml:"analysis"`
}

// OptionalString returns nil for blank input and a pointer to the trimmed
// value otherwise.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// HasAbstract reports whether the record carries a non-blank abstract.
func (r ResearchResult) HasAbstract() bool {
	return r.Abstract != nil && strings.TrimSpace(*r.Abstract) != ""
}

// HasCode reports whether the record links to an implementation.
func (r ResearchResult) HasCode() bool {
	return r.CodeURL != nil && strings.TrimSpace(*r.CodeURL) != ""
}

// AbstractText returns the abstract or the empty string.
func (r ResearchResult) AbstractText() string {
	if r.Abstract == nil {
		return ""
	}
	return *r.Abstract
}

// CodeURLText returns the code URL or the empty string.
func (r ResearchResult) CodeURLText() string {
	if r.CodeURL == nil {
		return ""
	}
	return *r.CodeURL
}

// Clone returns a deep copy so cached records can be handed out without
// sharing slices or pointers with the cache.
func (r ResearchResult) Clone() ResearchResult {
	c := r
	if r.Abstract != nil {
		v := *r.Abstract
		c.Abstract = &v
	}
	if r.CodeURL != nil {
		v := *r.CodeURL
		c.CodeURL = &v
	}
	m := r.Metadata
	m.Authors = cloneSlice(m.Authors)
	if m.CodeRepository != nil {
		repo := *m.CodeRepository
		m.CodeRepository = &repo
	}
	m.Insights = cloneSlice(m.Insights)
	m.Concepts = cloneSlice(m.Concepts)
	if m.Difficulty != nil {
		d := *m.Difficulty
		d.TechnicalSkills = cloneSlice(d.TechnicalSkills)
		d.Prerequisites = cloneSlice(d.Prerequisites)
		m.Difficulty = &d
	}
	m.CodeSnippets = cloneSlice(m.CodeSnippets)
	m.ImplementationSteps = cloneSlice(m.ImplementationSteps)
	if m.AnalyzedAt != nil {
		t := *m.AnalyzedAt
		m.AnalyzedAt = &t
	}
	c.Metadata = m
	return c
}

// CloneResults deep-copies every record in rs.
func CloneResults(rs []ResearchResult) []ResearchResult {
	if rs == nil {
		return nil
	}
	out := make([]ResearchResult, len(rs))
	for i, r := range rs {
		out[i] = r.Clone()
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
