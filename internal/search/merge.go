// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"math"
	"sort"
	"strings"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// Scored pairs a result with its relevance score.
type Scored struct {
	Result types.ResearchResult `json:"result"`
	Score  float64              `json:"score"`
}

// Score is a completeness and authority heuristic. It rewards present fields
// and citations and prefers the academically indexed provider on ties; it is
// not a semantic relevance ranker.
func Score(r types.ResearchResult) float64 {
	var s float64
	if strings.TrimSpace(r.Title) != "" {
		s += 10
	}
	if r.HasAbstract() {
		s += 15
	} else {
		s -= 10
	}
	if r.PDFURL != "" {
		s += 5
	}
	if r.HasCode() {
		s += 5
	}
	if r.Metadata.Year > 0 {
		s += 3
	} else {
		s -= 5
	}
	if r.Metadata.Venue != "" {
		s += 3
	}
	if len(r.Metadata.Authors) > 0 {
		s += 3
	}
	if r.Metadata.Citations > 0 {
		s += math.Min(float64(r.Metadata.Citations)/100, 10)
	}
	if r.Metadata.Source == types.SourceSemanticScholar {
		s += 2
	}
	return s
}

// DedupKey identifies a record across result sets.
func DedupKey(r types.ResearchResult) string {
	return r.ID + "-" + r.Metadata.Source
}

// EnsureID assigns a slug id to r when it has none.
func EnsureID(r *types.ResearchResult) {
	if r.ID == "" {
		r.ID = Slug(r.Title, r.Metadata.Year, r.Metadata.Venue, r.Metadata.Authors)
	}
}

// Merge combines result sets into one list holding the highest-scoring record
// per dedup key, sorted by descending score. Ties keep the record seen first,
// and equal scores keep their first-seen order.
func Merge(sets ...[]types.ResearchResult) []Scored {
	index := make(map[string]int)
	var merged []Scored

	for _, set := range sets {
		for _, r := range set {
			EnsureID(&r)
			sc := Scored{Result: r, Score: Score(r)}
			key := DedupKey(r)
			if i, ok := index[key]; ok {
				if sc.Score > merged[i].Score {
					merged[i] = sc
				}
				continue
			}
			index[key] = len(merged)
			merged = append(merged, sc)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

// Results strips the scores from a merged list.
func Results(scored []Scored) []types.ResearchResult {
	out := make([]types.ResearchResult, len(scored))
	for i, s := range scored {
		out[i] = s.Result
	}
	return out
}
