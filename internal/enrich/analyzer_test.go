// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/internal/ai"
	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// fakeCompleter answers by matching a marker in the user prompt.
type fakeCompleter struct {
	mu      sync.Mutex
	calls   int
	replies map[string]string
	err     error
}

func (f *fakeCompleter) Complete(_ context.Context, _, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	for marker, reply := range f.replies {
		if strings.Contains(user, marker) {
			return reply, nil
		}
	}
	return "", errors.New("no scripted reply")
}

func (f *fakeCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestAnalyzer(c ai.Completer) *Analyzer {
	return NewAnalyzer(AnalyzerConfig{Completer: c, Policy: httputil.Policy{}})
}

func TestExplainKeyConceptsTitleOnlyNoNetwork(t *testing.T) {
	p := types.ResearchResult{ID: "ss-x", Title: "Scaling Laws"}

	for name, c := range map[string]ai.Completer{
		"nil completer":  nil,
		"missing key":    ai.NewOpenAIClient(types.AIConfig{}, nil),
		"failing client": &fakeCompleter{err: errors.New("dial tcp: no route to host")},
	} {
		t.Run(name, func(t *testing.T) {
			got := newTestAnalyzer(c).ExplainKeyConcepts(context.Background(), p)
			require.NotEmpty(t, got)
			assert.NotEmpty(t, got[0].Name)
		})
	}
}

func TestAssessDifficultyWhenCompletionFails(t *testing.T) {
	c := &fakeCompleter{err: errors.New("boom")}
	a := newTestAnalyzer(c)
	p := paper("Proximal Policy Optimization", "a reinforcement learning algorithm")

	d := a.AssessTechnicalDifficulty(context.Background(), p)
	assert.Equal(t, FallbackDifficulty(p).Level, d.Level)
	assert.True(t, d.Level.Valid())
	assert.NotEmpty(t, d.TechnicalSkills)
	assert.Equal(t, 1, c.Calls())
}

func TestAssessDifficultyStructured(t *testing.T) {
	c := &fakeCompleter{replies: map[string]string{
		"Assess how hard": "```json\n{\"level\": \"Expert\", \"score\": 42, \"technical_skills\": [], \"prerequisites\": [\"Measure theory\"]}\n```",
	}}
	p := paper("Denoising Diffusion Probabilistic Models", "diffusion")
	d, fb := newTestAnalyzer(c).assessTechnicalDifficulty(context.Background(), p)
	require.False(t, fb)
	assert.Equal(t, types.LevelExpert, d.Level)
	assert.Equal(t, 9, d.Score, "out-of-range score replaced")
	assert.Equal(t, FallbackDifficulty(p).TechnicalSkills, d.TechnicalSkills)
	assert.Equal(t, []string{"Measure theory"}, d.Prerequisites)
	assert.Equal(t, "2-4 weeks", d.EstimatedTime)
}

func TestAssessDifficultyInvalidLevelFallsBack(t *testing.T) {
	c := &fakeCompleter{replies: map[string]string{"Assess how hard": `{"level": "impossible"}`}}
	_, fb := newTestAnalyzer(c).assessTechnicalDifficulty(context.Background(), paper("X", ""))
	assert.True(t, fb)
}

func TestGenerateInsightsDiscardsInvalidItems(t *testing.T) {
	c := &fakeCompleter{replies: map[string]string{
		"insights about": `Sure! {"insights": [
			{"title": "Parallel training", "description": "No recurrence.", "category": "Contribution"},
			{"title": 7, "description": "bad title type"},
			{"description": "missing title"},
			"not an object"
		]}`,
	}}
	got := newTestAnalyzer(c).GenerateInsights(context.Background(), paper("Attention", ""))
	require.Len(t, got, 1)
	assert.Equal(t, types.Insight{Title: "Parallel training", Description: "No recurrence.", Category: "contribution"}, got[0])
}

func TestGenerateInsightsSingleObject(t *testing.T) {
	tests := map[string]string{
		"bare object":     `{"title": "Parallel training", "description": "No recurrence.", "category": "impact"}`,
		"truncated array": `[{"title": "Parallel training", "description": "No recurrence.", "category": "impact"}, {"title": "Cut`,
	}
	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			c := &fakeCompleter{replies: map[string]string{"insights about": reply}}
			got, fb := newTestAnalyzer(c).generateInsights(context.Background(), paper("Attention", ""))
			require.False(t, fb)
			assert.Equal(t, []types.Insight{{Title: "Parallel training", Description: "No recurrence.", Category: "impact"}}, got)
		})
	}
}

func TestExplainKeyConceptsHeuristic(t *testing.T) {
	c := &fakeCompleter{replies: map[string]string{
		"key concepts": "1. Attention: weighting tokens by relevance\n2. Residual connection: adds the input back to the output\n3. thanks",
	}}
	got, fb := newTestAnalyzer(c).explainKeyConcepts(context.Background(), paper("Attention", ""))
	require.False(t, fb)
	assert.Equal(t, []types.Concept{
		{Name: "Attention", Explanation: "weighting tokens by relevance", Importance: "medium"},
		{Name: "Residual connection", Explanation: "adds the input back to the output", Importance: "medium"},
	}, got)
}

func TestCodeSnippetsRejectHeuristic(t *testing.T) {
	c := &fakeCompleter{replies: map[string]string{"code snippets": "Just use PyTorch and write a training loop."}}
	p := paper("Some Paper Title", "")
	got, fb := newTestAnalyzer(c).generateCodeSnippets(context.Background(), p)
	assert.True(t, fb)
	assert.Equal(t, FallbackCodeSnippets(p), got)
}

func TestImplementationStepsRenumbered(t *testing.T) {
	c := &fakeCompleter{replies: map[string]string{
		"ordered plan": `[{"step": 3, "title": "Prepare data", "description": "Download the dataset."}, {"step": 9, "title": "Train", "description": "Run training."}]`,
	}}
	got, fb := newTestAnalyzer(c).generateImplementationSteps(context.Background(), paper("P", ""))
	require.False(t, fb)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Step)
	assert.Equal(t, 2, got[1].Step)
}

func TestAnalysisCache(t *testing.T) {
	c := &fakeCompleter{err: errors.New("down")}
	a := newTestAnalyzer(c)
	p := paper("Attention", "")

	a.GenerateInsights(context.Background(), p)
	a.GenerateInsights(context.Background(), p)
	assert.Equal(t, 2, c.Calls(), "fallback results are not cached")

	c.err = nil
	c.replies = map[string]string{"insights about": `[{"title": "Headline insight", "description": "Body text."}]`}
	first := a.GenerateInsights(context.Background(), p)
	second := a.GenerateInsights(context.Background(), p)
	assert.Equal(t, first, second)
	assert.Equal(t, 3, c.Calls())
}

func TestRateLimitedCompletionFallsBack(t *testing.T) {
	c := &fakeCompleter{err: &httputil.StatusError{StatusCode: 429}}
	a := NewAnalyzer(AnalyzerConfig{Completer: c, Policy: httputil.Policy{MaxRetries: 2}})
	got, fb := a.explainKeyConcepts(context.Background(), paper("Attention", ""))
	assert.True(t, fb)
	assert.NotEmpty(t, got)
	assert.Equal(t, 3, c.Calls())
}
