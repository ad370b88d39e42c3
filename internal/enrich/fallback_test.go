// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/pkg/types"
)

func paper(title, abstract string) types.ResearchResult {
	return types.ResearchResult{
		ID:       "ss-test",
		Title:    title,
		Abstract: types.OptionalString(abstract),
		Metadata: types.Metadata{Source: types.SourceSemanticScholar},
	}
}

func TestContainsWord(t *testing.T) {
	assert.True(t, containsWord("a gan for faces", "gan"))
	assert.True(t, containsWord("gan", "gan"))
	assert.False(t, containsWord("organ transplant", "gan"))
	assert.True(t, containsWord("self-attention layers", "self-attention"))
}

func TestFallbackConceptsTitleOnly(t *testing.T) {
	got := FallbackConcepts(paper("Sparse Mixture of Routing Experts", ""))
	require.NotEmpty(t, got)
	assert.Equal(t, "Sparse", got[0].Name)
	for _, c := range got {
		assert.NotEmpty(t, c.Explanation)
	}
}

func TestFallbackConceptsEmptyPaper(t *testing.T) {
	got := FallbackConcepts(types.ResearchResult{})
	require.Len(t, got, 1)
	assert.Equal(t, "Research Contribution", got[0].Name)
}

func TestFallbackConceptsFromDomains(t *testing.T) {
	got := FallbackConcepts(paper("Attention Is All You Need", "We propose the Transformer, based solely on attention mechanisms."))
	names := make([]string, 0, len(got))
	for _, c := range got {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "Self-Attention")
}

func TestFallbackDifficulty(t *testing.T) {
	tests := []struct {
		name  string
		p     types.ResearchResult
		level types.DifficultyLevel
		score int
	}{
		{"no domain", paper("A Survey of Datasets", ""), types.LevelBeginner, 3},
		{"transformer", paper("Attention Is All You Need", "the transformer architecture"), types.LevelAdvanced, 6},
		{"rl and transformer", paper("Decision Transformer", "reinforcement learning via sequence modeling"), types.LevelExpert, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := FallbackDifficulty(tt.p)
			assert.Equal(t, tt.level, d.Level)
			assert.Equal(t, tt.score, d.Score)
			assert.True(t, d.Level.Valid())
			assert.NotEmpty(t, d.TechnicalSkills)
			assert.NotEmpty(t, d.Prerequisites)
			assert.NotEmpty(t, d.EstimatedTime)
		})
	}
}

func TestFallbackInsights(t *testing.T) {
	p := paper("Deep Residual Learning", "We present a residual learning framework. It eases training.")
	p.Metadata.Citations = 150000
	url := "https://github.com/KaimingHe/deep-residual-networks"
	p.CodeURL = &url
	p.Metadata.CodeRepository = &types.CodeRepository{URL: url, Stars: 6000, Official: true}

	got := FallbackInsights(p)
	require.GreaterOrEqual(t, len(got), 3)
	assert.Equal(t, "Highly influential work", got[0].Title)
	assert.Equal(t, "We present a residual learning framework.", got[1].Description)
	assert.Equal(t, "Official implementation available", got[2].Title)
}

func TestFallbackCodeSnippets(t *testing.T) {
	t.Run("with repository", func(t *testing.T) {
		p := paper("Deep Residual Learning", "")
		url := "https://github.com/example/resnet"
		p.CodeURL = &url
		p.Metadata.CodeRepository = &types.CodeRepository{URL: url, Framework: "pytorch"}

		got := FallbackCodeSnippets(p)
		require.Len(t, got, 2)
		assert.Equal(t, "git clone "+url, got[0].Code)
		assert.Equal(t, "pip install torch", got[1].Code)
	})

	t.Run("without repository", func(t *testing.T) {
		got := FallbackCodeSnippets(paper("Neural Ordinary Differential Equations", ""))
		require.Len(t, got, 1)
		assert.Equal(t, "python", got[0].Language)
		assert.True(t, strings.Contains(got[0].Code, "class NeuralModel(nn.Module)"))
	})
}

func TestFallbackImplementationSteps(t *testing.T) {
	got := FallbackImplementationSteps(paper("Graph Attention Networks", "message passing with attention"))
	require.Len(t, got, 5)
	for i, s := range got {
		assert.Equal(t, i+1, s.Step)
		assert.NotEmpty(t, s.Title)
		assert.NotEmpty(t, s.Description)
	}
	assert.Contains(t, got[2].Description, "No public code")
}
