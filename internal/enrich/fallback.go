// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// domain is one entry of the keyword table that drives the fallback
// generators. weight is added to the base difficulty score when the domain
// matches.
type domain struct {
	name          string
	keywords      []string
	concepts      []types.Concept
	skills        []string
	prerequisites []string
	weight        int
}

var domains = []domain{
	{
		name:     "transformers",
		keywords: []string{"transformer", "self-attention", "attention mechanism", "bert", "gpt", "large language model", "llm"},
		concepts: []types.Concept{
			{Name: "Self-Attention", Explanation: "Each token computes a weighted sum over every other token, with weights learned from query and key similarity.", Importance: "high"},
			{Name: "Positional Encoding", Explanation: "Attention is order-agnostic, so position information is added to token embeddings explicitly.", Importance: "medium"},
		},
		skills:        []string{"PyTorch or JAX", "Sequence modeling"},
		prerequisites: []string{"Linear algebra", "Neural network training"},
		weight:        3,
	},
	{
		name:     "reinforcement learning",
		keywords: []string{"reinforcement learning", "policy gradient", "q-learning", "reward", "markov decision"},
		concepts: []types.Concept{
			{Name: "Markov Decision Process", Explanation: "The formal model of an agent choosing actions in states to maximize cumulative reward.", Importance: "high"},
			{Name: "Policy", Explanation: "The mapping from states to actions that the agent learns.", Importance: "high"},
		},
		skills:        []string{"Environment simulation", "Probability and statistics"},
		prerequisites: []string{"Dynamic programming", "Stochastic optimization"},
		weight:        4,
	},
	{
		name:     "generative adversarial networks",
		keywords: []string{"generative adversarial", "gan", "discriminator"},
		concepts: []types.Concept{
			{Name: "Adversarial Training", Explanation: "A generator and a discriminator are trained against each other until generated samples become indistinguishable from real ones.", Importance: "high"},
		},
		skills:        []string{"PyTorch or TensorFlow", "Training stability tuning"},
		prerequisites: []string{"Convolutional networks", "Game-theoretic optimization basics"},
		weight:        3,
	},
	{
		name:     "graph neural networks",
		keywords: []string{"graph neural", "gnn", "message passing", "graph convolution", "node embedding"},
		concepts: []types.Concept{
			{Name: "Message Passing", Explanation: "Nodes repeatedly aggregate feature vectors from their neighbours to build structure-aware representations.", Importance: "high"},
		},
		skills:        []string{"Graph data processing", "PyTorch Geometric or DGL"},
		prerequisites: []string{"Graph theory", "Neural network training"},
		weight:        3,
	},
	{
		name:     "diffusion models",
		keywords: []string{"diffusion", "denoising", "score-based", "score matching"},
		concepts: []types.Concept{
			{Name: "Denoising Diffusion", Explanation: "Data is gradually corrupted with noise and a network learns to reverse each step to generate new samples.", Importance: "high"},
		},
		skills:        []string{"PyTorch", "Probabilistic modeling"},
		prerequisites: []string{"Variational inference", "Stochastic differential equations"},
		weight:        4,
	},
	{
		name:     "convolutional networks",
		keywords: []string{"convolutional", "cnn", "resnet", "image classification", "object detection"},
		concepts: []types.Concept{
			{Name: "Convolution", Explanation: "A small learned filter slides over the input to detect local patterns with shared weights.", Importance: "high"},
		},
		skills:        []string{"Computer vision tooling", "GPU training"},
		prerequisites: []string{"Linear algebra", "Backpropagation"},
		weight:        2,
	},
	{
		name:     "recurrent networks",
		keywords: []string{"recurrent", "lstm", "gru", "rnn"},
		concepts: []types.Concept{
			{Name: "Recurrent State", Explanation: "A hidden state carried between time steps lets the network model sequences of arbitrary length.", Importance: "medium"},
		},
		skills:        []string{"Sequence modeling"},
		prerequisites: []string{"Backpropagation through time"},
		weight:        2,
	},
	{
		name:     "optimization theory",
		keywords: []string{"convergence", "theorem", "convex", "regret bound", "proof"},
		concepts: []types.Concept{
			{Name: "Convergence Analysis", Explanation: "Mathematical guarantees on how fast and under which conditions an algorithm approaches its optimum.", Importance: "medium"},
		},
		skills:        []string{"Mathematical proofs"},
		prerequisites: []string{"Real analysis", "Convex optimization"},
		weight:        4,
	},
}

var (
	defaultSkills        = []string{"Python", "Machine learning fundamentals"}
	defaultPrerequisites = []string{"Linear algebra", "Probability"}
)

var stopWords = map[string]bool{
	"about": true, "after": true, "based": true, "between": true, "from": true,
	"into": true, "learning": true, "model": true, "models": true, "towards": true,
	"that": true, "their": true, "through": true, "using": true, "with": true,
	"without": true, "via": true, "what": true, "when": true, "your": true,
}

// matchDomains returns the table entries whose keywords occur in the paper's
// title or abstract.
func matchDomains(p types.ResearchResult) []domain {
	text := strings.ToLower(p.Title + " " + p.AbstractText())
	var out []domain
	for _, d := range domains {
		for _, kw := range d.keywords {
			if containsWord(text, kw) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// containsWord matches kw on word boundaries so "gan" does not hit "organ".
func containsWord(text, kw string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], kw)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(kw)
		if boundary(text, start-1) && boundary(text, end) {
			return true
		}
		i = start + 1
	}
}

func boundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	r := rune(text[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// FallbackInsights derives insights from citation count, repository metadata,
// the abstract's first sentence and matched domains.
func FallbackInsights(p types.ResearchResult) []types.Insight {
	var out []types.Insight

	c := p.Metadata.Citations
	switch {
	case c >= 1000:
		out = append(out, types.Insight{Title: "Highly influential work", Description: fmt.Sprintf("Cited %d times, this paper is a reference point in its field.", c), Category: "impact"})
	case c >= 100:
		out = append(out, types.Insight{Title: "Well-cited work", Description: fmt.Sprintf("Cited %d times, the paper has had measurable uptake.", c), Category: "impact"})
	case c > 0:
		out = append(out, types.Insight{Title: "Emerging work", Description: fmt.Sprintf("Cited %d times so far.", c), Category: "impact"})
	default:
		out = append(out, types.Insight{Title: "New or niche work", Description: "No citations are recorded yet.", Category: "impact"})
	}

	if s := firstSentence(p.AbstractText()); s != "" {
		out = append(out, types.Insight{Title: "Core contribution", Description: s, Category: "contribution"})
	}

	repo := p.Metadata.CodeRepository
	switch {
	case repo != nil && repo.Official:
		out = append(out, types.Insight{Title: "Official implementation available", Description: fmt.Sprintf("The authors publish code at %s (%d stars).", repo.URL, repo.Stars), Category: "practical"})
	case p.HasCode():
		out = append(out, types.Insight{Title: "Implementation available", Description: "A public implementation is linked: " + p.CodeURLText(), Category: "practical"})
	default:
		out = append(out, types.Insight{Title: "No public code", Description: "Reproducing the results requires implementing the method from the paper.", Category: "practical"})
	}

	for _, d := range matchDomains(p) {
		out = append(out, types.Insight{Title: "Related area: " + d.name, Description: fmt.Sprintf("The paper builds on %s.", d.name), Category: "methodology"})
	}
	return out
}

// FallbackConcepts returns the concepts of matched domains, or concepts named
// after significant title words. It always returns at least one concept.
func FallbackConcepts(p types.ResearchResult) []types.Concept {
	seen := make(map[string]bool)
	var out []types.Concept
	for _, d := range matchDomains(p) {
		for _, c := range d.concepts {
			if !seen[c.Name] {
				seen[c.Name] = true
				out = append(out, c)
			}
		}
	}
	if len(out) > 0 {
		return out
	}

	caser := cases.Title(language.Und)
	for _, w := range significantWords(p.Title, 3) {
		out = append(out, types.Concept{
			Name:        caser.String(w),
			Explanation: fmt.Sprintf("A central term in %q; the paper's abstract and method section define how it is used.", strings.TrimSpace(p.Title)),
			Importance:  "medium",
		})
	}
	if len(out) == 0 {
		out = append(out, types.Concept{
			Name:        "Research Contribution",
			Explanation: "The main idea the paper proposes and evaluates.",
			Importance:  "medium",
		})
	}
	return out
}

// FallbackDifficulty grades a paper from the keyword table. The level is
// always valid and TechnicalSkills is never empty.
func FallbackDifficulty(p types.ResearchResult) types.DifficultyAssessment {
	matched := matchDomains(p)
	score := 3
	var skills, prereqs []string
	for _, d := range matched {
		score += d.weight
		skills = appendUnique(skills, d.skills...)
		prereqs = appendUnique(prereqs, d.prerequisites...)
	}
	if len(matched) > 1 {
		score -= len(matched) - 1
	}
	score = clamp(score, 1, 10)
	if len(skills) == 0 {
		skills = append(skills, defaultSkills...)
	}
	if len(prereqs) == 0 {
		prereqs = append(prereqs, defaultPrerequisites...)
	}

	level := levelForScore(score)
	return types.DifficultyAssessment{
		Level:           level,
		Score:           score,
		TechnicalSkills: skills,
		Prerequisites:   prereqs,
		EstimatedTime:   estimatedTime(level),
	}
}

// FallbackCodeSnippets points at the linked repository when there is one and
// otherwise sketches a starting skeleton.
func FallbackCodeSnippets(p types.ResearchResult) []types.CodeSnippet {
	var out []types.CodeSnippet
	if p.HasCode() {
		out = append(out, types.CodeSnippet{
			Title:       "Clone the reference implementation",
			Language:    "bash",
			Description: "Fetch the linked repository to start from working code.",
			Code:        "git clone " + p.CodeURLText(),
		})
	}
	if repo := p.Metadata.CodeRepository; repo != nil {
		if pkg := frameworkPackage(repo.Framework); pkg != "" {
			out = append(out, types.CodeSnippet{
				Title:       "Install the framework",
				Language:    "bash",
				Description: "The reference implementation uses " + repo.Framework + ".",
				Code:        "pip install " + pkg,
			})
		}
	}
	if len(out) == 0 {
		name := "Model"
		if ws := significantWords(p.Title, 1); len(ws) > 0 {
			name = cases.Title(language.Und).String(ws[0]) + "Model"
		}
		out = append(out, types.CodeSnippet{
			Title:       "Model skeleton",
			Language:    "python",
			Description: "A starting point for implementing the method described in the paper.",
			Code: fmt.Sprintf(`import torch.nn as nn


class %s(nn.Module):
    def __init__(self):
        super().__init__()
        # layers described in the method section

    def forward(self, x):
        raise NotImplementedError`, identifier(name)),
		})
	}
	return out
}

// FallbackImplementationSteps returns a generic reproduction plan tailored
// with the paper's repository and matched concepts.
func FallbackImplementationSteps(p types.ResearchResult) []types.ImplementationStep {
	code := "No public code is linked; plan to implement the method from the paper's description."
	if p.HasCode() {
		code = "Clone " + p.CodeURLText() + " and run its examples before changing anything."
	}

	var names []string
	for _, c := range FallbackConcepts(p) {
		names = append(names, c.Name)
	}

	skills := FallbackDifficulty(p).TechnicalSkills
	steps := []types.ImplementationStep{
		{Title: "Read the paper", Description: fmt.Sprintf("Study %q, focusing on the method and experiment sections.", strings.TrimSpace(p.Title))},
		{Title: "Set up the environment", Description: "Prepare a workspace with " + strings.Join(skills, ", ") + "."},
		{Title: "Obtain reference code", Description: code},
		{Title: "Implement the core components", Description: "Build and unit-test " + strings.Join(names, ", ") + "."},
		{Title: "Reproduce the main results", Description: "Train or run the method on the paper's datasets and compare against the reported numbers."},
	}
	for i := range steps {
		steps[i].Step = i + 1
	}
	return steps
}

func levelForScore(score int) types.DifficultyLevel {
	switch {
	case score <= 3:
		return types.LevelBeginner
	case score <= 5:
		return types.LevelIntermediate
	case score <= 7:
		return types.LevelAdvanced
	default:
		return types.LevelExpert
	}
}

func estimatedTime(level types.DifficultyLevel) string {
	switch level {
	case types.LevelBeginner:
		return "1-2 days"
	case types.LevelIntermediate:
		return "3-5 days"
	case types.LevelAdvanced:
		return "1-2 weeks"
	default:
		return "2-4 weeks"
	}
}

func frameworkPackage(framework string) string {
	switch strings.ToLower(framework) {
	case "pytorch", "torch":
		return "torch"
	case "tf", "tensorflow":
		return "tensorflow"
	case "jax":
		return "jax"
	case "mxnet":
		return "mxnet"
	}
	return ""
}

// significantWords returns up to n distinct lowercase title words that are
// long enough and not stop words.
func significantWords(title string, n int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}) {
		w = strings.Trim(w, "-")
		if len(w) < 4 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == n {
			break
		}
	}
	return out
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}

func identifier(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		dup := false
		for _, d := range dst {
			if d == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
