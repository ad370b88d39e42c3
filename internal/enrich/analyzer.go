// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich attaches AI-derived analysis to paper records. Every analysis
// operation returns a usable value: when the completion endpoint is missing,
// failing or returns something unusable, a deterministic generator derives
// the result from the record's own fields.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/pdiddy/paper-radar/internal/ai"
	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/internal/logging"
	"github.com/pdiddy/paper-radar/internal/queue"
	"github.com/pdiddy/paper-radar/internal/ttlcache"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// QueueTag labels analysis requests on the shared request queue.
const QueueTag = "analysis"

// DefaultAnalysisTTL applies when AnalyzerConfig.CacheTTL is zero.
const DefaultAnalysisTTL = time.Hour

var errNoValidItems = errors.New("no valid items")

// AnalyzerConfig wires an Analyzer. Completer may be nil, in which case every
// operation returns its fallback.
type AnalyzerConfig struct {
	Completer ai.Completer
	Queue     *queue.Queue
	Policy    httputil.Policy
	CacheTTL  time.Duration
	Logger    *slog.Logger
}

// Analyzer runs the five analysis operations. Insights, concepts and
// difficulty assessments are cached per paper ID.
type Analyzer struct {
	completer ai.Completer
	queue     *queue.Queue
	policy    httputil.Policy
	logger    *slog.Logger

	insights   *ttlcache.Cache[[]types.Insight]
	concepts   *ttlcache.Cache[[]types.Concept]
	difficulty *ttlcache.Cache[types.DifficultyAssessment]
}

// NewAnalyzer creates an Analyzer from cfg.
func NewAnalyzer(cfg AnalyzerConfig) *Analyzer {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultAnalysisTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Analyzer{
		completer:  cfg.Completer,
		queue:      cfg.Queue,
		policy:     cfg.Policy,
		logger:     logging.NewComponentLogger(logger, "analyzer"),
		insights:   ttlcache.New[[]types.Insight](ttl),
		concepts:   ttlcache.New[[]types.Concept](ttl),
		difficulty: ttlcache.New[types.DifficultyAssessment](ttl),
	}
}

// GenerateInsights returns observations about the paper's contribution and
// impact.
func (a *Analyzer) GenerateInsights(ctx context.Context, p types.ResearchResult) []types.Insight {
	v, _ := a.generateInsights(ctx, p)
	return v
}

// ExplainKeyConcepts returns at least one concept for any paper.
func (a *Analyzer) ExplainKeyConcepts(ctx context.Context, p types.ResearchResult) []types.Concept {
	v, _ := a.explainKeyConcepts(ctx, p)
	return v
}

// AssessTechnicalDifficulty grades the paper. The level is always valid and
// TechnicalSkills is never empty.
func (a *Analyzer) AssessTechnicalDifficulty(ctx context.Context, p types.ResearchResult) types.DifficultyAssessment {
	v, _ := a.assessTechnicalDifficulty(ctx, p)
	return v
}

// GenerateCodeSnippets returns code references for starting an implementation.
func (a *Analyzer) GenerateCodeSnippets(ctx context.Context, p types.ResearchResult) []types.CodeSnippet {
	v, _ := a.generateCodeSnippets(ctx, p)
	return v
}

// GenerateImplementationSteps returns an ordered reproduction plan.
func (a *Analyzer) GenerateImplementationSteps(ctx context.Context, p types.ResearchResult) []types.ImplementationStep {
	v, _ := a.generateImplementationSteps(ctx, p)
	return v
}

// The lowercase variants also report whether the fallback was used.

func (a *Analyzer) generateInsights(ctx context.Context, p types.ResearchResult) ([]types.Insight, bool) {
	return cached(a.insights, p.ID, func() ([]types.Insight, bool) {
		return analyze(ctx, a, TaskInsights, insightsPromptTmpl, p, decodeInsights, FallbackInsights)
	})
}

func (a *Analyzer) explainKeyConcepts(ctx context.Context, p types.ResearchResult) ([]types.Concept, bool) {
	return cached(a.concepts, p.ID, func() ([]types.Concept, bool) {
		return analyze(ctx, a, TaskConcepts, conceptsPromptTmpl, p, decodeConcepts, FallbackConcepts)
	})
}

func (a *Analyzer) assessTechnicalDifficulty(ctx context.Context, p types.ResearchResult) (types.DifficultyAssessment, bool) {
	return cached(a.difficulty, p.ID, func() (types.DifficultyAssessment, bool) {
		return analyze(ctx, a, TaskDifficulty, difficultyPromptTmpl, p, decodeDifficulty(p), FallbackDifficulty)
	})
}

func (a *Analyzer) generateCodeSnippets(ctx context.Context, p types.ResearchResult) ([]types.CodeSnippet, bool) {
	return analyze(ctx, a, TaskCodeSnippets, snippetsPromptTmpl, p, decodeSnippets, FallbackCodeSnippets)
}

func (a *Analyzer) generateImplementationSteps(ctx context.Context, p types.ResearchResult) ([]types.ImplementationStep, bool) {
	return analyze(ctx, a, TaskImplementationSteps, stepsPromptTmpl, p, decodeSteps, FallbackImplementationSteps)
}

// cached consults c before calling fn. Only AI-derived values are stored so a
// later call can still improve on a fallback. An empty key bypasses the cache.
func cached[T any](c *ttlcache.Cache[T], key string, fn func() (T, bool)) (T, bool) {
	if key != "" {
		if v, ok := c.Get(key); ok {
			return v, false
		}
	}
	v, fellBack := fn()
	if key != "" && !fellBack {
		c.Set(key, v)
	}
	return v, fellBack
}

// analyze asks the model, parses and validates the reply, and substitutes
// fallback(p) on any failure. The boolean reports whether it did.
func analyze[T any](
	ctx context.Context,
	a *Analyzer,
	task TaskType,
	tmpl *template.Template,
	p types.ResearchResult,
	decode func(ai.Result[json.RawMessage]) (T, error),
	fallback func(types.ResearchResult) T,
) (T, bool) {
	raw, err := a.ask(ctx, tmpl, p)
	if err == nil {
		var v T
		v, err = decode(ai.Parse[json.RawMessage](raw))
		if err == nil {
			return v, false
		}
	}

	level := slog.LevelWarn
	if errors.Is(err, ai.ErrConfigMissing) {
		level = slog.LevelDebug
	}
	a.logger.Log(ctx, level, "analysis task fell back",
		logging.Args(logging.Task(string(task)), logging.PaperID(p.ID), logging.Error(err))...)
	return fallback(p), true
}

func (a *Analyzer) ask(ctx context.Context, tmpl *template.Template, p types.ResearchResult) (string, error) {
	if err := ai.CheckConfig(a.completer); err != nil {
		return "", err
	}
	prompt, err := renderPrompt(tmpl, p)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return httputil.Through(ctx, a.queue, queue.Normal, QueueTag, a.policy, func(ctx context.Context) (string, error) {
		return a.completer.Complete(ctx, systemPrompt, prompt)
	})
}

// Decoders. Each validates field presence and type per item and discards
// invalid items; a reply with no valid item is an error.

func decodeInsights(res ai.Result[json.RawMessage]) ([]types.Insight, error) {
	var out []types.Insight
	switch res.Kind {
	case ai.Structured:
		for _, m := range items(res.Value, "insights") {
			title, ok1 := str(m, "title")
			desc, ok2 := str(m, "description")
			if !ok1 || !ok2 {
				continue
			}
			cat, ok := str(m, "category")
			if !ok {
				cat = "general"
			}
			out = append(out, types.Insight{Title: title, Description: desc, Category: strings.ToLower(cat)})
		}
	case ai.Heuristic:
		for _, line := range res.Lines {
			title, desc := splitLabel(line)
			if title == "" {
				title = "Insight"
			}
			out = append(out, types.Insight{Title: title, Description: desc, Category: "general"})
		}
	default:
		return nil, res.Err
	}
	return nonEmpty(out)
}

func decodeConcepts(res ai.Result[json.RawMessage]) ([]types.Concept, error) {
	var out []types.Concept
	switch res.Kind {
	case ai.Structured:
		for _, m := range items(res.Value, "concepts") {
			name, ok1 := str(m, "name")
			expl, ok2 := str(m, "explanation")
			if !ok1 || !ok2 {
				continue
			}
			out = append(out, types.Concept{Name: name, Explanation: expl, Importance: importance(m)})
		}
	case ai.Heuristic:
		// Only "Name: explanation" lines carry enough structure.
		for _, line := range res.Lines {
			if name, expl := splitLabel(line); name != "" {
				out = append(out, types.Concept{Name: name, Explanation: expl, Importance: "medium"})
			}
		}
	default:
		return nil, res.Err
	}
	return nonEmpty(out)
}

// decodeDifficulty fills missing skills and prerequisites from the keyword
// table so the result always satisfies the assessment's invariants.
func decodeDifficulty(p types.ResearchResult) func(ai.Result[json.RawMessage]) (types.DifficultyAssessment, error) {
	return func(res ai.Result[json.RawMessage]) (types.DifficultyAssessment, error) {
		if res.Kind != ai.Structured {
			if res.Err != nil {
				return types.DifficultyAssessment{}, res.Err
			}
			return types.DifficultyAssessment{}, errors.New("difficulty reply is not JSON")
		}
		var m map[string]any
		if err := json.Unmarshal(res.Value, &m); err != nil {
			return types.DifficultyAssessment{}, fmt.Errorf("difficulty reply is not an object: %w", err)
		}
		lvl, _ := str(m, "level")
		level := types.DifficultyLevel(strings.ToLower(lvl))
		if !level.Valid() {
			return types.DifficultyAssessment{}, fmt.Errorf("invalid difficulty level %q", lvl)
		}

		fb := FallbackDifficulty(p)
		d := types.DifficultyAssessment{
			Level:           level,
			TechnicalSkills: strList(m, "technical_skills"),
			Prerequisites:   strList(m, "prerequisites"),
		}
		if score, ok := num(m, "score"); ok && score >= 1 && score <= 10 {
			d.Score = score
		} else {
			d.Score = representativeScore(level)
		}
		if len(d.TechnicalSkills) == 0 {
			d.TechnicalSkills = fb.TechnicalSkills
		}
		if len(d.Prerequisites) == 0 {
			d.Prerequisites = fb.Prerequisites
		}
		if d.EstimatedTime, _ = str(m, "estimated_time"); d.EstimatedTime == "" {
			d.EstimatedTime = estimatedTime(level)
		}
		return d, nil
	}
}

func decodeSnippets(res ai.Result[json.RawMessage]) ([]types.CodeSnippet, error) {
	if res.Kind != ai.Structured {
		return nil, errors.Join(errors.New("code snippets reply is not JSON"), res.Err)
	}
	var out []types.CodeSnippet
	for _, m := range items(res.Value, "snippets", "code_snippets") {
		title, ok1 := str(m, "title")
		code, ok2 := str(m, "code")
		if !ok1 || !ok2 {
			continue
		}
		lang, ok := str(m, "language")
		if !ok {
			lang = "text"
		}
		desc, _ := str(m, "description")
		out = append(out, types.CodeSnippet{Title: title, Language: strings.ToLower(lang), Description: desc, Code: code})
	}
	return nonEmpty(out)
}

func decodeSteps(res ai.Result[json.RawMessage]) ([]types.ImplementationStep, error) {
	var out []types.ImplementationStep
	switch res.Kind {
	case ai.Structured:
		for _, m := range items(res.Value, "steps", "implementation_steps") {
			title, ok1 := str(m, "title")
			desc, ok2 := str(m, "description")
			if !ok1 || !ok2 {
				continue
			}
			out = append(out, types.ImplementationStep{Title: title, Description: desc})
		}
	case ai.Heuristic:
		for _, line := range res.Lines {
			title, desc := splitLabel(line)
			if title == "" {
				title = desc
			}
			out = append(out, types.ImplementationStep{Title: title, Description: desc})
		}
	default:
		return nil, res.Err
	}
	// Renumber; model-supplied step numbers are not trusted to be contiguous.
	for i := range out {
		out[i].Step = i + 1
	}
	return nonEmpty(out)
}

// items accepts a JSON array of objects, an object wrapping one under any
// of keys, or a single bare item object. Non-object elements are dropped.
func items(raw json.RawMessage, keys ...string) []map[string]any {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}
		wrapped := false
		for _, k := range keys {
			if v, ok := obj[k]; ok {
				_ = json.Unmarshal(v, &arr)
				wrapped = true
				break
			}
		}
		if !wrapped {
			arr = []json.RawMessage{raw}
		}
	}
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		var m map[string]any
		if err := json.Unmarshal(el, &m); err == nil && m != nil {
			out = append(out, m)
		}
	}
	return out
}

func str(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

func num(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case float64:
		return int(v), true
	case json.Number:
		f, err := v.Float64()
		return int(f), err == nil
	}
	return 0, false
}

func strList(m map[string]any, key string) []string {
	vals, _ := m[key].([]any)
	var out []string
	for _, v := range vals {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func importance(m map[string]any) string {
	v, _ := str(m, "importance")
	switch v = strings.ToLower(v); v {
	case "high", "medium", "low":
		return v
	}
	return "medium"
}

func representativeScore(level types.DifficultyLevel) int {
	switch level {
	case types.LevelBeginner:
		return 2
	case types.LevelIntermediate:
		return 5
	case types.LevelAdvanced:
		return 7
	default:
		return 9
	}
}

// splitLabel splits "Label: text" into its parts. Lines without a short
// label return an empty label and the whole line.
func splitLabel(line string) (string, string) {
	label, rest, ok := strings.Cut(line, ":")
	label, rest = strings.TrimSpace(label), strings.TrimSpace(rest)
	if !ok || label == "" || rest == "" || len(label) > 80 {
		return "", line
	}
	return label, rest
}

func nonEmpty[T any](out []T) ([]T, error) {
	if len(out) == 0 {
		return nil, errNoValidItems
	}
	return out, nil
}
