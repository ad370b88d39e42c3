// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// systemPrompt is sent with every analysis request.
const systemPrompt = `You are a research assistant that analyzes machine learning and computer science papers. Answer only with the JSON requested, without commentary or markdown.`

// paperBlock is shared by every task prompt.
const paperBlock = `{{define "paper"}}Title: {{.Title}}
{{- if .Authors}}
Authors: {{.Authors}}{{end}}
{{- if .Year}}
Year: {{.Year}}{{end}}
{{- if .Venue}}
Venue: {{.Venue}}{{end}}
Citations: {{.Citations}}
{{- if .Repository}}
Code: {{.Repository}}{{end}}
Abstract: {{if .Abstract}}{{.Abstract}}{{else}}(not available){{end}}{{end}}`

var (
	insightsPromptTmpl = newPrompt("insights", `Identify 3 to 5 insights about the paper below: its contribution, its likely impact, and its practical relevance.

Respond with a JSON array. Each element must have:
- title: a short headline
- description: one or two sentences
- category: one of "contribution", "impact", "methodology", "practical"

Example:
[{"title": "Removes recurrence", "description": "The model relies entirely on attention, which allows full parallelism during training.", "category": "contribution"}]

{{template "paper" .}}
`)

	conceptsPromptTmpl = newPrompt("concepts", `List the key concepts a reader must understand to follow the paper below.

Respond with a JSON array. Each element must have:
- name: the concept name
- explanation: a plain-language explanation in one or two sentences
- importance: one of "high", "medium", "low"

{{template "paper" .}}
`)

	difficultyPromptTmpl = newPrompt("difficulty", `Assess how hard it is to understand and implement the paper below.

Respond with a JSON object with:
- level: one of "beginner", "intermediate", "advanced", "expert"
- score: an integer from 1 to 10
- technical_skills: a list of skills needed
- prerequisites: a list of topics to know beforehand
- estimated_time: how long a competent engineer needs to reproduce it (e.g. "1-2 weeks")

{{template "paper" .}}
`)

	snippetsPromptTmpl = newPrompt("code_snippets", `Suggest short code snippets that help someone start implementing the paper below.

Respond with a JSON array of 1 to 3 elements. Each element must have:
- title: what the snippet shows
- language: the programming language
- description: one sentence
- code: the code itself, at most 30 lines

{{template "paper" .}}
`)

	stepsPromptTmpl = newPrompt("implementation_steps", `Write an ordered plan for reproducing the paper below.

Respond with a JSON array of 4 to 8 elements. Each element must have:
- step: the step number starting at 1
- title: a short imperative title
- description: what to do in one or two sentences

{{template "paper" .}}
`)
)

func newPrompt(name, body string) *template.Template {
	return template.Must(template.Must(template.New(name).Parse(paperBlock)).Parse(body))
}

// promptData is the view of a paper exposed to prompt templates.
type promptData struct {
	Title      string
	Authors    string
	Year       int
	Venue      string
	Citations  int
	Repository string
	Abstract   string
}

func renderPrompt(tmpl *template.Template, p types.ResearchResult) (string, error) {
	data := promptData{
		Title:      p.Title,
		Authors:    strings.Join(p.Metadata.Authors, ", "),
		Year:       p.Metadata.Year,
		Venue:      p.Metadata.Venue,
		Citations:  p.Metadata.Citations,
		Repository: p.CodeURLText(),
		Abstract:   strings.TrimSpace(p.AbstractText()),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
