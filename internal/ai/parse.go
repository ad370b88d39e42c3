// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Kind tells callers which branch of a Result holds data.
type Kind int

const (
	// Failed means nothing usable was recovered; Err says why.
	Failed Kind = iota

	// Structured means Value holds the decoded JSON payload.
	Structured

	// Heuristic means no JSON decoded, but Lines holds a line-based split.
	Heuristic
)

func (k Kind) String() string {
	switch k {
	case Structured:
		return "structured"
	case Heuristic:
		return "heuristic"
	default:
		return "failed"
	}
}

// Result is the outcome of parsing a model reply into T.
type Result[T any] struct {
	Kind  Kind
	Value T
	Lines []string
	Err   error
}

// minHeuristicLine drops fragments too short to be a useful item.
const minHeuristicLine = 12

var (
	fenceRe    = regexp.MustCompile("(?m)^\\s*```[a-zA-Z0-9_-]*\\s*$")
	jsonLitRe  = regexp.MustCompile(`(?s)\[.*\]|\{.*\}`)
	bulletRe   = regexp.MustCompile(`^\s*(?:[-*•+]|\d+[.)]|[a-zA-Z][.)])\s+`)
	onlyPunct  = regexp.MustCompile(`^[\s\[\]{}(),:;"'` + "`" + `]*$`)
	errNoJSON  = errors.New("no JSON literal found")
	errNoLines = errors.New("no usable lines")
)

// Sanitize removes control characters other than newline and tab, and drops
// markdown code-fence lines.
func Sanitize(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	cleaned = fenceRe.ReplaceAllString(cleaned, "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

// ExtractJSON returns the first JSON array or object literal in s. It tries a
// greedy bracket match first and then scans candidate start positions with a
// streaming decoder, which tolerates trailing prose after the literal.
func ExtractJSON(s string) (json.RawMessage, error) {
	if m := jsonLitRe.FindString(s); m != "" && json.Valid([]byte(m)) {
		return json.RawMessage(m), nil
	}
	for i, r := range s {
		if r != '{' && r != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			return raw, nil
		}
	}
	return nil, errNoJSON
}

// Parse runs the reply-parsing pipeline: sanitize, extract the first JSON
// literal and decode it into T; failing that, split the text into cleaned
// lines; failing that, report Failed.
func Parse[T any](raw string) Result[T] {
	clean := Sanitize(raw)
	if clean == "" {
		return Result[T]{Kind: Failed, Err: errors.New("empty reply")}
	}

	var decodeErr error
	if lit, err := ExtractJSON(clean); err == nil {
		var v T
		dec := json.NewDecoder(bytes.NewReader(lit))
		dec.UseNumber()
		err := dec.Decode(&v)
		if err == nil {
			return Result[T]{Kind: Structured, Value: v}
		}
		decodeErr = fmt.Errorf("decode JSON: %w", err)
	} else {
		decodeErr = err
	}

	if lines := HeuristicLines(clean); len(lines) > 0 {
		return Result[T]{Kind: Heuristic, Lines: lines}
	}
	return Result[T]{Kind: Failed, Err: errors.Join(decodeErr, errNoLines)}
}

// HeuristicLines splits text into trimmed lines with list markers removed,
// dropping short fragments and lines that are only JSON punctuation.
func HeuristicLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = bulletRe.ReplaceAllString(line, "")
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*_#"))
		if len([]rune(line)) < minHeuristicLine || onlyPunct.MatchString(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}
