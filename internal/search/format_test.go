// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/pkg/types"
)

func sampleResponse() Response {
	r := complete("ss-abc", types.SourceSemanticScholar)
	r.Title = "A Very Long Title That Keeps Going Well Past The Sixty Character Column Limit Of The Table"
	return Response{
		Query:   "attention",
		Results: []types.ResearchResult{r},
		Sources: []SourceReport{
			{Name: types.SourceSemanticScholar, Count: 1},
			{Name: types.SourcePapersWithCode, Err: "HTTP 500"},
		},
	}
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(sampleResponse(), &buf)
	out := buf.String()

	assert.Contains(t, out, "ss-abc")
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "1 results")
	assert.Contains(t, out, "warning: source papers_with_code failed: HTTP 500")
}

func TestFormatTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(Response{}, &buf)
	assert.True(t, strings.HasPrefix(buf.String(), "No results found."))
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(sampleResponse(), &buf))

	var decoded Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Results, 1)
	assert.Equal(t, "ss-abc", decoded.Results[0].ID)
}

func TestFormatYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatYAML(sampleResponse(), &buf))
	assert.Contains(t, buf.String(), "id: ss-abc")
	assert.Contains(t, buf.String(), "query: attention")
}

func TestFormatAuthors(t *testing.T) {
	assert.Equal(t, "", formatAuthors(nil))
	assert.Equal(t, "Ann Lee", formatAuthors([]string{"Ann Lee"}))
	assert.Equal(t, "Ann Lee et al.", formatAuthors([]string{"Ann Lee", "Bo Chen"}))
}
