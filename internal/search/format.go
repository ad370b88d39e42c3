// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"go.yaml.in/yaml/v3"
)

// FormatTable writes results as a human-readable table to w.
func FormatTable(resp Response, w io.Writer) {
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		writeSourceNotes(resp, w)
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Title", "Authors", "Year", "Cites", "Code", "ID"})
	for i, r := range resp.Results {
		year := ""
		if r.Metadata.Year > 0 {
			year = strconv.Itoa(r.Metadata.Year)
		}
		code := ""
		if r.HasCode() {
			code = "yes"
		}
		tw.AppendRow(table.Row{
			i + 1,
			truncate(r.Title, 60),
			formatAuthors(r.Metadata.Authors),
			year,
			r.Metadata.Citations,
			code,
			r.ID,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	tw.Render()

	fmt.Fprintf(w, "%d results", len(resp.Results))
	switch {
	case resp.Stale:
		fmt.Fprint(w, " (stale cache)")
	case resp.FromCache:
		fmt.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)
	writeSourceNotes(resp, w)
}

func writeSourceNotes(resp Response, w io.Writer) {
	for _, s := range resp.Sources {
		switch {
		case s.Skipped:
			fmt.Fprintf(w, "note: %s skipped while rate-limited\n", s.Name)
		case s.Err != "":
			fmt.Fprintf(w, "warning: source %s failed: %s\n", s.Name, s.Err)
		}
	}
}

// FormatJSON writes the response as indented JSON to w.
func FormatJSON(resp Response, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// FormatYAML writes the response as YAML to w.
func FormatYAML(resp Response, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(resp); err != nil {
		return err
	}
	return enc.Close()
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max-3]) + "..."
}
