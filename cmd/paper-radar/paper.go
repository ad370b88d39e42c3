// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-radar/internal/logging"
	"github.com/pdiddy/paper-radar/internal/resolve"
	"github.com/pdiddy/paper-radar/pkg/types"
)

var paperCmd = &cobra.Command{
	Use:   "paper <id>",
	Short: "Show one paper and its analysis",
	Long: `Paper resolves an identifier and prints the record. Identifiers may be
prefixed ("ss-...", "pwc-..."), a local UUID, a 40-character Semantic Scholar
hash, or a "CorpusID:..." token; anything else is looked up on Semantic Scholar.

Records that have not been analyzed yet are enriched in the background. Pass
--wait to block until the analysis finishes and print it.`,
	Args: cobra.ExactArgs(1),
	RunE: runPaper,
}

func runPaper(cmd *cobra.Command, args []string) error {
	wait, _ := cmd.Flags().GetBool("wait")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	format, _ := cmd.Flags().GetString("format")

	out := cmd.OutOrStdout()
	format, err := resolveFormat(format, formatText, out)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), appConfig, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.resolver.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	detail := res.Detail

	pending := res.Job != nil
	if pending && wait {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		rep, err := res.Job.Wait(ctx)
		if err != nil {
			return fmt.Errorf("waiting for analysis: %w", err)
		}
		if rep.Paper.Metadata.Analyzed {
			detail = types.PaperDetail{Paper: rep.Paper, Analysis: resolve.Summarize(rep.Paper)}
			pending = false
		}
		if rep.Err != nil {
			logger.Warn("analysis finished with error", logging.PaperID(rep.PaperID), logging.Error(rep.Err))
		}
	}

	switch format {
	case formatJSON:
		return writeJSON(out, detail)
	case formatYAML:
		return writeYAML(out, detail)
	default:
		writeDetail(out, detail)
		if pending {
			fmt.Fprintln(out, "\nAnalysis pending; rerun with --wait to run it now.")
		}
		return nil
	}
}

func writeDetail(w io.Writer, d types.PaperDetail) {
	p := d.Paper
	md := p.Metadata

	fmt.Fprintln(w, p.Title)
	fmt.Fprintln(w, strings.Repeat("=", min(len([]rune(p.Title)), 80)))
	fmt.Fprintf(w, "ID:        %s\n", p.ID)
	fmt.Fprintf(w, "Source:    %s\n", md.Source)
	if len(md.Authors) > 0 {
		fmt.Fprintf(w, "Authors:   %s\n", strings.Join(md.Authors, ", "))
	}
	if md.Year > 0 {
		fmt.Fprintf(w, "Year:      %d\n", md.Year)
	}
	if md.Venue != "" {
		fmt.Fprintf(w, "Venue:     %s\n", md.Venue)
	}
	fmt.Fprintf(w, "Citations: %d\n", md.Citations)
	if p.PDFURL != "" {
		fmt.Fprintf(w, "PDF:       %s\n", p.PDFURL)
	}
	if p.HasCode() {
		fmt.Fprintf(w, "Code:      %s\n", p.CodeURLText())
	}
	fmt.Fprintf(w, "\n%s\n", d.Analysis)

	if p.HasAbstract() {
		fmt.Fprintf(w, "\nAbstract\n--------\n%s\n", strings.TrimSpace(p.AbstractText()))
	}
	if !md.Analyzed {
		return
	}

	if len(md.Insights) > 0 {
		fmt.Fprintln(w, "\nInsights")
		for _, in := range md.Insights {
			fmt.Fprintf(w, "  - [%s] %s: %s\n", in.Category, in.Title, in.Description)
		}
	}
	if len(md.Concepts) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.SetStyle(table.StyleRounded)
		tw.SetTitle("Key concepts")
		tw.AppendHeader(table.Row{"Concept", "Importance", "Explanation"})
		for _, c := range md.Concepts {
			tw.AppendRow(table.Row{c.Name, c.Importance, c.Explanation})
		}
		tw.SetColumnConfigs([]table.ColumnConfig{{Number: 3, WidthMax: 70}})
		fmt.Fprintln(w)
		tw.Render()
	}
	if diff := md.Difficulty; diff != nil {
		fmt.Fprintf(w, "\nDifficulty: %s (%d/10), about %s\n", diff.Level, diff.Score, diff.EstimatedTime)
		fmt.Fprintf(w, "  Skills:        %s\n", strings.Join(diff.TechnicalSkills, ", "))
		fmt.Fprintf(w, "  Prerequisites: %s\n", strings.Join(diff.Prerequisites, ", "))
	}
	for _, s := range md.CodeSnippets {
		fmt.Fprintf(w, "\n%s (%s)\n", s.Title, s.Language)
		if s.Description != "" {
			fmt.Fprintf(w, "  %s\n", s.Description)
		}
		for _, line := range strings.Split(s.Code, "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
	if len(md.ImplementationSteps) > 0 {
		fmt.Fprintln(w, "\nImplementation steps")
		for _, s := range md.ImplementationSteps {
			fmt.Fprintf(w, "  %d. %s: %s\n", s.Step, s.Title, s.Description)
		}
	}
}

func init() {
	paperCmd.Flags().Bool("wait", false, "wait for background analysis to finish")
	paperCmd.Flags().Duration("timeout", 10*time.Minute, "maximum time to wait with --wait")
	paperCmd.Flags().String("format", formatAuto, "output format: auto, text, json, yaml")

	rootCmd.AddCommand(paperCmd)
}
