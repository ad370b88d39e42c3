// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-radar/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search every enabled source for papers",
	Long: `Search queries Semantic Scholar, Papers with Code and the local store,
merges and deduplicates the results, and ranks them by completeness and
citations. Results are cached; when every provider is rate-limited an expired
cache entry is served instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	offset, _ := cmd.Flags().GetInt("offset")
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	out := cmd.OutOrStdout()
	format, err := resolveFormat(format, formatTable, out)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), appConfig, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.search.Search(cmd.Context(), search.Request{
		Query:  strings.Join(args, " "),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	switch format {
	case formatJSON:
		return search.FormatJSON(resp, out)
	case formatYAML:
		return search.FormatYAML(resp, out)
	default:
		search.FormatTable(resp, out)
		return nil
	}
}

func init() {
	searchCmd.Flags().Int("offset", 0, "number of results to skip")
	searchCmd.Flags().Int("limit", 0, "maximum number of results (default from config)")
	searchCmd.Flags().String("format", formatAuto, "output format: auto, table, json, yaml")

	rootCmd.AddCommand(searchCmd)
}
