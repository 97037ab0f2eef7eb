// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf2txt/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded conversion runs",
	Long: `History lists past conversion runs from the SQLite database at
history.db_path, newest first. Only metadata is recorded: file names,
statuses, page counts, and text sizes. Use --yaml or --json to export,
and --prune to delete runs older than a duration (e.g. 720h).`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().Bool("yaml", false, "print runs as YAML")
	historyCmd.Flags().Bool("json", false, "print runs as JSON")
	historyCmd.Flags().Duration("prune", 0, "delete runs older than this duration before listing")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.History.DBPath == "" {
		return fmt.Errorf("history is disabled: set history.db_path or --history-db")
	}
	limit, _ := cmd.Flags().GetInt("limit")
	asYAML, _ := cmd.Flags().GetBool("yaml")
	asJSON, _ := cmd.Flags().GetBool("json")
	prune, _ := cmd.Flags().GetDuration("prune")
	if asYAML && asJSON {
		return fmt.Errorf("--yaml and --json are mutually exclusive")
	}

	store, err := history.Open(cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if prune > 0 {
		n, err := store.Prune(ctx, time.Now().Add(-prune))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "pruned %d run(s)\n", n)
	}

	runs, err := store.List(ctx, limit)
	if err != nil {
		return err
	}

	switch {
	case asYAML:
		return history.ExportYAML(out, runs)
	case asJSON:
		return history.ExportJSON(out, runs)
	default:
		history.WriteTable(out, runs)
		return nil
	}
}
