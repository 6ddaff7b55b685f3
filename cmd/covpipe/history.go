package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/anujt65/covpipe/internal/config"
	"github.com/anujt65/covpipe/internal/history"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded pipeline runs",
		RunE:  runHistory,
	}
	cmd.Flags().Int("limit", 20, "maximum number of runs to show")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("parse --limit: %w", err)
	}

	path := filepath.Join(root, config.DefaultHistoryPath)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(cmd.OutOrStdout(), "No recorded runs")
			return nil
		}
		return fmt.Errorf("stat history database: %w", err)
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recorded runs")
		return nil
	}

	for _, run := range runs {
		coverage := "-"
		if run.CoveragePercent != nil {
			coverage = fmt.Sprintf("%.1f%%", *run.CoveragePercent)
		}
		outcome := "ok"
		if run.ExitCode != 0 {
			outcome = "failed"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-8s %-6s %d passed, %d failed, %d masked, %d skipped  coverage %s\n",
			shortID(run.ID),
			run.FinishedAt.Local().Format(time.DateTime),
			run.Branch,
			outcome,
			run.Passed, run.Failed, run.Masked, run.Skipped,
			coverage)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
