package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/anujt65/covpipe/internal/artifact"
	"github.com/anujt65/covpipe/internal/config"
	"github.com/anujt65/covpipe/internal/history"
	"github.com/anujt65/covpipe/internal/output"
	"github.com/anujt65/covpipe/internal/report"
	"github.com/anujt65/covpipe/internal/runner"
	"github.com/anujt65/covpipe/internal/trigger"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute workflows for a push event",
		RunE:  runExecute,
	}
}

func runExecute(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("parse --force: %w", err)
	}

	data, err := loadPipeline(root, cfg)
	if err != nil {
		return err
	}

	event, err := resolveEvent(root, cfg)
	if err != nil {
		return err
	}

	triggered := filterByTrigger(data, event, force)
	if len(triggered.workflows) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No workflows triggered for push to %q\n", event.Branch)
		return nil
	}
	selected := filterJobs(triggered, cfg.Jobs)

	runID := uuid.NewString()
	artifactDir := cfg.ArtifactDir
	if !filepath.IsAbs(artifactDir) {
		artifactDir = filepath.Join(root, artifactDir)
	}

	runOpts := runner.Options{
		Root:               root,
		Stdout:             cmd.OutOrStdout(),
		Stderr:             cmd.ErrOrStderr(),
		Verbose:            cfg.Verbose,
		DryRun:             cfg.DryRun,
		TailLines:          20,
		RunID:              runID,
		Artifacts:          artifact.NewStore(artifactDir),
		AllowPrivileged:    cfg.AllowPrivileged,
		PrivilegedPatterns: cfg.PrivilegedCommandPatterns,
	}
	execRunner := runner.New(runOpts)

	startedAt := time.Now()
	results, summary, err := execRunner.Run(selected.workflows)
	if err != nil {
		return err
	}
	finishedAt := time.Now()

	if summary.TotalSteps == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching jobs or steps")
		return nil
	}

	if !cfg.DryRun && !cfg.DisableHistory {
		if err := recordRun(root, runID, event, startedAt, finishedAt, summary); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
	}

	warnings := collapseWarnings(selected.warnings)

	switch strings.ToLower(cfg.Format) {
	case config.FormatPretty, "":
		renderer := output.NewPretty(cmd.OutOrStdout())
		if err := renderer.RenderResults(results, summary); err != nil {
			return err
		}
		for _, msg := range warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", msg)
		}
	case config.FormatJSON:
		jsonReport := output.Report{
			Provider:  selected.provider,
			RunID:     runID,
			Branch:    event.Branch,
			Workflows: selected.workflows,
			Steps:     results,
			Summary:   summary,
			Warnings:  warnings,
		}
		renderer := output.NewJSON(cmd.OutOrStdout())
		if err := renderer.Render(jsonReport); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}

	if summary.ExitCode != 0 {
		return fmt.Errorf("one or more steps failed")
	}
	if cfg.FailOnMasked && summary.Masked > 0 {
		return fmt.Errorf("%d step failure(s) were masked", summary.Masked)
	}

	return nil
}

func recordRun(root, runID string, event trigger.PushEvent, startedAt, finishedAt time.Time, summary report.Summary) error {
	path := filepath.Join(root, config.DefaultHistoryPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Record(context.Background(), history.Run{
		ID:              runID,
		Branch:          event.Branch,
		Commit:          event.Commit,
		StartedAt:       startedAt,
		FinishedAt:      finishedAt,
		TotalSteps:      summary.TotalSteps,
		Passed:          summary.Passed,
		Failed:          summary.Failed,
		Masked:          summary.Masked,
		Skipped:         summary.Skipped,
		ExitCode:        summary.ExitCode,
		CoveragePercent: summary.CoveragePercent,
	})
}
