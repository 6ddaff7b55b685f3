package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anujt65/covpipe/internal/config"
	"github.com/anujt65/covpipe/internal/output"
	"github.com/anujt65/covpipe/internal/provider"
	"github.com/anujt65/covpipe/internal/report"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workflow jobs and steps",
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := loadPipeline(root, cfg)
	if err != nil {
		return err
	}

	selected := filterJobs(data, cfg.Jobs)
	return renderList(cmd, cfg, selected.provider, selected.workflows, selected.warnings)
}

func renderList(cmd *cobra.Command, cfg config.Config, providerName string, workflows []provider.Workflow, warnings []provider.Warning) error {
	if len(workflows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching jobs or steps")
		return nil
	}

	warningsList := collapseWarnings(warnings)

	switch strings.ToLower(cfg.Format) {
	case config.FormatPretty, "":
		renderer := output.NewPretty(cmd.OutOrStdout())
		if err := renderer.RenderList(workflows); err != nil {
			return err
		}
		for _, msg := range warningsList {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", msg)
		}
	case config.FormatJSON:
		listReport := output.Report{
			Provider:  providerName,
			Workflows: workflows,
			Summary:   computeListSummary(workflows),
			Warnings:  warningsList,
		}
		renderer := output.NewJSON(cmd.OutOrStdout())
		if err := renderer.Render(listReport); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}

	return nil
}

func computeListSummary(workflows []provider.Workflow) report.Summary {
	var jobs, steps int
	for _, wf := range workflows {
		jobs += len(wf.Jobs)
		for _, job := range wf.Jobs {
			steps += len(job.Steps)
		}
	}
	return report.Summary{
		TotalWorkflows: len(workflows),
		TotalJobs:      jobs,
		TotalSteps:     steps,
	}
}
