package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anujt65/covpipe/internal/config"
	"github.com/anujt65/covpipe/internal/discovery"
	"github.com/anujt65/covpipe/internal/provider"
	githubprovider "github.com/anujt65/covpipe/internal/provider/github"
	"github.com/anujt65/covpipe/internal/trigger"
)

// pipelineData bundles parsed workflows with warnings and metadata.
type pipelineData struct {
	provider  string
	workflows []provider.Workflow
	warnings  []provider.Warning
}

func loadPipeline(root string, cfg config.Config) (pipelineData, error) {
	paths, err := discovery.Workflows(root, cfg.Workflows)
	if err != nil {
		if errors.Is(err, discovery.ErrNoWorkflows) {
			return pipelineData{}, fmt.Errorf("no workflows found; specify --workflow to provide files")
		}
		return pipelineData{}, err
	}

	parser := githubprovider.NewParser(root)
	pipeline, err := parser.Parse(paths)
	if err != nil {
		return pipelineData{}, err
	}
	return pipelineData{
		provider:  githubprovider.ProviderName,
		workflows: pipeline.Workflows,
		warnings:  pipeline.Warnings,
	}, nil
}

// filterByTrigger keeps workflows whose push trigger matches the event.
// With force set, every workflow is kept regardless of its triggers.
func filterByTrigger(data pipelineData, event trigger.PushEvent, force bool) pipelineData {
	if force {
		return data
	}
	filtered := pipelineData{provider: data.provider, warnings: data.warnings}
	for _, wf := range data.workflows {
		if trigger.Matches(wf, event) {
			filtered.workflows = append(filtered.workflows, wf)
		}
	}
	return filtered
}

// filterJobs narrows workflows to jobs whose raw id or name is listed.
// An empty filter keeps everything.
func filterJobs(data pipelineData, jobs []string) pipelineData {
	if len(jobs) == 0 {
		return data
	}
	wanted := make(map[string]struct{}, len(jobs))
	for _, j := range jobs {
		wanted[j] = struct{}{}
	}
	filtered := pipelineData{provider: data.provider, warnings: data.warnings}
	for _, wf := range data.workflows {
		kept := wf
		kept.Jobs = nil
		for _, job := range wf.Jobs {
			if _, ok := wanted[job.RawID]; ok {
				kept.Jobs = append(kept.Jobs, job)
				continue
			}
			if _, ok := wanted[job.Name]; ok {
				kept.Jobs = append(kept.Jobs, job)
			}
		}
		if len(kept.Jobs) > 0 {
			filtered.workflows = append(filtered.workflows, kept)
		}
	}
	return filtered
}

func collapseWarnings(warnings []provider.Warning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		if w.Job == "" {
			out = append(out, fmt.Sprintf("%s: %s", w.Workflow, w.Message))
			continue
		}
		out = append(out, fmt.Sprintf("%s:%s: %s", w.Workflow, w.Job, w.Message))
	}
	return out
}

func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	root, err := os.Getwd()
	if err != nil {
		return config.Config{}, "", fmt.Errorf("determine working directory: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return config.Config{}, "", err
	}

	flags, err := gatherFlags(cmd)
	if err != nil {
		return config.Config{}, "", err
	}
	config.ApplyFlags(&cfg, flags)

	return cfg, root, nil
}

// resolveEvent synthesizes the push event a run executes under, from
// --branch or the checked-out git branch.
func resolveEvent(root string, cfg config.Config) (trigger.PushEvent, error) {
	detected, detectErr := trigger.CurrentEvent(root)
	if cfg.Branch != "" {
		event := trigger.PushEvent{Branch: cfg.Branch}
		if detectErr == nil && detected.Branch == cfg.Branch {
			event.Commit = detected.Commit
		}
		return event, nil
	}
	if detectErr != nil {
		return trigger.PushEvent{}, fmt.Errorf("cannot determine current branch (%v); pass --branch", detectErr)
	}
	return detected, nil
}
