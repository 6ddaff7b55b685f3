package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anujt65/covpipe/internal/config"
)

func gatherFlags(cmd *cobra.Command) (config.FlagValues, error) {
	flags := cmd.Flags()
	var values config.FlagValues

	if flags.Changed("workflow") {
		v, err := flags.GetStringArray("workflow")
		if err != nil {
			return values, fmt.Errorf("parse --workflow: %w", err)
		}
		values.Workflows = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("job") {
		v, err := flags.GetStringArray("job")
		if err != nil {
			return values, fmt.Errorf("parse --job: %w", err)
		}
		values.Jobs = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("branch") {
		v, err := flags.GetString("branch")
		if err != nil {
			return values, fmt.Errorf("parse --branch: %w", err)
		}
		values.Branch = config.StringFlag{Value: v, Set: true}
	}

	if flags.Changed("format") {
		v, err := flags.GetString("format")
		if err != nil {
			return values, fmt.Errorf("parse --format: %w", err)
		}
		values.Format = config.StringFlag{Value: v, Set: true}
	}

	if flags.Changed("artifact-dir") {
		v, err := flags.GetString("artifact-dir")
		if err != nil {
			return values, fmt.Errorf("parse --artifact-dir: %w", err)
		}
		values.ArtifactDir = config.StringFlag{Value: v, Set: true}
	}

	if flags.Changed("dry-run") {
		v, err := flags.GetBool("dry-run")
		if err != nil {
			return values, fmt.Errorf("parse --dry-run: %w", err)
		}
		values.DryRun = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("verbose") {
		v, err := flags.GetBool("verbose")
		if err != nil {
			return values, fmt.Errorf("parse --verbose: %w", err)
		}
		values.Verbose = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("no-history") {
		v, err := flags.GetBool("no-history")
		if err != nil {
			return values, fmt.Errorf("parse --no-history: %w", err)
		}
		values.NoHistory = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("fail-on-masked") {
		v, err := flags.GetBool("fail-on-masked")
		if err != nil {
			return values, fmt.Errorf("parse --fail-on-masked: %w", err)
		}
		values.FailOnMasked = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("allow-privileged") {
		v, err := flags.GetBool("allow-privileged")
		if err != nil {
			return values, fmt.Errorf("parse --allow-privileged: %w", err)
		}
		values.AllowPrivileged = config.BoolFlag{Value: v, Set: true}
	}

	return values, nil
}
