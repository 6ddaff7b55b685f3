package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anujt65/covpipe/internal/config"
	"github.com/anujt65/covpipe/internal/lint"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Lint workflow definitions",
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := loadPipeline(root, cfg)
	if err != nil {
		return err
	}

	findings := lint.Check(root, data.workflows)

	switch strings.ToLower(cfg.Format) {
	case config.FormatPretty, "":
		if len(findings) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No findings")
		}
		for _, f := range findings {
			location := f.Workflow
			if f.Job != "" {
				location += ":" + f.Job
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s [%s] %s\n", location, f.Severity, f.Rule, f.Message)
		}
	case config.FormatJSON:
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(findings); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}

	if lint.HasErrors(findings) {
		return fmt.Errorf("workflow check failed")
	}
	return nil
}
