package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "covpipe",
		Short:         "Covpipe executes the repository's coverage CI pipeline locally",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	persistent := cmd.PersistentFlags()
	persistent.StringArray("workflow", nil, "workflow file to include")
	persistent.StringArray("job", nil, "job id or name to include (repeatable)")
	persistent.String("branch", "", "branch of the synthesized push event (default: current git branch)")
	persistent.Bool("force", false, "run workflows even when the trigger does not match")
	persistent.Bool("dry-run", false, "print steps without executing them")
	persistent.BoolP("verbose", "v", false, "stream command output in real time")
	persistent.String("format", "", "output format (pretty|json)")
	persistent.String("artifact-dir", "", "directory for uploaded artifacts")
	persistent.Bool("no-history", false, "do not record the run in the history ledger")
	persistent.Bool("fail-on-masked", false, "treat masked step failures as run failures")
	persistent.Bool("allow-privileged", false, "allow commands matching privileged patterns")

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newHistoryCmd())

	return cmd
}
