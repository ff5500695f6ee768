package cmd

import (
	"github.com/spf13/cobra"

	"github.com/moritzfl/homebrew-vale-ls/internal/tap"
)

func newSyncCmd(flags *flagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch releases, resolve checksums and reconcile formula files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, flags)
		},
	}

	addSyncFlags(cmd, flags)

	return cmd
}

func runSync(cmd *cobra.Command, flags *flagValues) error {
	opts, err := mergedOptions(cmd, flags)
	if err != nil {
		return err
	}

	syncOpts, err := opts.syncOptions(cmd)
	if err != nil {
		return err
	}

	report, err := tap.Sync(cmd.Context(), syncOpts)
	if len(report.Decisions) > 0 {
		printSummary(cmd.OutOrStdout(), report, opts.DryRun)
	}
	return err
}
