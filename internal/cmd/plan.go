package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moritzfl/homebrew-vale-ls/internal/render"
	"github.com/moritzfl/homebrew-vale-ls/internal/tap"
	"github.com/moritzfl/homebrew-vale-ls/internal/versions"
)

func newPlanCmd(flags *flagValues) *cobra.Command {
	var manifestPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show which formulas a sync would produce without downloading assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := mergedOptions(cmd, flags)
			if err != nil {
				return err
			}

			syncOpts, err := opts.syncOptions(cmd)
			if err != nil {
				return err
			}

			sel, err := tap.Plan(cmd.Context(), syncOpts)
			if err != nil {
				return err
			}

			printPlan(cmd.OutOrStdout(), sel, opts.FormulaName)

			target := strings.TrimSpace(manifestPath)
			if target == "" {
				return nil
			}
			if err := confirmWrite(cmd, force, target); err != nil {
				return err
			}
			if err := versions.WriteManifest(target, versions.ManifestFor(sel)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote manifest: %s\n", target)
			return nil
		},
	}

	addSyncFlags(cmd, flags)
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Also write the selection as JSON to this path")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing manifest without asking")

	return cmd
}

// planRows lists formula file, version and tag for every target of sel.
func planRows(sel versions.Selection, formulaName string) [][3]string {
	targets := render.Targets(sel)
	rows := make([][3]string, 0, len(targets))
	for _, t := range targets {
		rows = append(rows, [3]string{t.Identity.FileName(formulaName), t.Release.Version.String(), t.Release.Tag})
	}
	return rows
}
