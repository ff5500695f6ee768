package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moritzfl/homebrew-vale-ls/internal/render"
)

func newTemplateCmd(flags *flagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Formula template helpers",
	}

	cmd.AddCommand(newTemplateInitCmd(flags))

	return cmd
}

func newTemplateInitCmd(flags *flagValues) *cobra.Command {
	var filePath string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the built-in formula template to disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := strings.TrimSpace(filePath)
			if target == "" {
				opts, err := mergedOptions(cmd, flags)
				if err != nil {
					return err
				}
				target = opts.Template
			}

			if err := confirmWrite(cmd, force, target); err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create template directory: %w", err)
			}

			if err := os.WriteFile(target, []byte(render.DefaultTemplate()), 0o644); err != nil {
				return fmt.Errorf("write formula template: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote formula template: %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "Path to write the template (default: the configured template path)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file without asking")

	return cmd
}
