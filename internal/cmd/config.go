package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moritzfl/homebrew-vale-ls/internal/config"
)

func newConfigCmd(flags *flagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Config helpers",
	}

	cmd.AddCommand(newConfigInitCmd(flags))

	return cmd
}

func newConfigInitCmd(flags *flagValues) *cobra.Command {
	var filePath string
	var user bool
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an annotated config template to disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := strings.TrimSpace(filePath)
			switch {
			case target != "":
			case user:
				target = config.UserFile()
			default:
				tapDir, err := resolveTapDir(cmd, flags)
				if err != nil {
					return err
				}
				target = filepath.Join(tapDir, config.LocalFile)
			}

			if err := confirmWrite(cmd, force, target); err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}

			if err := os.WriteFile(target, []byte(config.DefaultTemplate()), 0o644); err != nil {
				return fmt.Errorf("write config template: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote config template: %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "Path to write config template (default: <tap>/"+config.LocalFile+")")
	cmd.Flags().BoolVar(&user, "user", false, "Write the per-user config under XDG_CONFIG_HOME instead")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file without asking")

	return cmd
}
