package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zorostang/secret-upgradable-nfts/conf"
)

func configCmd() *cobra.Command {
	subCmd := &cobra.Command{
		Use:   "config",
		Short: "Config related commands",
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default config. Defaults to config.toml in the user config dir.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				dir, err := conf.DefaultDir()
				if err != nil {
					return err
				}
				path = filepath.Join(dir, "config.toml")
			}
			if err := conf.Default().WriteFile(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective config, flags and environment applied.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if conf.C == nil {
				return errors.New("config not loaded")
			}
			return conf.C.Write(cmd.OutOrStdout())
		},
	}

	subCmd.AddCommand(initCmd)
	subCmd.AddCommand(showCmd)
	return subCmd
}
