// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/toeirei/proctor/internal/config"
	"github.com/toeirei/proctor/internal/i18n"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or persist the effective configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML, with the admin password redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := appConfig
			if c.Admin.Password != "" {
				c.Admin.Password = c.Admin.SystemAdmin().Password.String()
			}
			data, err := yaml.Marshal(&c)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	var system bool
	var path string
	write := &cobra.Command{
		Use:   "write",
		Short: "Write the effective configuration to proctor.yaml",
		Long: `Writes the effective configuration (file, environment and flags merged)
to the user configuration directory, the system-wide one with --system,
or --path. The file is created with mode 0600.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			written, err := config.WriteConfigFile(&appConfig, path, system)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("config.written", written))
			return nil
		},
	}
	write.Flags().BoolVar(&system, "system", false, "Write the system-wide file instead of the user one")
	write.Flags().StringVar(&path, "path", "", "Write to this file instead")
	cmd.AddCommand(write)
	return cmd
}
