// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cli implements the command-line interface for Proctor using Cobra.
// The root command loads configuration, logging and i18n once; subcommands
// open the store themselves.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toeirei/proctor/buildvars"
	"github.com/toeirei/proctor/internal/config"
	"github.com/toeirei/proctor/internal/db"
	"github.com/toeirei/proctor/internal/i18n"
	"github.com/toeirei/proctor/internal/logging"
	"github.com/toeirei/proctor/internal/security"
)

var (
	cfgFile   string
	verbose   bool
	appConfig config.Config
)

func setupDefaultServices(cmd *cobra.Command, args []string) error {
	var path *string
	if cmd.Flags().Changed("config") && cfgFile != "" {
		path = &cfgFile
	}

	c, err := config.Load(cmd, path)
	if err != nil {
		return errors.New(i18n.T("config.error_load", err))
	}
	appConfig = c

	i18n.Init(appConfig.Language)
	if err := logging.SetLevel(appConfig.LogLevel); err != nil {
		return err
	}
	if verbose {
		logging.SetDebug(true)
		db.SetDebug(true)
	}
	return nil
}

func hasher() security.Hasher {
	return security.NewHasher(appConfig.BcryptCost)
}

// openStore opens the configured database and applies pending migrations.
func openStore() (*db.BunStore, error) {
	store, err := db.New(appConfig.Database.Type, appConfig.Database.Dsn, db.WithHasher(hasher()))
	if err != nil {
		return nil, errors.New(i18n.T("config.error_init_db", err))
	}
	return store, nil
}

// NewRootCmd creates the root command with all subcommands attached. Each
// call returns an independent tree, so tests can run commands in isolation.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proctor",
		Short: "Proctor is a small directory service for SSH public keys.",
		Long: `Proctor stores users, their SSH public keys and the teams they belong to,
and serves them over an authenticated HTTP API. Provisioning tools fetch
/teams/<name>/pubkeys to build authorized_keys files.

Configuration is read from proctor.yaml, PROCTOR_* environment variables
and flags, in that order of precedence.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupDefaultServices,
		Version:           buildvars.String(),
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <user config dir>/proctor/proctor.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging, including database timings")
	cmd.PersistentFlags().String("database.type", "sqlite", `Database type ("sqlite", "postgres", "mysql")`)
	cmd.PersistentFlags().String("database.dsn", "./proctor.db", "Database connection string (DSN)")
	cmd.PersistentFlags().String("language", "en", `Message language ("en", "de")`)
	cmd.PersistentFlags().String("log_level", "info", `Log level ("debug", "info", "warn", "error")`)

	cmd.AddCommand(
		newServeCmd(),
		newSeedCmd(),
		newAccountsCmd(),
		newMigrateCmd(),
		newDBMaintainCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := buildvars.Resolve(nil)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", v)
			fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}
}

// Execute runs the CLI. The main package handles the process exit code;
// cobra has already printed the error.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}
