// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/toeirei/proctor/internal/db"
	"github.com/toeirei/proctor/internal/i18n"
	"github.com/toeirei/proctor/internal/model"
)

func newMigrateCmd() *cobra.Command {
	var targetType, targetDsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations, optionally copying all data to another database",
		Long: `Applies the embedded schema migrations to the configured database.

With --target-type and --target-dsn the data is then exported and
imported into the target database (migrated first), replacing whatever
it held. Use this to move between database backends.

Example:
  proctor migrate --target-type postgres --target-dsn "postgres://proctor@localhost/proctor"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (targetType == "") != (targetDsn == "") {
				return errors.New("--target-type and --target-dsn must be given together")
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("migrate.done"))

			if targetType == "" {
				return nil
			}
			return copyStore(cmd.Context(), store, targetType, targetDsn, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&targetType, "target-type", "", "Database type to copy the data to")
	cmd.Flags().StringVar(&targetDsn, "target-dsn", "", "DSN of the database to copy the data to")
	return cmd
}

func copyStore(ctx context.Context, src db.BackupStore, targetType, targetDsn string, out io.Writer) error {
	data, err := src.ExportDataForBackup(ctx)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	target, err := db.New(targetType, targetDsn, db.WithHasher(hasher()))
	if err != nil {
		return errors.New(i18n.T("config.error_init_db", err))
	}
	defer func() { _ = target.Close() }()

	if err := target.ImportDataFromBackup(ctx, data); err != nil {
		return fmt.Errorf("import into %s failed: %w", targetType, err)
	}
	fmt.Fprintln(out, i18n.T("migrate.copied", targetType))
	return nil
}

func newDBMaintainCmd() *cobra.Command {
	var skipIntegrity bool
	var timeoutSec int
	cmd := &cobra.Command{
		Use:   "db-maintain",
		Short: "Run database maintenance (VACUUM/OPTIMIZE) for the configured DB",
		Long:  `Runs engine-specific maintenance tasks (VACUUM, OPTIMIZE TABLE, PRAGMA optimize).`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if skipIntegrity {
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("maintain.skip_integrity"))
			}
			ctx := cmd.Context()
			if timeoutSec > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
				defer cancel()
			}
			if err := db.RunDBMaintenance(ctx, appConfig.Database.Type, appConfig.Database.Dsn, skipIntegrity); err != nil {
				return fmt.Errorf("maintenance failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("maintain.done"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipIntegrity, "skip-integrity", false, "Skip integrity_check (SQLite) during maintenance")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 0, "Timeout in seconds for maintenance (0 means no timeout)")
	return cmd
}

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [output-file]",
		Short: "Create a compressed (zstd) JSON backup of the database",
		Long: `Dumps accounts, keys, teams and memberships into a single
Zstandard-compressed JSON file.

'.zst' is appended to the output file name if missing. Without an output
file, 'proctor-backup-YYYY-MM-DD.json.zst' is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFile := fmt.Sprintf("proctor-backup-%s.json.zst", time.Now().Format("2006-01-02"))
			if len(args) > 0 {
				outputFile = args[0]
				if !strings.HasSuffix(outputFile, ".zst") {
					outputFile += ".zst"
				}
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			data, err := store.ExportDataForBackup(cmd.Context())
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			if err := writeCompressedBackup(outputFile, data); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("backup.written", outputFile))
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "restore <backup-file.zst>",
		Short: "Restore the database from a compressed JSON backup",
		Long: `Restores a backup written by 'proctor backup'.

By default only rows that do not exist yet are added, matched by account
name, team name, key title and membership. --full wipes all existing data
first and restores the backup exactly, ids included. It is not reversible.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readCompressedBackup(args[0])
			if err != nil {
				return err
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if full {
				err = store.ImportDataFromBackup(cmd.Context(), data)
			} else {
				err = store.IntegrateDataFromBackup(cmd.Context(), data)
			}
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("restore.done", args[0]))
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Perform a full, destructive restore (wipes all existing data first)")
	return cmd
}

// writeCompressedBackup streams data as indented JSON through a zstd writer
// into filename.
func writeCompressedBackup(filename string, data *model.BackupData) (err error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	zw, err := zstd.NewWriter(file)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}
	encoder := json.NewEncoder(zw)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("could not encode json to zstd writer: %w", err)
	}
	return zw.Close()
}

// readCompressedBackup decodes a file written by writeCompressedBackup.
func readCompressedBackup(filename string) (*model.BackupData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	zr, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zr.Close()

	var data model.BackupData
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}
	return &data, nil
}
