// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/toeirei/proctor/internal/db"
	"github.com/toeirei/proctor/internal/i18n"
	"github.com/toeirei/proctor/internal/model"
)

// seedAdmin creates an admin account named username unless any account
// exists. It reports whether an account was created.
func seedAdmin(ctx context.Context, store db.AccountStore, username, password string, out io.Writer) (bool, error) {
	n, err := store.CountAccounts(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	fmt.Fprintln(out, i18n.T("seed.creating", username))
	acc := &model.Account{Name: username, Role: model.RoleAdmin}
	if err := store.CreateAccount(ctx, acc, password); err != nil {
		return false, err
	}
	return true, nil
}

func newSeedCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the first admin account",
		Long: `Creates an admin account when the database holds no accounts yet.

The name and password come from admin.username and admin.password. With
--username and no configured password, the password is read from the
terminal (or from the first line of stdin when it is not a terminal).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				username = appConfig.Admin.Username
			}
			if username == "" {
				return errors.New(i18n.T("seed.missing_credentials"))
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.CountAccounts(cmd.Context())
			if err != nil {
				return err
			}
			if n > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("seed.skipped"))
				return nil
			}

			password := appConfig.Admin.Password
			if password == "" {
				if password, err = readPassword(cmd, username); err != nil {
					return err
				}
			}
			if password == "" {
				return errors.New(i18n.T("seed.missing_credentials"))
			}

			_, err = seedAdmin(cmd.Context(), store, username, password, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Name of the admin account (default admin.username)")
	return cmd
}

// readPassword prompts for a password without echo on a terminal, and
// reads one line otherwise.
func readPassword(cmd *cobra.Command, username string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), i18n.T("seed.prompt_password", username))

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
