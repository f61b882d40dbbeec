// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/toeirei/proctor/internal/db"
	"github.com/toeirei/proctor/internal/i18n"
	"github.com/toeirei/proctor/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	adminStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	guestStyle  = lipgloss.NewStyle().Faint(true)
)

func newAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List all accounts with their role and number of keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out, err := renderAccounts(cmd.Context(), store)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

type accountLister interface {
	ListAccounts(ctx context.Context) ([]model.Account, error)
	ListCredentials(ctx context.Context, accountID int) ([]model.Credential, error)
}

var _ accountLister = db.Store(nil)

// renderAccounts formats every account as one table row.
func renderAccounts(ctx context.Context, store accountLister) (string, error) {
	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return i18n.T("accounts.none"), nil
	}

	rows := [][]string{{i18n.T("accounts.header_name"), i18n.T("accounts.header_role"), i18n.T("accounts.header_keys")}}
	for _, acc := range accounts {
		creds, err := store.ListCredentials(ctx, acc.ID)
		if err != nil {
			return "", fmt.Errorf("failed to list keys of %s: %w", acc.Name, err)
		}
		rows = append(rows, []string{acc.Name, string(acc.Role), strconv.Itoa(len(creds))})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	lines := make([]string, 0, len(rows))
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			style := lipgloss.NewStyle()
			switch {
			case r == 0:
				style = headerStyle
			case i == 1 && cell == string(model.RoleAdmin):
				style = adminStyle
			case i == 1 && cell == string(model.RoleGuest):
				style = guestStyle
			}
			cells[i] = style.Width(widths[i]).Render(cell)
		}
		lines = append(lines, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
	return strings.Join(lines, "\n"), nil
}
