// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/toeirei/proctor/internal/model"
)

// ExportDataForBackup exports all tables' data into a model.BackupData using
// a single transaction so the snapshot is consistent.
func (s *BunStore) ExportDataForBackup(ctx context.Context) (*model.BackupData, error) {
	var backup *model.BackupData
	err := WithTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		backup = &model.BackupData{SchemaVersion: model.BackupSchemaVersion}

		var accounts []AccountModel
		if err := tx.NewSelect().Model(&accounts).OrderExpr("a.id").Scan(ctx); err != nil {
			return err
		}
		for _, a := range accounts {
			backup.Accounts = append(backup.Accounts, accountModelToModel(a))
		}

		var creds []CredentialModel
		if err := tx.NewSelect().Model(&creds).OrderExpr("c.id").Scan(ctx); err != nil {
			return err
		}
		for _, c := range creds {
			backup.Credentials = append(backup.Credentials, credentialModelToModel(c))
		}

		var teams []TeamModel
		if err := tx.NewSelect().Model(&teams).OrderExpr("t.id").Scan(ctx); err != nil {
			return err
		}
		backup.Groups = teamsToModel(teams)

		var mms []MembershipModel
		if err := tx.NewSelect().Model(&mms).OrderExpr("m.id").Scan(ctx); err != nil {
			return err
		}
		for _, m := range mms {
			backup.Memberships = append(backup.Memberships, membershipModelToModel(m))
		}
		return nil
	})
	return backup, err
}

func checkBackupVersion(backup *model.BackupData) error {
	if backup == nil {
		return errors.New("backup is empty")
	}
	if backup.SchemaVersion != model.BackupSchemaVersion {
		return fmt.Errorf("unsupported backup schema version %d (want %d)", backup.SchemaVersion, model.BackupSchemaVersion)
	}
	return nil
}

// ImportDataFromBackup performs a full wipe-and-replace in one transaction.
// Row ids are preserved.
func (s *BunStore) ImportDataFromBackup(ctx context.Context, backup *model.BackupData) error {
	if err := checkBackupVersion(backup); err != nil {
		return err
	}
	return WithTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		// Children first so foreign keys never dangle.
		for _, t := range []string{"memberships", "credentials", "teams", "accounts"} {
			if _, err := ExecRaw(ctx, tx, fmt.Sprintf("DELETE FROM %s", t)); err != nil {
				return err
			}
		}

		for _, acc := range backup.Accounts {
			if _, err := ExecRaw(ctx, tx, "INSERT INTO accounts (id, name, role, password_digest) VALUES (?, ?, ?, ?)", acc.ID, acc.Name, string(acc.Role), acc.PasswordDigest); err != nil {
				return MapDBError(err)
			}
		}
		for _, c := range backup.Credentials {
			if _, err := ExecRaw(ctx, tx, "INSERT INTO credentials (id, account_id, title, public_key) VALUES (?, ?, ?, ?)", c.ID, c.AccountID, c.Title, c.Key); err != nil {
				return MapDBError(err)
			}
		}
		for _, g := range backup.Groups {
			if _, err := ExecRaw(ctx, tx, "INSERT INTO teams (id, name) VALUES (?, ?)", g.ID, g.Name); err != nil {
				return MapDBError(err)
			}
		}
		for _, m := range backup.Memberships {
			if _, err := ExecRaw(ctx, tx, "INSERT INTO memberships (id, account_id, team_id) VALUES (?, ?, ?)", m.ID, m.AccountID, m.GroupID); err != nil {
				return MapDBError(err)
			}
		}

		// Explicit ids bypass Postgres sequences; move them past the imported rows.
		if s.dbType == "postgres" {
			for _, t := range []string{"accounts", "credentials", "teams", "memberships"} {
				q := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %s", t, t)
				if _, err := ExecRaw(ctx, tx, q); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// IntegrateDataFromBackup performs a non-destructive restore. Rows are
// matched on their natural keys (account name, group name, account+title,
// account+group) and only missing ones are inserted, with fresh ids.
func (s *BunStore) IntegrateDataFromBackup(ctx context.Context, backup *model.BackupData) error {
	if err := checkBackupVersion(backup); err != nil {
		return err
	}
	return WithTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		accountIDs := make(map[int]int, len(backup.Accounts))
		for _, acc := range backup.Accounts {
			existing, err := findAccount(ctx, tx, "a.name = ?", acc.Name)
			switch {
			case err == nil:
				accountIDs[acc.ID] = existing.ID
				continue
			case !errors.Is(err, ErrNotFound):
				return err
			}
			am := accountToModel(acc)
			am.ID = 0
			if _, err := tx.NewInsert().Model(&am).Column("name", "role", "password_digest").Returning("id").Exec(ctx); err != nil {
				return MapDBError(err)
			}
			accountIDs[acc.ID] = am.ID
		}

		for _, c := range backup.Credentials {
			accountID, ok := accountIDs[c.AccountID]
			if !ok {
				continue
			}
			taken, err := tx.NewSelect().Model((*CredentialModel)(nil)).Where("c.account_id = ?", accountID).Where("c.title = ?", c.Title).Exists(ctx)
			if err != nil {
				return err
			}
			if taken {
				continue
			}
			cm := CredentialModel{AccountID: accountID, Title: c.Title, PublicKey: c.Key}
			if _, err := tx.NewInsert().Model(&cm).Column("account_id", "title", "public_key").Returning("id").Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}

		groupIDs := make(map[int]int, len(backup.Groups))
		for _, g := range backup.Groups {
			existing, err := findGroup(ctx, tx, g.Name)
			switch {
			case err == nil:
				groupIDs[g.ID] = existing.ID
				continue
			case !errors.Is(err, ErrNotFound):
				return err
			}
			tm := TeamModel{Name: g.Name}
			if _, err := tx.NewInsert().Model(&tm).Column("name").Returning("id").Exec(ctx); err != nil {
				return MapDBError(err)
			}
			groupIDs[g.ID] = tm.ID
		}

		for _, m := range backup.Memberships {
			accountID, okA := accountIDs[m.AccountID]
			groupID, okG := groupIDs[m.GroupID]
			if !okA || !okG {
				continue
			}
			taken, err := tx.NewSelect().Model((*MembershipModel)(nil)).Where("m.account_id = ?", accountID).Where("m.team_id = ?", groupID).Exists(ctx)
			if err != nil {
				return err
			}
			if taken {
				continue
			}
			mm := MembershipModel{AccountID: accountID, TeamID: groupID}
			if _, err := tx.NewInsert().Model(&mm).Column("account_id", "team_id").Returning("id").Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
}
