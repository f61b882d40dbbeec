// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/toeirei/proctor/internal/model"
	"github.com/toeirei/proctor/internal/security"
)

// BunStore implements Store on top of a bun.DB for every supported dialect.
type BunStore struct {
	db     *bun.DB
	dbType string
	hasher security.Hasher
}

// Option configures a BunStore.
type Option func(*BunStore)

// WithHasher sets the password hasher used for account passwords.
func WithHasher(h security.Hasher) Option {
	return func(s *BunStore) { s.hasher = h }
}

// BunDB returns the underlying bun.DB.
func (s *BunStore) BunDB() *bun.DB { return s.db }

// DBType returns the configured database type.
func (s *BunStore) DBType() string { return s.dbType }

// Close closes the underlying connection pool.
func (s *BunStore) Close() error { return s.db.Close() }

// --- Accounts ---

// ListAccounts returns all accounts ordered by name.
func (s *BunStore) ListAccounts(ctx context.Context) ([]model.Account, error) {
	var ams []AccountModel
	if err := s.db.NewSelect().Model(&ams).OrderExpr("a.name ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Account, 0, len(ams))
	for _, am := range ams {
		out = append(out, accountModelToModel(am))
	}
	return out, nil
}

// CountAccounts returns the number of stored accounts.
func (s *BunStore) CountAccounts(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*AccountModel)(nil)).Count(ctx)
}

// FindAccountByName returns the account with exactly the given name.
func (s *BunStore) FindAccountByName(ctx context.Context, name string) (*model.Account, error) {
	return findAccount(ctx, s.db, "a.name = ?", name)
}

// FindAccountByID returns the account with the given id.
func (s *BunStore) FindAccountByID(ctx context.Context, id int) (*model.Account, error) {
	return findAccount(ctx, s.db, "a.id = ?", id)
}

func findAccount(ctx context.Context, q bun.IDB, where string, arg interface{}) (*model.Account, error) {
	var am AccountModel
	if err := q.NewSelect().Model(&am).Where(where, arg).Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a := accountModelToModel(am)
	return &a, nil
}

func validatePassword(v *model.ValidationError, password string, required bool) {
	switch {
	case password == "" && required:
		v.Add("password", model.CodeBlank)
	case len(password) > 72:
		v.Add("password", model.CodeTooLong)
	}
}

// CreateAccount validates a, hashes password and inserts the account. On
// success a.ID and a.PasswordDigest are set.
func (s *BunStore) CreateAccount(ctx context.Context, a *model.Account, password string) error {
	v := a.Validate()
	validatePassword(&v, password, true)
	if a.Name != "" {
		taken, err := s.db.NewSelect().Model((*AccountModel)(nil)).Where("a.name = ?", a.Name).Exists(ctx)
		if err != nil {
			return err
		}
		if taken {
			v.Add("name", model.CodeTaken)
		}
	}
	if err := v.Err(); err != nil {
		return err
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	am := accountToModel(*a)
	am.PasswordDigest = digest
	// Use Bun's NewInsert with Returning to support Postgres and MySQL
	if _, err := s.db.NewInsert().Model(&am).Column("name", "role", "password_digest").Returning("id").Exec(ctx); err != nil {
		return takenOnDuplicate(err, "name")
	}
	a.ID = am.ID
	a.PasswordDigest = digest
	dbLogf("db: created account %s (id=%d)", a.Name, a.ID)
	return nil
}

// UpdateAccount stores name and role of an existing account and replaces
// the digest when password is non-empty.
func (s *BunStore) UpdateAccount(ctx context.Context, a *model.Account, password string) error {
	v := a.Validate()
	validatePassword(&v, password, false)
	if a.Name != "" {
		taken, err := s.db.NewSelect().Model((*AccountModel)(nil)).Where("a.name = ?", a.Name).Where("a.id <> ?", a.ID).Exists(ctx)
		if err != nil {
			return err
		}
		if taken {
			v.Add("name", model.CodeTaken)
		}
	}
	if err := v.Err(); err != nil {
		return err
	}

	columns := []string{"name", "role"}
	am := accountToModel(*a)
	if password != "" {
		digest, err := s.hasher.Hash(password)
		if err != nil {
			return err
		}
		am.PasswordDigest = digest
		columns = append(columns, "password_digest")
	}
	res, err := s.db.NewUpdate().Model(&am).Column(columns...).WherePK().Exec(ctx)
	if err != nil {
		return takenOnDuplicate(err, "name")
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	if password != "" {
		a.PasswordDigest = am.PasswordDigest
	}
	return nil
}

// DeleteAccount removes the account together with its credentials and
// memberships.
func (s *BunStore) DeleteAccount(ctx context.Context, id int) error {
	return WithTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*MembershipModel)(nil)).Where("account_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*CredentialModel)(nil)).Where("account_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*AccountModel)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		if rowsAffected(res) == 0 {
			return ErrNotFound
		}
		dbLogf("db: deleted account id=%d", id)
		return nil
	})
}

// --- Credentials ---

// ListCredentials returns the account's credentials ordered by title.
func (s *BunStore) ListCredentials(ctx context.Context, accountID int) ([]model.Credential, error) {
	var cms []CredentialModel
	if err := s.db.NewSelect().Model(&cms).Where("c.account_id = ?", accountID).OrderExpr("c.title ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Credential, 0, len(cms))
	for _, cm := range cms {
		out = append(out, credentialModelToModel(cm))
	}
	return out, nil
}

// FindCredential returns the account's credential with the given title.
func (s *BunStore) FindCredential(ctx context.Context, accountID int, title string) (*model.Credential, error) {
	var cm CredentialModel
	err := s.db.NewSelect().Model(&cm).Where("c.account_id = ?", accountID).Where("c.title = ?", title).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c := credentialModelToModel(cm)
	return &c, nil
}

func (s *BunStore) validateCredential(ctx context.Context, c *model.Credential) error {
	v := c.Validate()
	if c.AccountID > 0 {
		if _, err := s.FindAccountByID(ctx, c.AccountID); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			v.Add("user", model.CodeUserNotFound)
		}
	}
	if c.AccountID > 0 && c.Title != "" {
		q := s.db.NewSelect().Model((*CredentialModel)(nil)).Where("c.account_id = ?", c.AccountID).Where("c.title = ?", c.Title)
		if c.ID > 0 {
			q = q.Where("c.id <> ?", c.ID)
		}
		taken, err := q.Exists(ctx)
		if err != nil {
			return err
		}
		if taken {
			v.Add("title", model.CodeTaken)
		}
	}
	return v.Err()
}

// CreateCredential validates c and inserts it. On success c.ID is set.
func (s *BunStore) CreateCredential(ctx context.Context, c *model.Credential) error {
	if err := s.validateCredential(ctx, c); err != nil {
		return err
	}
	cm := credentialToModel(*c)
	if _, err := s.db.NewInsert().Model(&cm).Column("account_id", "title", "public_key").Returning("id").Exec(ctx); err != nil {
		return takenOnDuplicate(err, "title")
	}
	c.ID = cm.ID
	return nil
}

// UpdateCredential stores the title and key of an existing credential.
func (s *BunStore) UpdateCredential(ctx context.Context, c *model.Credential) error {
	if err := s.validateCredential(ctx, c); err != nil {
		return err
	}
	cm := credentialToModel(*c)
	res, err := s.db.NewUpdate().Model(&cm).Column("title", "public_key").WherePK().Exec(ctx)
	if err != nil {
		return takenOnDuplicate(err, "title")
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCredential removes a credential by id.
func (s *BunStore) DeleteCredential(ctx context.Context, id int) error {
	res, err := s.db.NewDelete().Model((*CredentialModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Groups ---

// ListGroups returns all groups ordered by name.
func (s *BunStore) ListGroups(ctx context.Context) ([]model.Group, error) {
	var tms []TeamModel
	if err := s.db.NewSelect().Model(&tms).OrderExpr("t.name ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return teamsToModel(tms), nil
}

func teamsToModel(tms []TeamModel) []model.Group {
	out := make([]model.Group, 0, len(tms))
	for _, tm := range tms {
		out = append(out, teamModelToModel(tm))
	}
	return out
}

// FindGroupByName returns the group with exactly the given name.
func (s *BunStore) FindGroupByName(ctx context.Context, name string) (*model.Group, error) {
	return findGroup(ctx, s.db, name)
}

func findGroup(ctx context.Context, q bun.IDB, name string) (*model.Group, error) {
	var tm TeamModel
	if err := q.NewSelect().Model(&tm).Where("t.name = ?", name).Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	g := teamModelToModel(tm)
	return &g, nil
}

func validateGroup(ctx context.Context, q bun.IDB, g *model.Group) error {
	v := g.Validate()
	if g.Name != "" {
		taken, err := q.NewSelect().Model((*TeamModel)(nil)).Where("t.name = ?", g.Name).Where("t.id <> ?", g.ID).Exists(ctx)
		if err != nil {
			return err
		}
		if taken {
			v.Add("name", model.CodeTaken)
		}
	}
	return v.Err()
}

func createGroup(ctx context.Context, q bun.IDB, g *model.Group) error {
	if err := validateGroup(ctx, q, g); err != nil {
		return err
	}
	tm := TeamModel{Name: g.Name}
	if _, err := q.NewInsert().Model(&tm).Column("name").Returning("id").Exec(ctx); err != nil {
		return takenOnDuplicate(err, "name")
	}
	g.ID = tm.ID
	return nil
}

// CreateGroup validates g and inserts it. On success g.ID is set.
func (s *BunStore) CreateGroup(ctx context.Context, g *model.Group) error {
	return createGroup(ctx, s.db, g)
}

// UpdateGroup renames an existing group.
func (s *BunStore) UpdateGroup(ctx context.Context, g *model.Group) error {
	if err := validateGroup(ctx, s.db, g); err != nil {
		return err
	}
	tm := TeamModel{ID: g.ID, Name: g.Name}
	res, err := s.db.NewUpdate().Model(&tm).Column("name").WherePK().Exec(ctx)
	if err != nil {
		return takenOnDuplicate(err, "name")
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteGroup removes a group and its memberships.
func (s *BunStore) DeleteGroup(ctx context.Context, id int) error {
	return WithTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*MembershipModel)(nil)).Where("team_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*TeamModel)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		if rowsAffected(res) == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GroupAccounts returns the group's members ordered by name.
func (s *BunStore) GroupAccounts(ctx context.Context, groupID int) ([]model.Account, error) {
	var ams []AccountModel
	err := s.db.NewSelect().Model(&ams).
		Join("JOIN memberships AS m ON m.account_id = a.id").
		Where("m.team_id = ?", groupID).
		OrderExpr("a.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Account, 0, len(ams))
	for _, am := range ams {
		out = append(out, accountModelToModel(am))
	}
	return out, nil
}

// GroupCredentials returns the credentials of every member of the group,
// ordered by owner name and title.
func (s *BunStore) GroupCredentials(ctx context.Context, groupID int) ([]model.GroupCredential, error) {
	var rows []groupCredentialRow
	err := QueryRawInto(ctx, s.db, &rows,
		`SELECT c.id, c.account_id, c.title, c.public_key, a.name AS owner
		FROM credentials AS c
		JOIN accounts AS a ON a.id = c.account_id
		JOIN memberships AS m ON m.account_id = c.account_id
		WHERE m.team_id = ?
		ORDER BY a.name, c.title`, groupID)
	if err != nil {
		return nil, err
	}
	out := make([]model.GroupCredential, 0, len(rows))
	for _, r := range rows {
		out = append(out, groupCredentialRowToModel(r))
	}
	return out, nil
}

// AccountGroups returns the groups the account belongs to, ordered by name.
func (s *BunStore) AccountGroups(ctx context.Context, accountID int) ([]model.Group, error) {
	var tms []TeamModel
	err := s.db.NewSelect().Model(&tms).
		Join("JOIN memberships AS m ON m.team_id = t.id").
		Where("m.account_id = ?", accountID).
		OrderExpr("t.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return teamsToModel(tms), nil
}

// --- Memberships ---

// Link adds the named account to the named group inside one transaction.
func (s *BunStore) Link(ctx context.Context, accountName, groupName string) (*model.Membership, error) {
	var out *model.Membership
	err := WithTx(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		acc, err := findAccount(ctx, tx, "a.name = ?", accountName)
		if errors.Is(err, ErrNotFound) {
			v := model.ValidationError{{Field: "user", Code: model.CodeUserNotFound}}
			if _, gerr := findGroup(ctx, tx, groupName); errors.Is(gerr, ErrNotFound) {
				v.Add("team", model.CodeTeamNotFound)
			}
			return v
		}
		if err != nil {
			return err
		}

		grp, err := findGroup(ctx, tx, groupName)
		if errors.Is(err, ErrNotFound) {
			grp = &model.Group{Name: groupName}
			if err := createGroup(ctx, tx, grp); err != nil {
				var v model.ValidationError
				if errors.As(err, &v) {
					// Report group problems under the team field.
					tv := make(model.ValidationError, 0, len(v))
					for _, f := range v {
						tv.Add("team", f.Code)
					}
					return tv
				}
				return err
			}
			dbLogf("db: created group %s while linking %s", grp.Name, acc.Name)
		} else if err != nil {
			return err
		}

		var mm MembershipModel
		err = tx.NewSelect().Model(&mm).Where("m.account_id = ?", acc.ID).Where("m.team_id = ?", grp.ID).Limit(1).Scan(ctx)
		if err == nil {
			m := membershipModelToModel(mm)
			out = &m
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		mm = MembershipModel{AccountID: acc.ID, TeamID: grp.ID}
		if _, err := tx.NewInsert().Model(&mm).Column("account_id", "team_id").Returning("id").Exec(ctx); err != nil {
			return MapDBError(err)
		}
		m := membershipModelToModel(mm)
		out = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Unlink removes the membership between the named account and group.
func (s *BunStore) Unlink(ctx context.Context, accountName, groupName string) error {
	_, err := ExecRaw(ctx, s.db,
		`DELETE FROM memberships
		WHERE account_id IN (SELECT id FROM accounts WHERE name = ?)
		AND team_id IN (SELECT id FROM teams WHERE name = ?)`, accountName, groupName)
	if err != nil {
		return fmt.Errorf("unlink %s from %s: %w", accountName, groupName, err)
	}
	return nil
}

// ListMemberships returns every membership ordered by id.
func (s *BunStore) ListMemberships(ctx context.Context) ([]model.Membership, error) {
	var mms []MembershipModel
	if err := s.db.NewSelect().Model(&mms).OrderExpr("m.id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Membership, 0, len(mms))
	for _, mm := range mms {
		out = append(out, membershipModelToModel(mm))
	}
	return out, nil
}
