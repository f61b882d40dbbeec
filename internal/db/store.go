// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"

	"github.com/toeirei/proctor/internal/model"
)

// AccountStore covers account persistence. Passwords are passed in plain
// text and stored only as digests.
type AccountStore interface {
	ListAccounts(ctx context.Context) ([]model.Account, error)
	CountAccounts(ctx context.Context) (int, error)
	FindAccountByName(ctx context.Context, name string) (*model.Account, error)
	FindAccountByID(ctx context.Context, id int) (*model.Account, error)
	CreateAccount(ctx context.Context, a *model.Account, password string) error
	// UpdateAccount stores a's name and role. A non-empty password replaces
	// the stored digest.
	UpdateAccount(ctx context.Context, a *model.Account, password string) error
	DeleteAccount(ctx context.Context, id int) error
}

// CredentialStore covers public key persistence.
type CredentialStore interface {
	ListCredentials(ctx context.Context, accountID int) ([]model.Credential, error)
	FindCredential(ctx context.Context, accountID int, title string) (*model.Credential, error)
	CreateCredential(ctx context.Context, c *model.Credential) error
	UpdateCredential(ctx context.Context, c *model.Credential) error
	DeleteCredential(ctx context.Context, id int) error
}

// GroupStore covers groups and the queries that join through memberships.
type GroupStore interface {
	ListGroups(ctx context.Context) ([]model.Group, error)
	FindGroupByName(ctx context.Context, name string) (*model.Group, error)
	CreateGroup(ctx context.Context, g *model.Group) error
	UpdateGroup(ctx context.Context, g *model.Group) error
	DeleteGroup(ctx context.Context, id int) error
	GroupAccounts(ctx context.Context, groupID int) ([]model.Account, error)
	GroupCredentials(ctx context.Context, groupID int) ([]model.GroupCredential, error)
	AccountGroups(ctx context.Context, accountID int) ([]model.Group, error)
}

// MembershipStore links accounts to groups by name.
type MembershipStore interface {
	// Link adds the named account to the named group, creating the group if
	// needed. A missing account yields a model.ValidationError and leaves the
	// store untouched. Linking an existing pair returns that membership.
	Link(ctx context.Context, accountName, groupName string) (*model.Membership, error)
	// Unlink removes the membership if it exists. Missing accounts, groups or
	// memberships are not an error.
	Unlink(ctx context.Context, accountName, groupName string) error
	ListMemberships(ctx context.Context) ([]model.Membership, error)
}

// BackupStore exports and imports the whole directory.
type BackupStore interface {
	ExportDataForBackup(ctx context.Context) (*model.BackupData, error)
	// ImportDataFromBackup replaces every table with the backup's rows.
	ImportDataFromBackup(ctx context.Context, data *model.BackupData) error
	// IntegrateDataFromBackup merges the backup into the existing data,
	// skipping rows whose natural key already exists.
	IntegrateDataFromBackup(ctx context.Context, data *model.BackupData) error
}

// Store defines the interface for all database operations in Proctor.
// This allows for multiple database backends to be implemented.
type Store interface {
	AccountStore
	CredentialStore
	GroupStore
	MembershipStore
	BackupStore
	Close() error
}

var _ Store = (*BunStore)(nil)
