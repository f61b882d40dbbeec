// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"github.com/uptrace/bun"

	"github.com/toeirei/proctor/internal/model"
)

// AccountModel is the bun mapping of the accounts table.
type AccountModel struct {
	bun.BaseModel  `bun:"table:accounts,alias:a"`
	ID             int    `bun:"id,pk,autoincrement"`
	Name           string `bun:"name"`
	Role           string `bun:"role"`
	PasswordDigest string `bun:"password_digest"`
}

// CredentialModel is the bun mapping of the credentials table. The key
// column is called public_key because KEY is reserved in MySQL.
type CredentialModel struct {
	bun.BaseModel `bun:"table:credentials,alias:c"`
	ID            int    `bun:"id,pk,autoincrement"`
	AccountID     int    `bun:"account_id"`
	Title         string `bun:"title"`
	PublicKey     string `bun:"public_key"`
}

// TeamModel is the bun mapping of the teams table, which stores groups.
type TeamModel struct {
	bun.BaseModel `bun:"table:teams,alias:t"`
	ID            int    `bun:"id,pk,autoincrement"`
	Name          string `bun:"name"`
}

// MembershipModel is the bun mapping of the memberships table.
type MembershipModel struct {
	bun.BaseModel `bun:"table:memberships,alias:m"`
	ID            int `bun:"id,pk,autoincrement"`
	AccountID     int `bun:"account_id"`
	TeamID        int `bun:"team_id"`
}

// groupCredentialRow receives the credentials-of-a-group join.
type groupCredentialRow struct {
	ID        int    `bun:"id"`
	AccountID int    `bun:"account_id"`
	Title     string `bun:"title"`
	PublicKey string `bun:"public_key"`
	Owner     string `bun:"owner"`
}

func accountModelToModel(m AccountModel) model.Account {
	return model.Account{
		ID:             m.ID,
		Name:           m.Name,
		Role:           model.Role(m.Role),
		PasswordDigest: m.PasswordDigest,
	}
}

func accountToModel(a model.Account) AccountModel {
	return AccountModel{
		ID:             a.ID,
		Name:           a.Name,
		Role:           string(a.Role),
		PasswordDigest: a.PasswordDigest,
	}
}

func credentialModelToModel(m CredentialModel) model.Credential {
	return model.Credential{
		ID:        m.ID,
		AccountID: m.AccountID,
		Title:     m.Title,
		Key:       m.PublicKey,
	}
}

func credentialToModel(c model.Credential) CredentialModel {
	return CredentialModel{
		ID:        c.ID,
		AccountID: c.AccountID,
		Title:     c.Title,
		PublicKey: c.Key,
	}
}

func teamModelToModel(m TeamModel) model.Group {
	return model.Group{ID: m.ID, Name: m.Name}
}

func membershipModelToModel(m MembershipModel) model.Membership {
	return model.Membership{ID: m.ID, AccountID: m.AccountID, GroupID: m.TeamID}
}

func groupCredentialRowToModel(r groupCredentialRow) model.GroupCredential {
	return model.GroupCredential{
		Credential: model.Credential{
			ID:        r.ID,
			AccountID: r.AccountID,
			Title:     r.Title,
			Key:       r.PublicKey,
		},
		Owner: r.Owner,
	}
}
