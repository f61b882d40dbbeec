// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the core data structures managed by Proctor.
package model // import "github.com/toeirei/proctor/internal/model"

import "fmt"

// Account is a person or machine that can log in to Proctor and owns
// public keys. Name is the account's URL-safe handle.
type Account struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Role           Role   `json:"role"`
	PasswordDigest string `json:"password_digest,omitempty"`
}

// OwnerID reports the account itself as its owner.
func (a Account) OwnerID() int { return a.ID }

// String returns the account name.
func (a Account) String() string { return a.Name }

// Credential is a public key registered by an account. Titles are unique
// per account, not globally.
type Credential struct {
	ID        int    `json:"id"`
	AccountID int    `json:"account_id"`
	Title     string `json:"title"`
	Key       string `json:"key"`
}

// OwnerID returns the id of the account that registered the key.
func (c Credential) OwnerID() int { return c.AccountID }

// FullTitle returns the "owner@title" form used in listings.
func (c Credential) FullTitle(owner string) string {
	return fmt.Sprintf("%s@%s", owner, c.Title)
}

// Group is a named set of accounts (a "team" in the HTTP API).
type Group struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Membership links one account to one group.
type Membership struct {
	ID        int `json:"id"`
	AccountID int `json:"account_id"`
	GroupID   int `json:"group_id"`
}

// GroupCredential is a credential reached through group membership,
// annotated with the owning account's name.
type GroupCredential struct {
	Credential
	Owner string `json:"owner"`
}
