// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

// package auth authenticates requests and decides what the resolved
// identity may do.
//
// A Guard turns basic-auth credentials into an Identity, which travels in
// the request's context. RequireRole gates routes by role and CanUse checks
// ownership of individual resources.
package auth // import "github.com/toeirei/proctor/internal/auth"

import (
	"context"

	"github.com/toeirei/proctor/internal/model"
)

// Kind distinguishes stored accounts from the configured system
// administrator.
type Kind int

const (
	// KindPersisted identities are backed by an account row.
	KindPersisted Kind = iota
	// KindSystem is the transient administrator from process configuration.
	// It never exists in the store.
	KindSystem
)

func (k Kind) String() string {
	if k == KindSystem {
		return "system"
	}
	return "persisted"
}

// Identity is the principal a request acts as. It is resolved once per
// request and never modified afterwards.
type Identity struct {
	Kind Kind
	Name string
	Role model.Role
	// AccountID is the backing account's id; zero for KindSystem.
	AccountID int
}

// Persisted returns the identity of a stored account.
func Persisted(a model.Account) Identity {
	return Identity{Kind: KindPersisted, Name: a.Name, Role: a.Role, AccountID: a.ID}
}

// System returns the transient administrator identity.
func System(name string) Identity {
	return Identity{Kind: KindSystem, Name: name, Role: model.RoleAdmin}
}

// IsSystem reports whether i is the configured system administrator.
func (i Identity) IsSystem() bool { return i.Kind == KindSystem }

// Satisfies reports whether the identity's role meets the requirement.
func (i Identity) Satisfies(required ...model.Role) bool {
	return i.Role.Satisfies(required...)
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity attached to ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
