// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/toeirei/proctor/internal/db"
	"github.com/toeirei/proctor/internal/logging"
	"github.com/toeirei/proctor/internal/model"
	"github.com/toeirei/proctor/internal/security"
)

var (
	// ErrUnauthenticated means no identity could be resolved.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the identity may not perform the action.
	ErrForbidden = errors.New("forbidden")
)

// AccountFinder looks up accounts by exact name. It returns db.ErrNotFound
// when no account matches.
type AccountFinder interface {
	FindAccountByName(ctx context.Context, name string) (*model.Account, error)
}

// SystemAdmin is the administrator identity taken from configuration. It
// is only usable when both fields are set.
type SystemAdmin struct {
	Username string
	Password security.Secret
}

// Enabled reports whether the fallback identity can ever match.
func (s SystemAdmin) Enabled() bool {
	return s.Username != "" && !s.Password.IsEmpty()
}

// Guard resolves request credentials to an Identity. All fields are set in
// NewGuard and only read afterwards, so one Guard serves any number of
// concurrent requests.
type Guard struct {
	store  AccountFinder
	hasher security.Hasher

	systemName   string
	systemDigest string
	// dummyDigest is verified against for unknown names so they cost the
	// same as a wrong password.
	dummyDigest string
}

// NewGuard builds a Guard. The system administrator password is hashed
// here, once, with the same hasher used for stored accounts.
func NewGuard(store AccountFinder, hasher security.Hasher, system SystemAdmin) (*Guard, error) {
	if store == nil {
		return nil, errors.New("auth: nil account store")
	}
	g := &Guard{store: store, hasher: hasher}

	dummy, err := hasher.Hash("proctor-unknown-account")
	if err != nil {
		return nil, fmt.Errorf("auth: hash dummy password: %w", err)
	}
	g.dummyDigest = dummy

	if system.Enabled() {
		digest, err := hasher.Hash(system.Password.Reveal())
		if err != nil {
			return nil, fmt.Errorf("auth: hash system administrator password: %w", err)
		}
		g.systemName = system.Username
		g.systemDigest = digest
	}
	return g, nil
}

// Authenticate resolves username and password to an identity. Stored
// accounts take precedence over the system administrator. Every failure,
// including store errors, yields ErrUnauthenticated.
func (g *Guard) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	acc, err := g.store.FindAccountByName(ctx, username)
	switch {
	case err == nil:
		if g.hasher.Verify(password, acc.PasswordDigest) {
			return Persisted(*acc), nil
		}
		return Identity{}, ErrUnauthenticated
	case !errors.Is(err, db.ErrNotFound):
		logging.Errorf("auth: account lookup for %q failed: %v", username, err)
		return Identity{}, ErrUnauthenticated
	}

	if g.isSystemName(username) {
		if g.hasher.Verify(password, g.systemDigest) {
			return System(g.systemName), nil
		}
		return Identity{}, ErrUnauthenticated
	}

	g.hasher.Verify(password, g.dummyDigest)
	return Identity{}, ErrUnauthenticated
}

func (g *Guard) isSystemName(username string) bool {
	if g.systemDigest == "" || username == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(username), []byte(g.systemName)) == 1
}
