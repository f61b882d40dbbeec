// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/toeirei/proctor/internal/model"
	"github.com/toeirei/proctor/internal/security"
)

func TestCreateAccount_HashesPassword(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreateAccount(t, s, "batman", model.RoleUser)
	if a.ID == 0 {
		t.Fatalf("expected id to be set")
	}

	got, err := s.FindAccountByName(ctx, "batman")
	if err != nil {
		t.Fatalf("FindAccountByName failed: %v", err)
	}
	if got.PasswordDigest == "" || got.PasswordDigest == "secret" {
		t.Fatalf("expected bcrypt digest, got %q", got.PasswordDigest)
	}
	if !(security.Hasher{}).Verify("secret", got.PasswordDigest) {
		t.Fatalf("stored digest does not verify")
	}
	if got.Role != model.RoleUser {
		t.Fatalf("unexpected role %q", got.Role)
	}
}

func TestCreateAccount_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateAccount(t, s, "batman", model.RoleUser)

	err := s.CreateAccount(ctx, &model.Account{Name: "batman", Role: model.RoleUser}, "secret")
	requireValidation(t, err, "name", model.CodeTaken)

	err = s.CreateAccount(ctx, &model.Account{Name: "Bat Man", Role: model.RoleUser}, "secret")
	requireValidation(t, err, "name", model.CodeSlug)

	err = s.CreateAccount(ctx, &model.Account{Name: "robin", Role: "root"}, "secret")
	requireValidation(t, err, "role", model.CodeRole)

	err = s.CreateAccount(ctx, &model.Account{Name: "robin", Role: model.RoleGuest}, "")
	requireValidation(t, err, "password", model.CodeBlank)

	err = s.CreateAccount(ctx, &model.Account{Name: "robin", Role: model.RoleGuest}, strings.Repeat("x", 73))
	requireValidation(t, err, "password", model.CodeTooLong)

	n, err := s.CountAccounts(ctx)
	if err != nil {
		t.Fatalf("CountAccounts failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 account after rejected inserts, got %d", n)
	}
}

func TestFindAccount_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.FindAccountByName(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.FindAccountByID(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindAccount_ExactMatch(t *testing.T) {
	s := newTestStore(t)
	mustCreateAccount(t, s, "batman", model.RoleUser)
	if _, err := s.FindAccountByName(context.Background(), "bat"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("prefix must not match, got %v", err)
	}
}

func TestListAccounts_OrderedByName(t *testing.T) {
	s := newTestStore(t)
	for _, n := range []string{"robin", "alfred", "batman"} {
		mustCreateAccount(t, s, n, model.RoleUser)
	}
	accs, err := s.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	var names []string
	for _, a := range accs {
		names = append(names, a.Name)
	}
	if strings.Join(names, ",") != "alfred,batman,robin" {
		t.Fatalf("unexpected order: %v", names)
	}
}

func TestUpdateAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustCreateAccount(t, s, "batman", model.RoleUser)
	mustCreateAccount(t, s, "robin", model.RoleUser)
	oldDigest := a.PasswordDigest

	a.Name = "robin"
	requireValidation(t, s.UpdateAccount(ctx, a, ""), "name", model.CodeTaken)

	a.Name = "bruce"
	a.Role = model.RoleAdmin
	if err := s.UpdateAccount(ctx, a, ""); err != nil {
		t.Fatalf("UpdateAccount failed: %v", err)
	}
	got, err := s.FindAccountByName(ctx, "bruce")
	if err != nil {
		t.Fatalf("renamed account not found: %v", err)
	}
	if got.Role != model.RoleAdmin || got.PasswordDigest != oldDigest {
		t.Fatalf("unexpected account after update: %+v", got)
	}

	if err := s.UpdateAccount(ctx, a, "new-secret"); err != nil {
		t.Fatalf("UpdateAccount with password failed: %v", err)
	}
	got, _ = s.FindAccountByName(ctx, "bruce")
	if !(security.Hasher{}).Verify("new-secret", got.PasswordDigest) {
		t.Fatalf("password was not replaced")
	}

	missing := &model.Account{ID: 999, Name: "ghost", Role: model.RoleUser}
	if err := s.UpdateAccount(ctx, missing, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAccount_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustCreateAccount(t, s, "batman", model.RoleUser)
	mustCreateCredential(t, s, a.ID, "laptop")
	if _, err := s.Link(ctx, "batman", "justice-league"); err != nil {
		t.Fatalf("Link failed: %v", err)
	}

	if err := s.DeleteAccount(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	if _, err := s.FindAccountByName(ctx, "batman"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("account still present: %v", err)
	}
	creds, err := s.ListCredentials(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListCredentials failed: %v", err)
	}
	if len(creds) != 0 {
		t.Fatalf("credentials not deleted: %v", creds)
	}
	if n := countMemberships(t, s); n != 0 {
		t.Fatalf("memberships not deleted: %d", n)
	}
	// The group itself survives.
	if n := countGroups(t, s); n != 1 {
		t.Fatalf("expected group to remain, got %d groups", n)
	}

	if err := s.DeleteAccount(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
