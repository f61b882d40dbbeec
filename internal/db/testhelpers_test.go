// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/toeirei/proctor/internal/model"
	"github.com/toeirei/proctor/internal/security"
)

var testStoreSeq atomic.Int64

// newTestStore opens a fresh in-memory sqlite store that is closed when the
// test ends. Each call gets its own database.
func newTestStore(t *testing.T) *BunStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), testStoreSeq.Add(1))
	s, err := New("sqlite", dsn, WithHasher(security.NewHasher(bcrypt.MinCost)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCreateAccount(t *testing.T, s *BunStore, name string, role model.Role) *model.Account {
	t.Helper()
	a := &model.Account{Name: name, Role: role}
	if err := s.CreateAccount(context.Background(), a, "secret"); err != nil {
		t.Fatalf("CreateAccount(%s) failed: %v", name, err)
	}
	return a
}

func mustCreateCredential(t *testing.T, s *BunStore, accountID int, title string) *model.Credential {
	t.Helper()
	c := &model.Credential{AccountID: accountID, Title: title, Key: "ssh-ed25519 AAAA" + title}
	if err := s.CreateCredential(context.Background(), c); err != nil {
		t.Fatalf("CreateCredential(%s) failed: %v", title, err)
	}
	return c
}

// requireValidation fails unless err is a ValidationError containing the
// given field and code.
func requireValidation(t *testing.T, err error, field, code string) {
	t.Helper()
	var v model.ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !v.Has(field, code) {
		t.Fatalf("expected %s/%s in %v", field, code, v)
	}
}

func countGroups(t *testing.T, s *BunStore) int {
	t.Helper()
	groups, err := s.ListGroups(context.Background())
	if err != nil {
		t.Fatalf("ListGroups failed: %v", err)
	}
	return len(groups)
}

func countMemberships(t *testing.T, s *BunStore) int {
	t.Helper()
	ms, err := s.ListMemberships(context.Background())
	if err != nil {
		t.Fatalf("ListMemberships failed: %v", err)
	}
	return len(ms)
}
