// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"testing"

	"github.com/toeirei/proctor/internal/model"
)

func seedDirectory(t *testing.T, s *BunStore) {
	t.Helper()
	batman := mustCreateAccount(t, s, "batman", model.RoleAdmin)
	robin := mustCreateAccount(t, s, "robin", model.RoleUser)
	mustCreateCredential(t, s, batman.ID, "laptop")
	mustCreateCredential(t, s, robin.ID, "phone")
	for _, name := range []string{"batman", "robin"} {
		if _, err := s.Link(context.Background(), name, "bat-family"); err != nil {
			t.Fatalf("Link failed: %v", err)
		}
	}
}

func TestBackup_FullRoundTrip(t *testing.T) {
	src := newTestStore(t)
	seedDirectory(t, src)
	ctx := context.Background()

	data, err := src.ExportDataForBackup(ctx)
	if err != nil {
		t.Fatalf("ExportDataForBackup failed: %v", err)
	}
	if data.SchemaVersion != model.BackupSchemaVersion {
		t.Fatalf("unexpected schema version %d", data.SchemaVersion)
	}
	if len(data.Accounts) != 2 || len(data.Credentials) != 2 || len(data.Groups) != 1 || len(data.Memberships) != 2 {
		t.Fatalf("unexpected export sizes: %+v", data)
	}

	dst := newTestStore(t)
	mustCreateAccount(t, dst, "joker", model.RoleUser)
	if err := dst.ImportDataFromBackup(ctx, data); err != nil {
		t.Fatalf("ImportDataFromBackup failed: %v", err)
	}

	if _, err := dst.FindAccountByName(ctx, "joker"); err == nil {
		t.Fatalf("full import must replace existing rows")
	}
	got, err := dst.FindAccountByName(ctx, "batman")
	if err != nil {
		t.Fatalf("imported account missing: %v", err)
	}
	if got.PasswordDigest != data.Accounts[0].PasswordDigest {
		t.Fatalf("password digest not preserved")
	}
	g, err := dst.FindGroupByName(ctx, "bat-family")
	if err != nil {
		t.Fatalf("imported group missing: %v", err)
	}
	creds, err := dst.GroupCredentials(ctx, g.ID)
	if err != nil || len(creds) != 2 {
		t.Fatalf("unexpected group credentials %+v (%v)", creds, err)
	}

	// Inserts after an import must not collide with imported ids.
	mustCreateAccount(t, dst, "alfred", model.RoleGuest)
}

func TestBackup_Integrate(t *testing.T) {
	src := newTestStore(t)
	seedDirectory(t, src)
	ctx := context.Background()
	data, err := src.ExportDataForBackup(ctx)
	if err != nil {
		t.Fatalf("ExportDataForBackup failed: %v", err)
	}

	dst := newTestStore(t)
	joker := mustCreateAccount(t, dst, "joker", model.RoleUser)
	mustCreateAccount(t, dst, "robin", model.RoleGuest)

	if err := dst.IntegrateDataFromBackup(ctx, data); err != nil {
		t.Fatalf("IntegrateDataFromBackup failed: %v", err)
	}
	// Running it twice must not duplicate anything.
	if err := dst.IntegrateDataFromBackup(ctx, data); err != nil {
		t.Fatalf("second IntegrateDataFromBackup failed: %v", err)
	}

	if _, err := dst.FindAccountByID(ctx, joker.ID); err != nil {
		t.Fatalf("existing account lost: %v", err)
	}
	robin, err := dst.FindAccountByName(ctx, "robin")
	if err != nil {
		t.Fatalf("robin missing: %v", err)
	}
	if robin.Role != model.RoleGuest {
		t.Fatalf("existing account was overwritten: %+v", robin)
	}
	creds, err := dst.ListCredentials(ctx, robin.ID)
	if err != nil || len(creds) != 1 || creds[0].Title != "phone" {
		t.Fatalf("credential not merged onto existing account: %+v (%v)", creds, err)
	}
	accs, _ := dst.ListAccounts(ctx)
	if len(accs) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(accs))
	}
	if n := countMemberships(t, dst); n != 2 {
		t.Fatalf("expected 2 memberships, got %d", n)
	}
}

func TestBackup_RejectsUnknownSchema(t *testing.T) {
	s := newTestStore(t)
	bad := &model.BackupData{SchemaVersion: 99}
	if err := s.ImportDataFromBackup(context.Background(), bad); err == nil {
		t.Fatalf("expected error for unknown schema version")
	}
	if err := s.IntegrateDataFromBackup(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil backup")
	}
}
