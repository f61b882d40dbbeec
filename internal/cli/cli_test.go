// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/toeirei/proctor/internal/api"
	"github.com/toeirei/proctor/internal/auth"
	"github.com/toeirei/proctor/internal/db"
	"github.com/toeirei/proctor/internal/model"
	"github.com/toeirei/proctor/internal/security"
)

// setupEnv isolates configuration lookup and points the database at a
// fresh sqlite file. It returns the DSN.
func setupEnv(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	dsn := filepath.Join(tmp, "proctor.db")
	t.Setenv("PROCTOR_DATABASE_TYPE", "sqlite")
	t.Setenv("PROCTOR_DATABASE_DSN", dsn)
	t.Setenv("PROCTOR_BCRYPT_COST", "4")
	t.Setenv("PROCTOR_LOG_LEVEL", "error")
	return dsn
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func openTestStore(t *testing.T, dsn string) *db.BunStore {
	t.Helper()
	store, err := db.New("sqlite", dsn, db.WithHasher(security.NewHasher(bcrypt.MinCost)))
	if err != nil {
		t.Fatalf("db.New failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSeedCreatesAdminOnce(t *testing.T) {
	dsn := setupEnv(t)
	t.Setenv("PROCTOR_ADMIN_USERNAME", "root")
	t.Setenv("PROCTOR_ADMIN_PASSWORD", "toor")

	out, err := runCLI(t, "", "seed")
	if err != nil {
		t.Fatalf("seed failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "==> Creating admin user: root!") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = runCLI(t, "", "seed")
	if err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	if strings.Contains(out, "Creating") {
		t.Fatalf("second seed must not create an account: %q", out)
	}

	store := openTestStore(t, dsn)
	acc, err := store.FindAccountByName(context.Background(), "root")
	if err != nil {
		t.Fatalf("admin not stored: %v", err)
	}
	if acc.Role != model.RoleAdmin || !security.NewHasher(0).Verify("toor", acc.PasswordDigest) {
		t.Fatalf("unexpected admin %+v", acc)
	}
	if n, _ := store.CountAccounts(context.Background()); n != 1 {
		t.Fatalf("expected exactly one account, got %d", n)
	}
}

func TestSeedReadsPasswordFromStdin(t *testing.T) {
	dsn := setupEnv(t)

	if _, err := runCLI(t, "hunter2\n", "seed", "--username", "alice"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	acc, err := openTestStore(t, dsn).FindAccountByName(context.Background(), "alice")
	if err != nil {
		t.Fatalf("admin not stored: %v", err)
	}
	if !security.NewHasher(0).Verify("hunter2", acc.PasswordDigest) {
		t.Fatalf("password from stdin not used")
	}
}

func TestSeedRequiresUsername(t *testing.T) {
	setupEnv(t)
	if _, err := runCLI(t, "", "seed"); err == nil {
		t.Fatalf("expected error without a username")
	}
}

func TestInvalidConfiguration(t *testing.T) {
	setupEnv(t)
	t.Setenv("PROCTOR_DATABASE_TYPE", "oracle")
	if _, err := runCLI(t, "", "migrate"); err == nil {
		t.Fatalf("expected error for an unsupported database type")
	}
}

func TestMigrateCopiesToTarget(t *testing.T) {
	dsn := setupEnv(t)
	ctx := context.Background()
	src := openTestStore(t, dsn)
	acc := &model.Account{Name: "batman", Role: model.RoleUser}
	if err := src.CreateAccount(ctx, acc, "secret"); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if _, err := src.Link(ctx, "batman", "jla"); err != nil {
		t.Fatalf("Link failed: %v", err)
	}

	target := filepath.Join(t.TempDir(), "target.db")
	out, err := runCLI(t, "", "migrate", "--target-type", "sqlite", "--target-dsn", target)
	if err != nil {
		t.Fatalf("migrate failed: %v\n%s", err, out)
	}

	dst := openTestStore(t, target)
	groups, err := dst.ListGroups(ctx)
	if err != nil || len(groups) != 1 || groups[0].Name != "jla" {
		t.Fatalf("team not copied: %v %v", groups, err)
	}
	members, err := dst.GroupAccounts(ctx, groups[0].ID)
	if err != nil || len(members) != 1 || members[0].Name != "batman" {
		t.Fatalf("membership not copied: %v %v", members, err)
	}
}

func TestMigrateRequiresBothTargetFlags(t *testing.T) {
	setupEnv(t)
	if _, err := runCLI(t, "", "migrate", "--target-type", "sqlite"); err == nil {
		t.Fatalf("expected error for a partial target")
	}
}

func TestBackupAndRestore(t *testing.T) {
	dsn := setupEnv(t)
	ctx := context.Background()
	src := openTestStore(t, dsn)
	acc := &model.Account{Name: "batman", Role: model.RoleUser}
	if err := src.CreateAccount(ctx, acc, "secret"); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if err := src.CreateCredential(ctx, &model.Credential{AccountID: acc.ID, Title: "laptop", Key: "ssh-ed25519 AAAA"}); err != nil {
		t.Fatalf("CreateCredential failed: %v", err)
	}

	file := filepath.Join(t.TempDir(), "backup.json")
	if out, err := runCLI(t, "", "backup", file); err != nil {
		t.Fatalf("backup failed: %v\n%s", err, out)
	}
	if _, err := os.Stat(file + ".zst"); err != nil {
		t.Fatalf("expected %s.zst: %v", file, err)
	}

	// Restore into a different, empty database.
	restored := filepath.Join(t.TempDir(), "restored.db")
	t.Setenv("PROCTOR_DATABASE_DSN", restored)
	if out, err := runCLI(t, "", "restore", "--full", file+".zst"); err != nil {
		t.Fatalf("restore failed: %v\n%s", err, out)
	}
	dst := openTestStore(t, restored)
	got, err := dst.FindAccountByName(ctx, "batman")
	if err != nil || got.ID != acc.ID {
		t.Fatalf("account not restored with its id: %+v %v", got, err)
	}
	if _, err := dst.FindCredential(ctx, got.ID, "laptop"); err != nil {
		t.Fatalf("credential not restored: %v", err)
	}

	// Integrating the same backup again adds nothing.
	if out, err := runCLI(t, "", "restore", file+".zst"); err != nil {
		t.Fatalf("integrate failed: %v\n%s", err, out)
	}
	if n, _ := dst.CountAccounts(ctx); n != 1 {
		t.Fatalf("expected 1 account after integrate, got %d", n)
	}
}

func TestRestoreMissingFile(t *testing.T) {
	setupEnv(t)
	if _, err := runCLI(t, "", "restore", filepath.Join(t.TempDir(), "nope.zst")); err == nil {
		t.Fatalf("expected error for a missing backup")
	}
}

func TestAccountsCommand(t *testing.T) {
	dsn := setupEnv(t)
	out, err := runCLI(t, "", "accounts")
	if err != nil {
		t.Fatalf("accounts failed: %v", err)
	}
	if !strings.Contains(out, "No accounts found.") {
		t.Fatalf("unexpected output for empty db: %q", out)
	}

	ctx := context.Background()
	store := openTestStore(t, dsn)
	acc := &model.Account{Name: "batman", Role: model.RoleAdmin}
	if err := store.CreateAccount(ctx, acc, "secret"); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	for _, title := range []string{"laptop", "desktop"} {
		if err := store.CreateCredential(ctx, &model.Credential{AccountID: acc.ID, Title: title, Key: "k"}); err != nil {
			t.Fatalf("CreateCredential failed: %v", err)
		}
	}

	out, err = runCLI(t, "", "accounts")
	if err != nil {
		t.Fatalf("accounts failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", out)
	}
	fields := strings.Fields(lines[1])
	if len(fields) != 3 || fields[0] != "batman" || fields[1] != "admin" || fields[2] != "2" {
		t.Fatalf("unexpected row %q", lines[1])
	}
}

func TestDBMaintain(t *testing.T) {
	dsn := setupEnv(t)
	openTestStore(t, dsn)
	out, err := runCLI(t, "", "db-maintain", "--timeout", "30")
	if err != nil {
		t.Fatalf("db-maintain failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Database maintenance completed") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestConfigWriteAndShow(t *testing.T) {
	setupEnv(t)
	t.Setenv("PROCTOR_ADMIN_USERNAME", "root")
	t.Setenv("PROCTOR_ADMIN_PASSWORD", "toor")

	out, err := runCLI(t, "", "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if strings.Contains(out, "toor") || !strings.Contains(out, "root") {
		t.Fatalf("password must be redacted: %q", out)
	}

	path := filepath.Join(t.TempDir(), "proctor.yaml")
	if _, err := runCLI(t, "", "config", "write", "--path", path); err != nil {
		t.Fatalf("config write failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read written config: %v", err)
	}
	if !strings.Contains(string(data), "toor") {
		t.Fatalf("written config must keep the password so it can be loaded again")
	}
}

func TestVersionCommand(t *testing.T) {
	setupEnv(t)
	out, err := runCLI(t, "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "version: ") || !strings.Contains(out, "commit: ") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSeedAdminSkipsWhenAccountsExist(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "seed.db"))
	ctx := context.Background()
	var out bytes.Buffer

	created, err := seedAdmin(ctx, store, "root", "toor", &out)
	if err != nil || !created {
		t.Fatalf("expected admin to be created, got %v %v", created, err)
	}
	created, err = seedAdmin(ctx, store, "other", "toor", &out)
	if err != nil || created {
		t.Fatalf("expected seeding to be skipped, got %v %v", created, err)
	}
}

func TestRunServerStopsOnCancel(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "serve.db"))
	hasher := security.NewHasher(bcrypt.MinCost)
	guard, err := auth.NewGuard(store, hasher, auth.SystemAdmin{})
	if err != nil {
		t.Fatalf("NewGuard failed: %v", err)
	}
	srv := api.NewServer(api.Config{}, store, guard)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv, l, time.Second) }()

	// The server answers before it is cancelled.
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err := net.Dial("tcp", l.Addr().String())
		if err == nil {
			_ = conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never accepted connections: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServer returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runServer did not stop")
	}
}
