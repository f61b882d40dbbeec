// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package api

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/ssh"

	"github.com/toeirei/proctor/internal/auth"
	"github.com/toeirei/proctor/internal/db"
	"github.com/toeirei/proctor/internal/model"
	"github.com/toeirei/proctor/internal/security"
)

const testPassword = "secret"

var storeSeq atomic.Int64

type testEnv struct {
	t       *testing.T
	store   *db.BunStore
	server  *Server
	handler http.Handler

	// user and password sent with every request.
	user, password string
	userSeq        int
}

// newTestEnv starts an API backed by a fresh in-memory store and
// authenticates as a freshly created admin.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	hasher := security.NewHasher(bcrypt.MinCost)
	dsn := fmt.Sprintf("file:api_%s_%d?mode=memory&cache=shared", t.Name(), storeSeq.Add(1))
	store, err := db.New("sqlite", dsn, db.WithHasher(hasher))
	if err != nil {
		t.Fatalf("db.New failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	guard, err := auth.NewGuard(store, hasher, auth.SystemAdmin{Username: "root", Password: security.FromString("toor")})
	if err != nil {
		t.Fatalf("NewGuard failed: %v", err)
	}
	srv := NewServer(Config{Addr: "127.0.0.1:0"}, store, guard)
	env := &testEnv{t: t, store: store, server: srv, handler: srv.Handler()}
	env.authorize(env.createUser("", model.RoleAdmin))
	return env
}

// createUser stores an account with testPassword. An empty name picks a
// unique one.
func (e *testEnv) createUser(name string, role model.Role) *model.Account {
	e.t.Helper()
	if name == "" {
		e.userSeq++
		name = fmt.Sprintf("%s-%d", role, e.userSeq)
	}
	a := &model.Account{Name: name, Role: role}
	if err := e.store.CreateAccount(context.Background(), a, testPassword); err != nil {
		e.t.Fatalf("CreateAccount(%s) failed: %v", name, err)
	}
	return a
}

func (e *testEnv) createPubkey(owner *model.Account, title, key string) {
	e.t.Helper()
	c := &model.Credential{AccountID: owner.ID, Title: title, Key: key}
	if err := e.store.CreateCredential(context.Background(), c); err != nil {
		e.t.Fatalf("CreateCredential failed: %v", err)
	}
}

func (e *testEnv) link(user, team string) {
	e.t.Helper()
	if _, err := e.store.Link(context.Background(), user, team); err != nil {
		e.t.Fatalf("Link failed: %v", err)
	}
}

// authorize switches the requesting identity to a.
func (e *testEnv) authorize(a *model.Account) {
	e.user, e.password = a.Name, testPassword
}

// authorizeRole switches to a new account with the given role.
func (e *testEnv) authorizeRole(role model.Role) {
	e.authorize(e.createUser("", role))
}

func (e *testEnv) do(method, path string, payload interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var body io.Reader
	switch p := payload.(type) {
	case nil:
	case string:
		body = strings.NewReader(p)
	default:
		buf, err := json.Marshal(p)
		if err != nil {
			e.t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, body)
	if e.user != "" {
		req.SetBasicAuth(e.user, e.password)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func assertLocation(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if got := rec.Header().Get("Location"); !strings.HasSuffix(got, want) {
		t.Fatalf("Location = %q, want suffix %q", got, want)
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// authorizedKey returns a freshly generated ed25519 key in authorized_keys
// format, without the trailing newline.
func authorizedKey(t *testing.T, comment string) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("ssh public key: %v", err)
	}
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub))) + " " + comment
}
