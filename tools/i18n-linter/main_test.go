// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFlattenYAML(t *testing.T) {
	keys := make(map[string]struct{})
	flattenYAML("", map[string]interface{}{
		"top":       map[string]interface{}{"sub": "value"},
		"flat.key":  "v",
		"other.key": "v",
	}, keys)
	for _, want := range []string{"top.sub", "flat.key", "other.key"} {
		if _, ok := keys[want]; !ok {
			t.Fatalf("expected %s in %v", want, keys)
		}
	}
}

func TestLint(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "internal", "api", "a.go"), `package api
func f() {
	_ = i18n.T("http.hello")
	writeMessages(w, 404, "http.not_found")
	_ = i18n.T("seed.creating", name)
}`)
	writeFile(t, filepath.Join(root, "internal", "api", "a_test.go"), `package api
var _ = i18n.T("test.only")`)
	writeFile(t, filepath.Join(root, localesDir, "en.yaml"), `http.hello: "Hello world!"
http.not_found: "not found"
validation.blank: "{{.Field}} can't be blank"
unused.key: "nobody"
`)
	writeFile(t, filepath.Join(root, localesDir, "de.yaml"), `http.hello: "Hallo Welt!"
validation.blank: "{{.Field}} darf nicht leer sein"
unused.key: "niemand"
`)

	r, err := lint(root)
	if err != nil {
		t.Fatalf("lint failed: %v", err)
	}
	if len(r.Undefined) != 1 || r.Undefined[0] != "seed.creating" {
		t.Fatalf("unexpected undefined keys %v", r.Undefined)
	}
	if missing := r.Missing["de.yaml"]; len(missing) != 1 || missing[0] != "http.not_found" {
		t.Fatalf("unexpected missing keys %v", r.Missing)
	}
	if len(r.Orphaned) != 1 || r.Orphaned[0] != "unused.key" {
		t.Fatalf("unexpected orphaned keys %v", r.Orphaned)
	}
	if !r.failed() {
		t.Fatalf("expected the run to fail")
	}
}

func TestLintMissingPrimaryLocale(t *testing.T) {
	if _, err := lint(t.TempDir()); err == nil {
		t.Fatalf("expected error without %s", primaryLocale)
	}
}
