// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

// Package logging wraps charmbracelet/log with the small helper surface used
// across Proctor.
package logging

import (
	"fmt"
	"strings"

	clog "github.com/charmbracelet/log"
)

// SetLevel sets the minimum level of L from its name ("debug", "info",
// "warn", "error"). An empty name leaves the level unchanged.
func SetLevel(name string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	lvl, err := clog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return fmt.Errorf("unknown log level %q", name)
	}
	L.SetLevel(lvl)
	return nil
}

// SetDebug enables or disables debug logging.
func SetDebug(enabled bool) {
	if enabled {
		L.SetLevel(clog.DebugLevel)
		return
	}
	L.SetLevel(clog.InfoLevel)
}

// SetJSON switches L between the human readable text formatter and JSON
// lines, which are easier to ship to a log collector.
func SetJSON(enabled bool) {
	if enabled {
		L.SetFormatter(clog.JSONFormatter)
		return
	}
	L.SetFormatter(clog.TextFormatter)
}
