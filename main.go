// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Proctor.
//
// Usage:
//
//	go run . serve
//	./proctor [command] [flags]
//
// See --help for the available commands.
package main

import (
	"os"

	"github.com/toeirei/proctor/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
