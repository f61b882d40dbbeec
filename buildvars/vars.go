// Copyright (c) 2026 ToeiRei
// Proctor - SSH public key directory
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars contains variables injected at build time.
package buildvars

import "runtime/debug"

const modulePath = "github.com/toeirei/proctor"

// Set at link time, e.g.
// -ldflags "-X github.com/toeirei/proctor/buildvars.Version=v1.0.0".
var (
	Version = "dev"
	Commit  = "dev"
	Date    = ""
)

// Resolve computes the best-available version, commit and build date. If
// info is nil the build info of the running binary is used.
func Resolve(info *debug.BuildInfo) (version, commit, date string) {
	version, commit, date = Version, Commit, Date

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}
	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		// Some build paths only record the module as a dependency.
		if version == "dev" || version == "(devel)" {
			for _, dep := range info.Deps {
				if dep.Path == modulePath && dep.Version != "" {
					version = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					commit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					date = s.Value
				}
			}
		}
	}

	if version == "dev" && commit != "dev" && commit != "" {
		version = commit
	}
	return version, commit, date
}

// String renders Resolve(nil) on one line, as shown by --version.
func String() string {
	v, c, d := Resolve(nil)
	out := v
	if c != "" && c != "dev" && c != v {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}
