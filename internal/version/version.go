/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version carries build time version information.
package version

import "fmt"

// Version is the current version of Tournesol.
// This is set at build time via ldflags:
//
//	-X github.com/friendsincode/tournesol/internal/version.Version=X.Y.Z
var Version = "0.0.0-dev"

// Commit is the git commit the binary was built from, also set via ldflags.
var Commit = "unknown"

// String renders version and commit for logs and --version output.
func String() string {
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
