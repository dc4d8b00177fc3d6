// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports what build of renpak is running.
//
// Release builds inject [Version], [GitCommit], [GitDirty] and
// [BuildTime] with -ldflags -X:
//
//	go build -ldflags "-X github.com/bureau-foundation/renpak/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Development builds fall back to the module information embedded by
// the Go toolchain, so `go install` binaries still report something
// useful. [Generator] is the string stamped into every manifest.
package version
