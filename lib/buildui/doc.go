// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package buildui is the interactive terminal view for `renpak build
// --tui`.
//
// [Model] is a bubbletea model that renders pipeline progress snapshots
// as a progress bar with per-state job counts and the most recent
// warnings. [LogHandler] routes slog records into the running program
// so log output does not tear the display. [Run] wires a build function
// to a program and returns the build's own result; pressing q or ctrl+c
// cancels the build and the view stays up until the build has stopped.
package buildui
