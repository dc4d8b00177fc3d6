// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the renpak binary.
//
// A [Command] tree dispatches on the first positional argument, parses
// pflag flags declared through tagged parameter structs ([FlagsFromParams]),
// and prints structured help with typo suggestions for unknown commands
// and flags. Run functions receive a context that the binary cancels on
// SIGINT or SIGTERM.
//
// [Command.Changed] reports whether the user set a flag explicitly, which
// lets commands layer flags over configuration file values without a
// flag default silently overriding the file.
package cli
