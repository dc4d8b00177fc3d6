// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/renpak/cmd/renpak/cli"
	"github.com/bureau-foundation/renpak/lib/version"
)

// rootCommand builds the renpak command tree.
func rootCommand(env environment) *cli.Command {
	return &cli.Command{
		Name: "renpak",
		Description: `renpak: shrink Ren'Py RPA archives.

Re-encodes images and numbered frame sequences inside an RPA-3.0
archive and embeds a manifest that maps every original name to its
recoded payload. Everything else is copied byte for byte.`,
		Output: env.stderr,
		Subcommands: []*cli.Command{
			buildCommand(env),
			infoCommand(env),
			analyzeCommand(env),
			manifestCommand(env),
			payloadCommand(env),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(context.Context, []string) error {
					fmt.Fprintf(env.stdout, "renpak %s\n", version.Full())
					return nil
				},
			},
		},
	}
}

// requireArgs checks the positional argument count.
func requireArgs(args []string, want int, usage string) error {
	if len(args) != want {
		return &cli.UsageError{Message: fmt.Sprintf("expected %d argument(s), got %d\n\nUsage:\n  %s", want, len(args), usage)}
	}
	return nil
}
