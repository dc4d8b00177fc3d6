// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command renpak converts Ren'Py RPA-3.0 archives, re-encoding images
// and numbered frame sequences into compact recoded payloads and
// embedding the manifest the runtime needs to find them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/renpak/cmd/renpak/cli"
	"github.com/bureau-foundation/renpak/lib/failure"
)

func main() {
	os.Exit(run(os.Args[1:], environment{stdout: os.Stdout, stderr: os.Stderr}))
}

// environment is the process surface commands write to.
type environment struct {
	stdout io.Writer
	stderr io.Writer
}

// run executes the command line and returns the process exit code.
// SIGINT and SIGTERM cancel the running command's context.
func run(args []string, env environment) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return exitCode(rootCommand(env).Execute(ctx, args), env.stderr)
}

// exitCode reports err on stderr unless the command already did, and
// maps it to an exit status.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return failure.ExitOK
	}
	var exit *cli.ExitError
	if errors.As(err, &exit) {
		return exit.ExitCode()
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	var usage *cli.UsageError
	if errors.As(err, &usage) {
		return failure.ExitUsage
	}
	return failure.ExitCode(err)
}
