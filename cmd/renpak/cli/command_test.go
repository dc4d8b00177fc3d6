// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string
	root := &Command{
		Name: "renpak",
		Subcommands: []*Command{
			{Name: "version", Run: func(context.Context, []string) error { called = "version"; return nil }},
			{Name: "info", Run: func(context.Context, []string) error { called = "info"; return nil }},
		},
	}

	if err := root.Execute(context.Background(), []string{"info"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if called != "info" {
		t.Errorf("dispatched to %q, want info", called)
	}
}

func TestCommand_Execute_PassesContextAndArgs(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "marker")

	var gotArgs []string
	var gotValue any
	root := &Command{
		Name: "renpak",
		Subcommands: []*Command{{
			Name: "info",
			Run: func(ctx context.Context, args []string) error {
				gotValue = ctx.Value(key{})
				gotArgs = args
				return nil
			},
		}},
	}

	if err := root.Execute(ctx, []string{"info", "game/archive.rpa"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotValue != "marker" {
		t.Errorf("context value = %v", gotValue)
	}
	if len(gotArgs) != 1 || gotArgs[0] != "game/archive.rpa" {
		t.Errorf("args = %v", gotArgs)
	}
}

func TestCommand_Execute_UnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name:        "renpak",
		Subcommands: []*Command{{Name: "build"}, {Name: "analyze"}},
		Output:      &bytes.Buffer{},
	}

	err := root.Execute(context.Background(), []string{"biuld"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), `did you mean "build"`) {
		t.Errorf("error = %q", err)
	}
	var usage *UsageError
	if !errors.As(err, &usage) {
		t.Errorf("error %T is not a UsageError", err)
	}
}

func TestCommand_Execute_NoSubcommandPrintsHelp(t *testing.T) {
	var output bytes.Buffer
	root := &Command{
		Name:        "renpak",
		Summary:     "Recompress Ren'Py archives",
		Subcommands: []*Command{{Name: "build", Summary: "Convert an archive"}},
		Output:      &output,
	}

	if err := root.Execute(context.Background(), nil); err == nil {
		t.Fatal("expected an error without a command")
	}
	help := output.String()
	for _, want := range []string{"Recompress Ren'Py archives", "build", "Convert an archive", "renpak <command> --help"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestCommand_Execute_HelpFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"leading long", []string{"build", "--help"}},
		{"leading short", []string{"build", "-h"}},
		{"after positionals", []string{"build", "in.rpa", "out.rpa", "--help"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer
			ran := false
			var quality int
			root := &Command{
				Name:   "renpak",
				Output: &output,
				Subcommands: []*Command{{
					Name:    "build",
					Summary: "Convert an archive",
					Flags: func() *pflag.FlagSet {
						flagSet := pflag.NewFlagSet("build", pflag.ContinueOnError)
						flagSet.IntVarP(&quality, "quality", "q", 60, "encoder quality")
						return flagSet
					},
					Run: func(context.Context, []string) error { ran = true; return nil },
				}},
			}
			if err := root.Execute(context.Background(), tt.args); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if ran {
				t.Error("Run was called for a help request")
			}
			if !strings.Contains(output.String(), "--quality") {
				t.Errorf("help does not list flags:\n%s", output.String())
			}
		})
	}
}

func TestCommand_Execute_UnknownFlagSuggests(t *testing.T) {
	var workers int
	command := &Command{
		Name: "build",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("build", pflag.ContinueOnError)
			flagSet.IntVarP(&workers, "workers", "j", 0, "worker count")
			return flagSet
		},
		Run: func(context.Context, []string) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--wrokers", "4"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "did you mean --workers?") {
		t.Errorf("error = %q", err)
	}
}

func TestCommand_Changed(t *testing.T) {
	var params struct {
		Quality int  `flag:"quality,q" default:"60"`
		Speed   int  `flag:"speed,s" default:"8"`
		Quiet   bool `flag:"quiet"`
	}
	command := &Command{
		Name:  "build",
		Flags: func() *pflag.FlagSet { return FlagsFromParams("build", &params) },
		Run:   func(context.Context, []string) error { return nil },
	}

	if command.Changed("quality") {
		t.Error("Changed before Execute")
	}
	if err := command.Execute(context.Background(), []string{"-q", "40"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !command.Changed("quality") {
		t.Error("quality set with -q is not reported as changed")
	}
	if command.Changed("speed") {
		t.Error("speed left at its default is reported as changed")
	}
	if params.Quality != 40 || params.Speed != 8 {
		t.Errorf("params = %+v", params)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "build", 5},
		{"build", "build", 0},
		{"biuld", "build", 2},
		{"buil", "build", 1},
		{"info", "version", 6},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := levenshtein(tt.b, tt.a); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.b, tt.a, got, tt.want)
		}
	}
}
