// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestBindFlags_Types(t *testing.T) {
	type params struct {
		Backend  string   `flag:"backend" desc:"codec backend"`
		FailFast bool     `flag:"fail-fast" desc:"abort on the first codec failure"`
		Quality  int      `flag:"quality,q" desc:"encoder quality"`
		Budget   int64    `flag:"memory-budget" desc:"bytes"`
		Exclude  []string `flag:"exclude,x" desc:"prefix never recoded"`
		Untagged string
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	err := flagSet.Parse([]string{
		"--backend", "raw-zstd",
		"--fail-fast",
		"-q", "75",
		"--memory-budget", "4294967296",
		"-x", "gui", "-x", "fonts,extra",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Backend != "raw-zstd" || !p.FailFast || p.Quality != 75 || p.Budget != 1<<32 {
		t.Errorf("params = %+v", p)
	}
	if len(p.Exclude) != 2 || p.Exclude[0] != "gui" || p.Exclude[1] != "fonts,extra" {
		t.Errorf("Exclude = %q, want each occurrence verbatim", p.Exclude)
	}
	if flagSet.Lookup("untagged") != nil {
		t.Error("untagged field was bound")
	}
}

func TestBindFlags_Defaults(t *testing.T) {
	type params struct {
		Quality int      `flag:"quality" default:"60"`
		Budget  int64    `flag:"budget" default:"1024"`
		Sidecar bool     `flag:"sidecar" default:"true"`
		Backend string   `flag:"backend" default:"raw-zstd"`
		Exclude []string `flag:"exclude" default:"gui,fonts"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := flagSet.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Quality != 60 || p.Budget != 1024 || !p.Sidecar || p.Backend != "raw-zstd" {
		t.Errorf("params = %+v", p)
	}
	if len(p.Exclude) != 2 || p.Exclude[1] != "fonts" {
		t.Errorf("Exclude = %q", p.Exclude)
	}
}

func TestBindFlags_Embedded(t *testing.T) {
	type shared struct {
		Config string `flag:"config" desc:"config file"`
	}
	type params struct {
		shared
		Quiet bool `flag:"quiet"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := flagSet.Parse([]string{"--config", "renpak.yaml", "--quiet"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Config != "renpak.yaml" || !p.Quiet {
		t.Errorf("params = %+v", p)
	}
}

func TestBindFlags_Errors(t *testing.T) {
	tests := []struct {
		name   string
		params any
		want   string
	}{
		{"not a pointer", struct{}{}, "pointer to a struct"},
		{"pointer to non-struct", new(int), "pointer to a struct"},
		{"unsupported type", &struct {
			Ratio float32 `flag:"ratio"`
		}{}, "unsupported type"},
		{"bad default", &struct {
			Count int `flag:"count" default:"many"`
		}{}, "default for --count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := BindFlags(tt.params, pflag.NewFlagSet("test", pflag.ContinueOnError))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("BindFlags error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestFlagsFromParams_PanicsOnBadParams(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("FlagsFromParams did not panic")
		}
	}()
	FlagsFromParams("bad", 42)
}
