// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/renpak/cmd/renpak/cli"
	"github.com/bureau-foundation/renpak/lib/config"
	"github.com/bureau-foundation/renpak/lib/failure"
	"github.com/bureau-foundation/renpak/lib/imagecodec"
	"github.com/bureau-foundation/renpak/lib/manifest"
	"github.com/bureau-foundation/renpak/lib/pipeline"
	"github.com/bureau-foundation/renpak/lib/rpa/rpatest"
	"github.com/bureau-foundation/renpak/lib/testutil"
)

// invoke runs the binary's entry point with captured output.
func invoke(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, environment{stdout: &stdout, stderr: &stderr})
	return code, stdout.String(), stderr.String()
}

// isolate keeps tests away from the user's configuration and cache.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv(config.EnvironmentVariable, "")
}

func gameArchive(t *testing.T, directory string) string {
	t.Helper()
	files := []rpatest.File{
		{Name: "images/bg.png", Data: testutil.GradientPNG(t, 64, 48, 0)},
		{Name: "gui/button.png", Data: testutil.GradientPNG(t, 8, 8, 1)},
		{Name: "script.rpy", Data: []byte("label start:\n    return\n")},
	}
	for frame := 1; frame <= 4; frame++ {
		files = append(files, rpatest.File{
			Name: fmt.Sprintf("images/ale %d.png", frame),
			Data: testutil.GradientPNG(t, 16, 12, frame),
		})
	}
	return rpatest.Write(t, directory, "archive.rpa", 0x1234abcd, files...)
}

func TestBuild(t *testing.T) {
	isolate(t)
	directory := t.TempDir()
	input := gameArchive(t, directory)
	output := filepath.Join(directory, "out.rpa")
	metrics := filepath.Join(directory, "renpak.prom")

	code, stdout, stderr := invoke(t, "build",
		"--backend", imagecodec.RawBackendName,
		"-j", "2",
		"--cache-dir", filepath.Join(directory, "cache"),
		"--manifest-sidecar",
		"--metrics-textfile", metrics,
		"--log-level", "warn",
		input, output)
	if code != 0 {
		t.Fatalf("exit %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	if !strings.Contains(stdout, "2 recoded") || !strings.Contains(stdout, "saved") {
		t.Errorf("summary:\n%s", stdout)
	}

	contents := rpatest.ReadAll(t, output)
	if _, ok := contents[manifest.FileName]; !ok {
		t.Fatal("output has no manifest")
	}
	if _, ok := contents["gui/button.png"]; !ok {
		t.Error("gui/ entry was not passed through")
	}
	if _, ok := contents["script.rpy"]; !ok {
		t.Error("script was dropped")
	}
	if _, err := os.Stat(output + pipeline.SidecarSuffix); err != nil {
		t.Errorf("sidecar: %v", err)
	}
	exposition, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("metrics textfile: %v", err)
	}
	if !strings.Contains(string(exposition), "renpak_entries_total") {
		t.Errorf("metrics textfile lacks entry counters:\n%s", exposition)
	}
}

func TestBuild_Quiet(t *testing.T) {
	isolate(t)
	directory := t.TempDir()
	input := gameArchive(t, directory)

	code, stdout, stderr := invoke(t, "build", "--quiet", "--no-cache", "--backend", imagecodec.RawBackendName,
		input, filepath.Join(directory, "out.rpa"))
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if stdout != "" || stderr != "" {
		t.Errorf("quiet build wrote output:\nstdout: %q\nstderr: %q", stdout, stderr)
	}
}

func TestBuild_ExitCodes(t *testing.T) {
	isolate(t)
	directory := t.TempDir()
	notArchive := filepath.Join(directory, "notes.txt")
	if err := os.WriteFile(notArchive, []byte("these are not the archives you are looking for\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing output argument", []string{"build", "in.rpa"}, failure.ExitUsage},
		{"unknown flag", []string{"build", "--qualty", "3", "a", "b"}, failure.ExitUsage},
		{"quality out of range", []string{"build", "-q", "101", "a.rpa", "b.rpa"}, failure.ExitUsage},
		{"input does not exist", []string{"build", "--no-cache", filepath.Join(directory, "absent.rpa"), filepath.Join(directory, "out.rpa")}, failure.ExitIO},
		{"input is not an archive", []string{"build", "--no-cache", notArchive, filepath.Join(directory, "out.rpa")}, failure.ExitFormat},
		{"unknown command", []string{"bulid"}, failure.ExitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := invoke(t, tt.args...)
			if code != tt.want {
				t.Errorf("exit %d, want %d\nstderr:\n%s", code, tt.want, stderr)
			}
			if !strings.Contains(stderr, "error:") {
				t.Errorf("stderr does not report the error:\n%s", stderr)
			}
		})
	}
}

func TestExitCode_Incomplete(t *testing.T) {
	err := fmt.Errorf("%w: %w", pipeline.ErrIncomplete, context.Canceled)
	var stderr bytes.Buffer
	if got := exitCode(err, &stderr); got != failure.ExitIncomplete {
		t.Errorf("exitCode = %d, want %d", got, failure.ExitIncomplete)
	}
	if got := exitCode(&cli.ExitError{Code: 7}, &stderr); got != 7 {
		t.Errorf("ExitError code = %d, want 7", got)
	}
}

func TestResolveConfig_FlagsOverrideOnlyWhenSet(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "renpak.yaml")
	content := "build:\n  quality: 75\n  speed: 3\n  exclude: [fonts]\n  fail_fast: true\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	params := buildParams{
		Config:            path,
		Quality:           60,
		Speed:             9,
		Exclude:           []string{"movies"},
		SequenceThreshold: 4,
		LogLevel:          "error",
	}
	changed := func(name string) bool { return name == "speed" || name == "log-level" }

	cfg, err := resolveConfig(params, changed)
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.Build.Quality != 75 {
		t.Errorf("quality = %d, want the file's 75 since -q was not given", cfg.Build.Quality)
	}
	if cfg.Build.Speed != 9 {
		t.Errorf("speed = %d, want the flag's 9", cfg.Build.Speed)
	}
	if !cfg.Build.FailFast {
		t.Error("fail_fast from the file was lost")
	}
	if strings.Join(cfg.Build.Exclude, ",") != "fonts,movies" {
		t.Errorf("exclude = %v, want file and flag prefixes", cfg.Build.Exclude)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Build.SequenceThreshold = 1

	options, err := pipelineOptions(cfg, buildParams{MemoryBudget: "2MiB", RandomKey: true, MetricsTextfile: "m.prom"}, "in.rpa", "out.rpa")
	if err != nil {
		t.Fatalf("pipelineOptions: %v", err)
	}
	if options.SequenceThreshold != -1 {
		t.Errorf("threshold 1 maps to %d, want grouping disabled", options.SequenceThreshold)
	}
	if options.MemoryBudget != 2<<20 {
		t.Errorf("memory budget = %d", options.MemoryBudget)
	}
	if options.Key == nil || options.Metrics == nil {
		t.Error("random key or metrics not set up")
	}
	if options.Params != (imagecodec.Params{Quality: 60, Speed: 8}) {
		t.Errorf("params = %+v", options.Params)
	}

	_, err = pipelineOptions(cfg, buildParams{MemoryBudget: "lots"}, "in.rpa", "out.rpa")
	var usage *cli.UsageError
	if !errors.As(err, &usage) {
		t.Errorf("bad memory budget error = %v, want a usage error", err)
	}
}

func TestInfo(t *testing.T) {
	archive := gameArchive(t, t.TempDir())

	code, stdout, stderr := invoke(t, "info", archive)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, want := range []string{"0x1234abcd", "entries       7", "images/ale 3.png", "script.rpy"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("info output missing %q:\n%s", want, stdout)
		}
	}

	code, stdout, _ = invoke(t, "info", "--json", "--summary", archive)
	if code != 0 {
		t.Fatalf("json exit %d", code)
	}
	var result infoResult
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("info --json: %v\n%s", err, stdout)
	}
	if result.EntryCount != 7 || len(result.Entries) != 0 || result.Key != "0x1234abcd" {
		t.Errorf("info --json = %+v", result)
	}
}

func TestAnalyze(t *testing.T) {
	archive := gameArchive(t, t.TempDir())

	code, stdout, stderr := invoke(t, "analyze", "--json", archive)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	var result analysis
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("analyze --json: %v\n%s", err, stdout)
	}
	if result.Entries != 7 || result.Converted {
		t.Errorf("analysis = %+v", result)
	}
	if result.Sequences != 1 || result.SequenceFrames != 4 {
		t.Errorf("sequences = %d with %d frames, want 1 with 4", result.Sequences, result.SequenceFrames)
	}

	counts := make(map[string]int)
	for _, row := range result.Decisions {
		counts[row.Key] = row.Entries
	}
	if counts["recode image"] != 5 || counts["passthrough excluded_prefix"] != 1 || counts["passthrough not_media"] != 1 {
		t.Errorf("decisions = %+v", result.Decisions)
	}
	var png int
	for _, row := range result.Extensions {
		if row.Key == ".png" {
			png = row.Entries
		}
	}
	if png != 6 {
		t.Errorf(".png entries = %d, want 6", png)
	}

	code, stdout, _ = invoke(t, "analyze", archive)
	if code != 0 || !strings.Contains(stdout, "DECISION") || !strings.Contains(stdout, "1 numbered sequence(s) covering 4 frames") {
		t.Errorf("analyze text output (exit %d):\n%s", code, stdout)
	}
}

func TestManifest(t *testing.T) {
	isolate(t)
	directory := t.TempDir()
	input := gameArchive(t, directory)

	code, _, stderr := invoke(t, "manifest", input)
	if code != failure.ExitFormat || !strings.Contains(stderr, "not been converted") {
		t.Errorf("manifest of an unconverted archive: exit %d\n%s", code, stderr)
	}

	output := filepath.Join(directory, "out.rpa")
	if code, _, stderr := invoke(t, "build", "--quiet", "--no-cache", "--backend", imagecodec.RawBackendName, input, output); code != 0 {
		t.Fatalf("build exit %d: %s", code, stderr)
	}

	code, stdout, stderr := invoke(t, "manifest", output)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	document, err := manifest.Parse([]byte(stdout))
	if err != nil {
		t.Fatalf("printed manifest does not parse: %v", err)
	}
	if _, ok := document.Entries["images/bg.png"]; !ok {
		t.Errorf("manifest entries = %v", document.Originals())
	}

	code, stdout, _ = invoke(t, "manifest", "--originals", output)
	if code != 0 || !strings.Contains(stdout, "images/ale 1.png\n") {
		t.Errorf("--originals (exit %d):\n%s", code, stdout)
	}
}

func TestVersion(t *testing.T) {
	code, stdout, _ := invoke(t, "version")
	if code != 0 || !strings.HasPrefix(stdout, "renpak ") {
		t.Errorf("version (exit %d): %q", code, stdout)
	}
}

func TestHelp(t *testing.T) {
	code, _, stderr := invoke(t, "build", "--help")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	for _, want := range []string{"renpak build <input.rpa> <output.rpa>", "--quality", "--fail-fast", "--tui"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("help missing %q:\n%s", want, stderr)
		}
	}
}

func TestPayload(t *testing.T) {
	isolate(t)
	directory := t.TempDir()
	input := gameArchive(t, directory)
	output := filepath.Join(directory, "out.rpa")
	if code, _, stderr := invoke(t, "build", "--quiet", "--no-cache", "--backend", imagecodec.RawBackendName, input, output); code != 0 {
		t.Fatalf("build exit %d: %s", code, stderr)
	}

	code, stdout, stderr := invoke(t, "payload", output, "images/ale 2.png")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, want := range []string{"original  images/ale 2.png", "sequence, 4 frame(s), star GOP", "16x12"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("payload output missing %q:\n%s", want, stdout)
		}
	}

	code, stdout, _ = invoke(t, "payload", "--cbor", output, "images/bg.png")
	if code != 0 || !strings.Contains(stdout, `"kind": "image"`) {
		t.Errorf("--cbor (exit %d):\n%s", code, stdout)
	}

	if code, _, _ := invoke(t, "payload", output, "script.rpy"); code != failure.ExitFormat {
		t.Errorf("payload of a script: exit %d, want %d", code, failure.ExitFormat)
	}
	if code, _, _ := invoke(t, "payload", output, "images/missing.png"); code != failure.ExitFormat {
		t.Errorf("payload of an unknown name: exit %d, want %d", code, failure.ExitFormat)
	}
}
