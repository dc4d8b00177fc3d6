// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/renpak/cmd/renpak/cli"
	"github.com/bureau-foundation/renpak/lib/buildui"
	"github.com/bureau-foundation/renpak/lib/cache"
	"github.com/bureau-foundation/renpak/lib/classify"
	"github.com/bureau-foundation/renpak/lib/config"
	"github.com/bureau-foundation/renpak/lib/imagecodec"
	"github.com/bureau-foundation/renpak/lib/pipeline"
	"github.com/bureau-foundation/renpak/lib/rpa"
)

type buildParams struct {
	Config            string   `flag:"config" desc:"YAML configuration file (default $RENPAK_CONFIG)"`
	Quality           int      `flag:"quality,q" desc:"encoder quality, 0 (smallest) to 100" default:"60"`
	Speed             int      `flag:"speed,s" desc:"encoder speed, 0 (slowest) to 10" default:"8"`
	Workers           int      `flag:"workers,j" desc:"encode workers (0 means one per CPU)"`
	Exclude           []string `flag:"exclude,x" desc:"directory prefix never recoded (repeatable)"`
	NoDefaultExcludes bool     `flag:"no-default-excludes" desc:"recode gui/ too"`
	SequenceThreshold int      `flag:"sequence-threshold" desc:"shortest numbered run grouped into a sequence (below 2 disables grouping)" default:"4"`
	Backend           string   `flag:"backend" desc:"codec backend (default: best compiled in)"`
	CacheDir          string   `flag:"cache-dir" desc:"payload cache directory (default from config)"`
	NoCache           bool     `flag:"no-cache" desc:"disable the payload cache"`
	FailFast          bool     `flag:"fail-fast" desc:"abort on the first codec failure instead of keeping the original"`
	RandomKey         bool     `flag:"random-key" desc:"obfuscate the output with a fresh key instead of the input's"`
	MemoryBudget      string   `flag:"memory-budget" desc:"bytes of decoded sequence frames held at once, e.g. 2GiB (default from available memory)"`
	ManifestSidecar   bool     `flag:"manifest-sidecar" desc:"also write <output>.manifest.json"`
	MetricsTextfile   string   `flag:"metrics-textfile" desc:"write Prometheus metrics to this file when the build ends"`
	TUI               bool     `flag:"tui" desc:"show an interactive progress view"`
	Quiet             bool     `flag:"quiet" desc:"print only errors"`
	LogLevel          string   `flag:"log-level" desc:"debug, info, warn or error (default from config)"`
}

const buildUsage = "renpak build <input.rpa> <output.rpa> [flags]"

func buildCommand(env environment) *cli.Command {
	var params buildParams
	command := &cli.Command{
		Name:    "build",
		Summary: "Convert an archive",
		Description: `Convert an RPA-3.0 archive, re-encoding eligible images and frame
sequences. Entries are written in their original order with the
manifest last; the output is staged beside the destination and only
renamed into place once complete. The output may be the input.

Configuration comes from --config or $RENPAK_CONFIG; flags given on
the command line override it.`,
		Usage: buildUsage,
		Examples: []cli.Example{
			{Description: "Convert with defaults", Command: "renpak build game/archive.rpa out/archive.rpa"},
			{Description: "Higher quality, keep fonts and movies untouched", Command: "renpak build -q 80 -x fonts -x movies game/archive.rpa game/archive.rpa"},
		},
		Flags: func() *pflag.FlagSet {
			params = buildParams{}
			return cli.FlagsFromParams("build", &params)
		},
	}
	command.Run = func(ctx context.Context, args []string) error {
		if err := requireArgs(args, 2, buildUsage); err != nil {
			return err
		}
		return runBuild(ctx, env, params, command.Changed, args[0], args[1])
	}
	return command
}

// resolveConfig loads the configuration file and applies the flags
// the user set explicitly.
func resolveConfig(params buildParams, changed func(string) bool) (*config.Config, error) {
	cfg, err := config.Load(params.Config)
	if err != nil {
		return nil, err
	}
	build := &cfg.Build
	if changed("quality") {
		build.Quality = params.Quality
	}
	if changed("speed") {
		build.Speed = params.Speed
	}
	if changed("workers") {
		build.Workers = params.Workers
	}
	build.Exclude = append(build.Exclude, params.Exclude...)
	if changed("no-default-excludes") {
		build.DisableDefaultExclusions = params.NoDefaultExcludes
	}
	if changed("sequence-threshold") {
		build.SequenceThreshold = params.SequenceThreshold
	}
	if changed("backend") {
		build.Backend = params.Backend
	}
	if changed("fail-fast") {
		build.FailFast = params.FailFast
	}
	if changed("manifest-sidecar") {
		build.ManifestSidecar = params.ManifestSidecar
	}
	if changed("cache-dir") {
		cfg.Paths.Cache = params.CacheDir
	}
	if changed("log-level") {
		cfg.Logging.Level = params.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, &cli.UsageError{Message: err.Error()}
	}
	return cfg, nil
}

// pipelineOptions translates a resolved configuration into build
// options. Logger, Cache and Progress are filled in by the caller.
func pipelineOptions(cfg *config.Config, params buildParams, input, output string) (pipeline.Options, error) {
	options := pipeline.Options{
		Input:   input,
		Output:  output,
		Backend: cfg.Build.Backend,
		Params:  imagecodec.Params{Quality: cfg.Build.Quality, Speed: cfg.Build.Speed},
		Workers: cfg.Build.Workers,
		Rules: classify.Rules{
			Exclude:                  cfg.Build.Exclude,
			DisableDefaultExclusions: cfg.Build.DisableDefaultExclusions,
		},
		SequenceThreshold: cfg.Build.SequenceThreshold,
		FailFast:          cfg.Build.FailFast,
		ManifestSidecar:   cfg.Build.ManifestSidecar,
	}
	// The configuration disables grouping below 2; the pipeline uses
	// 0 for its default and a negative value to disable.
	if options.SequenceThreshold < 2 {
		options.SequenceThreshold = -1
	}
	if params.MemoryBudget != "" {
		budget, err := humanize.ParseBytes(params.MemoryBudget)
		if err != nil {
			return options, &cli.UsageError{Message: fmt.Sprintf("--memory-budget: %v", err)}
		}
		options.MemoryBudget = int64(budget)
	}
	if params.RandomKey {
		key, err := rpa.RandomKey()
		if err != nil {
			return options, err
		}
		options.Key = &key
	}
	if params.MetricsTextfile != "" {
		options.Metrics = pipeline.NewMetrics()
	}
	return options, nil
}

func runBuild(ctx context.Context, env environment, params buildParams, changed func(string) bool, input, output string) error {
	cfg, err := resolveConfig(params, changed)
	if err != nil {
		return err
	}
	level, err := cli.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return &cli.UsageError{Message: err.Error()}
	}
	if params.Quiet {
		level = slog.LevelError
	}
	options, err := pipelineOptions(cfg, params, input, output)
	if err != nil {
		return err
	}

	execute := func(ctx context.Context, progress func(pipeline.Snapshot), logger *slog.Logger) (*pipeline.Report, error) {
		run := options
		run.Logger = logger
		run.Progress = progress
		if !params.NoCache {
			payloads, err := cache.Open(cfg.Paths.Cache, logger)
			if err != nil {
				logger.Warn("payload cache unavailable, building without it", "directory", cfg.Paths.Cache, "error", err)
			} else {
				run.Cache = payloads
			}
		}
		return pipeline.Build(ctx, run)
	}

	logger := cli.NewCommandLogger(env.stderr, level)
	var report *pipeline.Report
	if params.TUI && !params.Quiet && cli.IsTerminal(env.stderr) {
		report, err = buildui.Run(ctx, buildui.Options{
			Title:    fmt.Sprintf("renpak build %s → %s", input, output),
			LogLevel: max(level, slog.LevelWarn),
			Output:   env.stderr,
		}, execute)
	} else {
		if params.TUI && !params.Quiet {
			logger.Warn("--tui needs a terminal on stderr, continuing without it")
		}
		report, err = execute(ctx, logProgress(logger), logger)
	}

	if options.Metrics != nil {
		if writeErr := options.Metrics.WriteTextfile(params.MetricsTextfile); writeErr != nil {
			logger.Warn("writing metrics textfile failed", "path", params.MetricsTextfile, "error", writeErr)
		}
	}
	if report != nil && !params.Quiet {
		printSummary(env.stdout, report)
	}
	return err
}

// logProgress reports snapshots at debug level for headless builds.
func logProgress(logger *slog.Logger) func(pipeline.Snapshot) {
	return func(s pipeline.Snapshot) {
		logger.Debug("build progress",
			"written", s.Written,
			"entries", s.Entries,
			"queued", s.Queued,
			"in_flight", s.InFlight,
			"done", s.Done,
			"cache_hits", s.CacheHits,
			"degraded", s.Degraded,
		)
	}
}

// printSummary writes the human summary of a committed build.
func printSummary(w io.Writer, report *pipeline.Report) {
	fmt.Fprintf(w, "%s → %s\n", report.Input, report.Output)
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  entries\t%d (%d recoded, %d carried over, %d unchanged)\n",
		report.Entries, report.Recoded, report.Carried, report.Passthrough)
	fmt.Fprintf(tw, "  encodes\t%d (%d cache hits)\n", report.Encodes, report.CacheHits)
	fmt.Fprintf(tw, "  size\t%s → %s (%.1f%% saved)\n",
		humanize.IBytes(uint64(report.BytesIn)), humanize.IBytes(uint64(report.BytesOut)), report.SavedPercent())
	fmt.Fprintf(tw, "  time\t%s\n", report.Duration.Round(time.Millisecond))
	if len(report.Degraded) > 0 {
		fmt.Fprintf(tw, "  kept original\t%d\n", len(report.Degraded))
	}
	tw.Flush()
	for _, degraded := range report.Degraded {
		fmt.Fprintf(w, "    %s: %s (%d source(s))\n", degraded.Target, degraded.Reason, len(degraded.Sources))
	}
}
