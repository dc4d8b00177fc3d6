// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildui

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/renpak/lib/pipeline"
)

// BuildFunc runs one build, reporting progress and logging through the
// given callbacks.
type BuildFunc func(ctx context.Context, progress func(pipeline.Snapshot), logger *slog.Logger) (*pipeline.Report, error)

// Options configures Run.
type Options struct {
	Title string
	Theme Theme

	// LogLevel is the lowest level shown in the view.
	LogLevel slog.Level

	// Input and Output override the terminal, for tests.
	Input  io.Reader
	Output io.Writer
}

// Run shows the view while build runs and returns build's result. The
// view exits once build returns, including after a user cancellation.
func Run(ctx context.Context, options Options, build BuildFunc) (*pipeline.Report, error) {
	if options.Theme == (Theme{}) {
		options.Theme = DefaultTheme
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var programOptions []tea.ProgramOption
	if options.Input != nil {
		programOptions = append(programOptions, tea.WithInput(options.Input))
	}
	if options.Output != nil {
		programOptions = append(programOptions, tea.WithOutput(options.Output))
	}
	program := tea.NewProgram(NewModel(options.Title, options.Theme, cancel), programOptions...)

	handler := NewLogHandler(options.LogLevel)
	handler.SetProgram(program)
	logger := slog.New(handler)

	type result struct {
		report *pipeline.Report
		err    error
	}
	finished := make(chan result, 1)
	go func() {
		report, err := build(ctx, func(snapshot pipeline.Snapshot) {
			program.Send(SnapshotMsg(snapshot))
		}, logger)
		finished <- result{report, err}
		program.Send(DoneMsg{Err: err})
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-finished
		return nil, fmt.Errorf("build view: %w", err)
	}
	outcome := <-finished
	return outcome.report, outcome.err
}
