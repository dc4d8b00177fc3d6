// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// logRecordMsg carries one formatted log record into the model.
type logRecordMsg struct {
	Summary string
	Level   slog.Level
}

// LogHandler is a slog.Handler that sends records at or above its
// level to a bubbletea program. Records that arrive before SetProgram
// are dropped. Handlers derived with WithAttrs or WithGroup share the
// program pointer.
type LogHandler struct {
	level   slog.Level
	program *atomic.Pointer[tea.Program]
	attrs   []slog.Attr
	group   string
}

// NewLogHandler returns a handler delivering records at level and
// above.
func NewLogHandler(level slog.Level) *LogHandler {
	return &LogHandler{level: level, program: &atomic.Pointer[tea.Program]{}}
}

// SetProgram starts delivery to program. Safe from any goroutine.
func (h *LogHandler) SetProgram(program *tea.Program) {
	h.program.Store(program)
}

func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *LogHandler) Handle(_ context.Context, record slog.Record) error {
	program := h.program.Load()
	if program == nil {
		return nil
	}
	program.Send(logRecordMsg{Summary: h.summarize(record), Level: record.Level})
	return nil
}

// summarize renders "message (key=value, ...)".
func (h *LogHandler) summarize(record slog.Record) string {
	var parts []string
	for _, attr := range h.attrs {
		parts = append(parts, h.format(attr))
	}
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, h.format(attr))
		return true
	})
	if len(parts) == 0 {
		return record.Message
	}
	return record.Message + " (" + strings.Join(parts, ", ") + ")"
}

func (h *LogHandler) format(attr slog.Attr) string {
	key := attr.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	return fmt.Sprintf("%s=%s", key, attr.Value)
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *h
	derived.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &derived
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	derived := *h
	derived.attrs = append([]slog.Attr(nil), h.attrs...)
	if derived.group != "" {
		name = derived.group + "." + name
	}
	derived.group = name
	return &derived
}
