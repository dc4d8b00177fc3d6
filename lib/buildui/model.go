// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/renpak/lib/pipeline"
)

// maxLogLines is how many recent log records the view keeps.
const maxLogLines = 5

// defaultWidth is used until the terminal reports its size.
const defaultWidth = 80

// SnapshotMsg delivers a progress snapshot.
type SnapshotMsg pipeline.Snapshot

// DoneMsg reports that the build function returned.
type DoneMsg struct {
	Err error
}

// Model renders one build.
type Model struct {
	theme  Theme
	title  string
	cancel func()

	bar      progress.Model
	width    int
	snapshot pipeline.Snapshot
	logs     []logRecordMsg

	cancelling bool
	done       bool
	failed     bool
}

// NewModel returns a model titled title. cancel is called when the user
// asks to stop; it may be nil.
func NewModel(title string, theme Theme, cancel func()) Model {
	return Model{
		theme:  theme,
		title:  title,
		cancel: cancel,
		bar:    progress.New(progress.WithGradient(theme.BarStart, theme.BarEnd), progress.WithWidth(defaultWidth-4)),
		width:  defaultWidth,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case SnapshotMsg:
		m.snapshot = pipeline.Snapshot(message)
		return m, nil

	case logRecordMsg:
		m.logs = append(m.logs, message)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		return m, nil

	case DoneMsg:
		m.done = true
		m.failed = message.Err != nil
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = message.Width
		m.bar.Width = max(10, message.Width-4)
		return m, nil

	case tea.KeyMsg:
		switch message.String() {
		case "q", "ctrl+c", "esc":
			if !m.cancelling && m.cancel != nil {
				m.cancel()
			}
			m.cancelling = true
		}
		return m, nil
	}
	return m, nil
}

// Finished reports whether the build function has returned.
func (m Model) Finished() bool {
	return m.done
}

func (m Model) View() string {
	header := lipgloss.NewStyle().Bold(true).Foreground(m.theme.HeaderForeground)
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)
	normal := lipgloss.NewStyle().Foreground(m.theme.NormalText)

	var view strings.Builder
	view.WriteString(header.Render(m.title))
	view.WriteString("\n\n  ")
	view.WriteString(m.bar.ViewAs(m.fraction()))
	view.WriteString("\n\n")

	s := m.snapshot
	fmt.Fprintf(&view, "  %s %s\n",
		faint.Render("entries "),
		normal.Render(fmt.Sprintf("%d / %d written", s.Written, s.Entries)))
	fmt.Fprintf(&view, "  %s %s  %s  %s  %s\n",
		faint.Render("jobs    "),
		normal.Render(fmt.Sprintf("%d queued", s.Queued)),
		normal.Render(fmt.Sprintf("%d running", s.InFlight+s.Ready)),
		lipgloss.NewStyle().Foreground(m.theme.Recoded).Render(fmt.Sprintf("%d done", s.Done)),
		lipgloss.NewStyle().Foreground(m.theme.CacheHit).Render(fmt.Sprintf("%d cached", s.CacheHits)))
	if s.Degraded > 0 || s.Failed > 0 {
		fmt.Fprintf(&view, "  %s %s\n",
			faint.Render("problems"),
			lipgloss.NewStyle().Foreground(m.theme.Warning).Render(fmt.Sprintf("%d kept original", s.Degraded)))
	}
	fmt.Fprintf(&view, "  %s %s → %s  %s\n",
		faint.Render("bytes   "),
		normal.Render(humanize.IBytes(uint64(s.BytesIn))),
		normal.Render(humanize.IBytes(uint64(s.BytesOut))),
		faint.Render(s.Elapsed.Truncate(time.Second).String()))

	if len(m.logs) > 0 {
		view.WriteString("\n")
		for _, record := range m.logs {
			style := faint
			switch {
			case record.Level >= slog.LevelError:
				style = lipgloss.NewStyle().Foreground(m.theme.Failure)
			case record.Level >= slog.LevelWarn:
				style = lipgloss.NewStyle().Foreground(m.theme.Warning)
			}
			view.WriteString("  ")
			view.WriteString(style.Render(truncate(record.Summary, m.width-2)))
			view.WriteString("\n")
		}
	}

	help := "q: cancel build"
	if m.cancelling {
		help = "cancelling, waiting for workers to stop"
	}
	if m.done {
		help = "done"
		if m.failed {
			help = "stopped"
		}
	}
	view.WriteString("\n  ")
	view.WriteString(lipgloss.NewStyle().Foreground(m.theme.HelpText).Render(help))
	view.WriteString("\n")
	return view.String()
}

// fraction is the share of output entries already written.
func (m Model) fraction() float64 {
	if m.snapshot.Entries == 0 {
		return 0
	}
	return float64(m.snapshot.Written) / float64(m.snapshot.Entries)
}

// truncate shortens text to width terminal cells.
func truncate(text string, width int) string {
	if width < 2 {
		return text
	}
	return ansi.Truncate(text, width, "…")
}
