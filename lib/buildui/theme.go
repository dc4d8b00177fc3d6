// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildui

import "github.com/charmbracelet/lipgloss"

// Theme is the palette of the build view. Colors are ANSI 256 codes.
type Theme struct {
	NormalText       lipgloss.Color
	FaintText        lipgloss.Color
	HeaderForeground lipgloss.Color
	HelpText         lipgloss.Color

	Recoded  lipgloss.Color
	CacheHit lipgloss.Color
	Warning  lipgloss.Color
	Failure  lipgloss.Color

	// BarStart and BarEnd are the progress bar gradient.
	BarStart string
	BarEnd   string
}

// DefaultTheme suits 256-color terminals with a dark background.
var DefaultTheme = Theme{
	NormalText:       lipgloss.Color("252"),
	FaintText:        lipgloss.Color("245"),
	HeaderForeground: lipgloss.Color("255"),
	HelpText:         lipgloss.Color("241"),

	Recoded:  lipgloss.Color("114"), // green
	CacheHit: lipgloss.Color("75"),  // blue
	Warning:  lipgloss.Color("220"), // amber
	Failure:  lipgloss.Color("196"), // red

	BarStart: "#5A56E0",
	BarEnd:   "#EE6FF8",
}
