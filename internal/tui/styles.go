// SPDX-License-Identifier: MIT

// Package tui holds the terminal screens: the input device picker and the
// live piano keyboard.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	whiteKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1A1A1A")).
			Background(lipgloss.Color("#F2F2F2"))

	blackKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F2F2F2")).
			Background(lipgloss.Color("#1A1A1A"))

	pressedKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Bold(true)

	meterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065"))
)
