// Package tui provides Bubble Tea views for the embedpay CLI.
//
//   - TUI is opt-in only (--tui flag)
//   - the simulate view is the only interactive one; it drives a session
//     through the same driver the scripted mode uses
//   - the inspect views render the same payloads as non-TUI output
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	primaryColor   = lipgloss.Color("#4A4AF4") // Indigo
	successColor   = lipgloss.Color("#0FA573") // Green
	warningColor   = lipgloss.Color("#F2A900") // Amber
	errorColor     = lipgloss.Color("#E5484D") // Red
	mutedColor     = lipgloss.Color("#8A8F98") // Gray
	highlightColor = lipgloss.Color("#0EA5E9") // Sky
)

// Styles for TUI components.
var (
	// TitleStyle for headers and titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// LabelStyle for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(14)

	// ValueStyle for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	// SuccessStyle for success states.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// WarningStyle for warning states.
	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ErrorStyle for error states.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// BoxStyle for bordered containers.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	// StatBoxStyle for stat display boxes.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlightColor).
			Padding(0, 1).
			Width(16).
			Align(lipgloss.Center)

	// StatLabelStyle for stat labels.
	StatLabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Align(lipgloss.Center)

	// StatValueStyle for stat values.
	StatValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Align(lipgloss.Center)
)

// StateStyle returns a style for a session state, outcome or result code.
func StateStyle(state string) lipgloss.Style {
	switch {
	case state == "OK", strings.HasPrefix(state, "success"):
		return SuccessStyle
	case state == "fetching", state == "presenting", state == "CANCELED", strings.HasPrefix(state, "cancelled"):
		return WarningStyle
	case state == "ERROR", strings.HasPrefix(state, "error"):
		return ErrorStyle
	default:
		return ValueStyle
	}
}
