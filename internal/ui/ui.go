// Package ui renders CLI output: status blocks, activity log lines, and
// success/failure messages. Styling is disabled automatically when stdout
// is not a terminal.
package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// styled reports whether output should carry ANSI styling.
func styled() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Heading renders a bold section heading.
func Heading(s string) string {
	if !styled() {
		return s
	}
	return headingStyle.Render(s)
}

// KeyValue renders an aligned "label: value" line.
func KeyValue(label, value string) string {
	if !styled() {
		return label + ": " + value
	}
	return labelStyle.Render(label) + " " + value
}

// Success renders a success message.
func Success(s string) string {
	if !styled() {
		return s
	}
	return okStyle.Render(s)
}

// Error renders a failure message.
func Error(s string) string {
	if !styled() {
		return s
	}
	return errStyle.Render(s)
}

// LogLines renders activity log entries, dimmed, one per line.
func LogLines(lines []string) string {
	if !styled() {
		return strings.Join(lines, "\n")
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = dimStyle.Render(line)
	}
	return strings.Join(out, "\n")
}
