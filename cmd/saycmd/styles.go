package main

import (
	"github.com/Paranoid-AF/saycmd"
	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failureStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	promptStyle   = lipgloss.NewStyle().Bold(true)
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	pathStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// renderOutcome returns the report line styled by status.
func renderOutcome(o saycmd.Outcome) string {
	switch o.Status {
	case saycmd.StateSucceeded:
		return successStyle.Render("✓ ") + o.Report()
	case saycmd.StateCancelled:
		return warningStyle.Render("• " + o.Report())
	default:
		return failureStyle.Render("✗ " + o.Report())
	}
}
