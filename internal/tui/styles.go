package tui

import "github.com/charmbracelet/lipgloss"

var (
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11"))
	cursorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	countStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	modeOnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	helpStyle      = lipgloss.NewStyle().Faint(true)
)
