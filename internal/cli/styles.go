package cli

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))

	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
