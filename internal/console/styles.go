package console

import "github.com/charmbracelet/lipgloss"

var (
	successColor = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#73F59F"}
	failureColor = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF8787"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#6E6E6E", Dark: "#8C8C8C"}
	accentColor  = lipgloss.AdaptiveColor{Light: "#1565C0", Dark: "#54A0FF"}

	promptStyle  = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	commandStyle = lipgloss.NewStyle().Foreground(mutedColor)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	failureStyle = lipgloss.NewStyle().Foreground(failureColor)
	infoStyle    = lipgloss.NewStyle()
	spinnerStyle = lipgloss.NewStyle().Foreground(accentColor)
)
