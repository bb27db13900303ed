package terminal

import "github.com/charmbracelet/lipgloss"

var (
	boldStyle = lipgloss.NewStyle().Bold(true)
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

func Bold(s string) string {
	return boldStyle.Render(s)
}

func Dim(s string) string {
	return dimStyle.Render(s)
}
