package terminal

import "github.com/charmbracelet/lipgloss"

// Status glyphs for command output. lipgloss drops the colors when stdout
// is not a terminal, the glyphs themselves always print.
var (
	// SuccessSymbol (✔)
	SuccessSymbol = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true).
			SetString("✔").String()

	// ErrorSymbol (❌)
	ErrorSymbol = lipgloss.NewStyle().
			SetString("❌").String()

	// WarningSymbol (⚠️)
	WarningSymbol = lipgloss.NewStyle().
			SetString("⚠️").String()

	// AttentionSymbol (❗)
	AttentionSymbol = lipgloss.NewStyle().
			SetString("❗").String()

	// InfoSymbol (ⓘ)
	InfoSymbol = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true).
			SetString("ⓘ").String()

	// LinkSymbol (→)
	LinkSymbol = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")).
			SetString("→").String()
)
