package output

import "github.com/charmbracelet/lipgloss"

// Color constants using the ANSI 256-color palette.
const (
	// ColorPrimary is used for titles and borders (bright blue).
	ColorPrimary = lipgloss.Color("39")

	// ColorSuccess is used for the completion line (green).
	ColorSuccess = lipgloss.Color("42")

	// ColorWarning is used for slack notices (orange).
	ColorWarning = lipgloss.Color("214")

	// ColorMuted is used for labels and hints (gray).
	ColorMuted = lipgloss.Color("245")
)

var (
	// SummaryBox contains the run summary.
	SummaryBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	SizeStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)
)
