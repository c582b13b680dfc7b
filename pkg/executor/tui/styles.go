package tui

import "github.com/charmbracelet/lipgloss"

// Color Palette
var (
	salmonPink  = lipgloss.Color("#FFB3BA") // accent
	coralPink   = lipgloss.Color("#FFCCCB") // user input
	mintGreen   = lipgloss.Color("#A8E6CF") // buttons and files
	mutedGray   = lipgloss.Color("#6B7280") // secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // bot text
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	tipsStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	userStyle = lipgloss.NewStyle().
			Foreground(coralPink).
			Bold(true)

	botStyle = lipgloss.NewStyle().
			Foreground(brightWhite)

	buttonStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	fileStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Italic(true)

	removedStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Strikethrough(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(salmonPink)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(salmonPink).
			Padding(0, 1)
)
