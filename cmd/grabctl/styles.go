package main

import "github.com/charmbracelet/lipgloss"

// Color palette for the grabctl console.
var (
	skyBlue     = lipgloss.Color("#3B82F6") // primary accent, matches the overlay
	mintGreen   = lipgloss.Color("#A8E6CF") // success states
	mutedGray   = lipgloss.Color("#6B7280") // secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // primary text
	softRed     = lipgloss.Color("#F87171") // errors
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(skyBlue).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(skyBlue).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	errorStyle = lipgloss.NewStyle().
			Foreground(softRed)

	eventStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Italic(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(brightWhite)
)
