package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	fuchsia = lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#EE6FF8"}
	indigo  = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	cream   = lipgloss.AdaptiveColor{Light: "#FFFDF5", Dark: "#FFFDF5"}
	gray    = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}
	midGray = lipgloss.AdaptiveColor{Light: "#B2B2B2", Dark: "#4A4A4A"}
	red     = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	green   = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	yellow  = lipgloss.AdaptiveColor{Light: "#B09A00", Dark: "#ECFD65"}

	logoStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(indigo).
			Bold(true).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(fuchsia).
			Bold(true)

	authorStyle = lipgloss.NewStyle().
			Foreground(indigo)

	subtleStyle = lipgloss.NewStyle().
			Foreground(gray)

	errorStyle = lipgloss.NewStyle().
			Foreground(red)

	statusStyle = lipgloss.NewStyle().
			Foreground(green)

	currentChunkStyle = lipgloss.NewStyle().
				Foreground(cream).
				Background(indigo)

	chunkStyle = lipgloss.NewStyle().
			Foreground(gray)

	speedStyle = lipgloss.NewStyle().
			Foreground(yellow)

	favoriteStyle = lipgloss.NewStyle().
			Foreground(fuchsia)

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(fuchsia).
				Bold(true)

	dividerStyle = lipgloss.NewStyle().
			Foreground(midGray)

	helpStyle = lipgloss.NewStyle().
			Foreground(midGray)
)
