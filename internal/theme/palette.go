package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/petervdpas/sudoku/internal/state"
)

// Saturated board accents, used in light and dark mode.
const (
	colorBlue   lipgloss.Color = "#007aff"
	colorRed    lipgloss.Color = "#ff3b30"
	colorPink   lipgloss.Color = "#ff2d55"
	colorOrange lipgloss.Color = "#ff9500"
	colorPurple lipgloss.Color = "#af52de"
	colorGreen  lipgloss.Color = "#34c759"
)

// Muted board accents, used in bej mode.
const (
	mutedBlue   lipgloss.Color = "#7d9bb5"
	mutedRed    lipgloss.Color = "#b5776f"
	mutedPink   lipgloss.Color = "#c495a0"
	mutedOrange lipgloss.Color = "#c9a06b"
	mutedPurple lipgloss.Color = "#9a86ad"
	mutedGreen  lipgloss.Color = "#8aa680"
)

// Surfaces and text.
const (
	lightBackground lipgloss.Color = "#f2f2f7"
	lightCard       lipgloss.Color = "#ffffff"
	lightText       lipgloss.Color = "#1c1c1e"

	darkBackground lipgloss.Color = "#000000"
	darkCard       lipgloss.Color = "#1c1c1e"
	darkText       lipgloss.Color = "#f2f2f7"

	bejBackground lipgloss.Color = "#f5efe0"
	bejCard       lipgloss.Color = "#fbf7ee"
	bejText       lipgloss.Color = "#4a3f35"

	contrastBlack lipgloss.Color = "#000000"
	contrastWhite lipgloss.Color = "#ffffff"
	contrastBej   lipgloss.Color = "#2b221a"
)

var saturated = map[state.BoardColor]lipgloss.Color{
	state.Blue:   colorBlue,
	state.Red:    colorRed,
	state.Pink:   colorPink,
	state.Orange: colorOrange,
	state.Purple: colorPurple,
	state.Green:  colorGreen,
}

var muted = map[state.BoardColor]lipgloss.Color{
	state.Blue:   mutedBlue,
	state.Red:    mutedRed,
	state.Pink:   mutedPink,
	state.Orange: mutedOrange,
	state.Purple: mutedPurple,
	state.Green:  mutedGreen,
}

// AllPaletteColors returns every token, for validation.
func AllPaletteColors() []lipgloss.Color {
	out := make([]lipgloss.Color, 0, 24)
	for _, c := range state.BoardColors {
		out = append(out, saturated[c], muted[c])
	}
	return append(out,
		lightBackground, lightCard, lightText,
		darkBackground, darkCard, darkText,
		bejBackground, bejCard, bejText,
		contrastBlack, contrastWhite, contrastBej,
	)
}
