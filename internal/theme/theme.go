// Package theme resolves the color tokens for an appearance mode and
// renders them as CSS custom properties for the webview.
package theme

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/petervdpas/sudoku/internal/state"
)

// BoardColor is the grid accent for the selected board color. Bej mode
// swaps in the muted palette.
func BoardColor(m state.Mode) lipgloss.Color {
	table := saturated
	if m.BejMode {
		table = muted
	}
	if c, ok := table[m.BoardColor]; ok {
		return c
	}
	return table[state.Blue]
}

func Background(m state.Mode) lipgloss.Color {
	switch {
	case m.BejMode:
		if m.HighContrastMode {
			return contrastWhite
		}
		return bejBackground
	case m.DarkMode:
		return darkBackground
	default:
		if m.HighContrastMode {
			return contrastWhite
		}
		return lightBackground
	}
}

func Card(m state.Mode) lipgloss.Color {
	switch {
	case m.BejMode:
		return bejCard
	case m.DarkMode:
		if m.HighContrastMode {
			return contrastBlack
		}
		return darkCard
	default:
		return lightCard
	}
}

func Text(m state.Mode) lipgloss.Color {
	switch {
	case m.BejMode:
		if m.HighContrastMode {
			return contrastBej
		}
		return bejText
	case m.DarkMode:
		if m.HighContrastMode {
			return contrastWhite
		}
		return darkText
	default:
		if m.HighContrastMode {
			return contrastBlack
		}
		return lightText
	}
}

// Tokens is the resolved set for one mode.
type Tokens struct {
	Board      lipgloss.Color `json:"board"`
	Background lipgloss.Color `json:"background"`
	Card       lipgloss.Color `json:"card"`
	Text       lipgloss.Color `json:"text"`
}

func Resolve(m state.Mode) Tokens {
	return Tokens{
		Board:      BoardColor(m),
		Background: Background(m),
		Card:       Card(m),
		Text:       Text(m),
	}
}

// Preview renders a one-line swatch strip for terminals.
func Preview(m state.Mode) string {
	t := Resolve(m)
	swatch := func(label string, c lipgloss.Color) string {
		block := lipgloss.NewStyle().Background(c).Render("    ")
		return fmt.Sprintf("%s %-10s %s", block, label, c)
	}
	lines := []string{
		swatch("board", t.Board),
		swatch("background", t.Background),
		swatch("card", t.Card),
		swatch("text", t.Text),
	}
	return lipgloss.NewStyle().
		Foreground(t.Text).
		Background(t.Background).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}
