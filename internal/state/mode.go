package state

import (
	"errors"
	"fmt"
	"strings"
)

// BoardColor is the accent used for the sudoku grid.
type BoardColor string

const (
	Blue   BoardColor = "blue"
	Red    BoardColor = "red"
	Pink   BoardColor = "pink"
	Orange BoardColor = "orange"
	Purple BoardColor = "purple"
	Green  BoardColor = "green"
)

// BoardColors lists every selectable color in menu order.
var BoardColors = []BoardColor{Blue, Red, Pink, Orange, Purple, Green}

var ErrUnknownBoardColor = errors.New("unknown board color")

func ParseBoardColor(s string) (BoardColor, error) {
	c := BoardColor(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range BoardColors {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBoardColor, s)
}

// Scheme is the resolved appearance handed to the view layer.
type Scheme string

const (
	SchemeLight Scheme = "light"
	SchemeDark  Scheme = "dark"
	// SchemeSystem defers to the OS setting.
	SchemeSystem Scheme = ""
)

// Mode is the full set of appearance fields. At most one of DarkMode,
// UseSystemAppearance and BejMode is true; light is the default when none
// is. HighContrastMode and BoardColor are independent of the others.
type Mode struct {
	DarkMode            bool       `json:"darkMode"`
	UseSystemAppearance bool       `json:"useSystemAppearance"`
	BejMode             bool       `json:"bejMode"`
	HighContrastMode    bool       `json:"highContrastMode"`
	BoardColor          BoardColor `json:"sudokuBoardColor"`
}

// DefaultMode is the state of a fresh install.
func DefaultMode() Mode {
	return Mode{BoardColor: Blue}
}

// Scheme derives the effective scheme from BejMode, UseSystemAppearance and
// DarkMode only.
func (m Mode) Scheme() Scheme {
	switch {
	case m.BejMode:
		return SchemeLight
	case m.UseSystemAppearance:
		return SchemeSystem
	case m.DarkMode:
		return SchemeDark
	default:
		return SchemeLight
	}
}

// Update is a partial mutation; nil fields are left alone.
type Update struct {
	DarkMode            *bool       `json:"darkMode,omitempty"`
	UseSystemAppearance *bool       `json:"useSystemAppearance,omitempty"`
	BejMode             *bool       `json:"bejMode,omitempty"`
	HighContrastMode    *bool       `json:"highContrastMode,omitempty"`
	BoardColor          *BoardColor `json:"sudokuBoardColor,omitempty"`
}

// Bool returns a pointer to v for building an Update.
func Bool(v bool) *bool { return &v }

// Color returns a pointer to c for building an Update.
func Color(c BoardColor) *BoardColor { return &c }

// resolve applies u to cur. Enabling one of the three selectors clears the
// other two; when a single update enables several, bej mode wins over
// system appearance, which wins over dark mode. A dark+system update
// resolves to system because at most one selector may be true afterwards.
func resolve(cur Mode, u Update) Mode {
	next := cur

	if u.DarkMode != nil {
		next.DarkMode = *u.DarkMode
	}
	if u.UseSystemAppearance != nil {
		next.UseSystemAppearance = *u.UseSystemAppearance
	}
	if u.BejMode != nil {
		next.BejMode = *u.BejMode
	}
	if u.HighContrastMode != nil {
		next.HighContrastMode = *u.HighContrastMode
	}
	if u.BoardColor != nil {
		next.BoardColor = *u.BoardColor
	}

	switch {
	case isSet(u.BejMode):
		next.DarkMode = false
		next.UseSystemAppearance = false
	case isSet(u.UseSystemAppearance):
		next.DarkMode = false
		next.BejMode = false
	case isSet(u.DarkMode):
		next.UseSystemAppearance = false
		next.BejMode = false
	}
	return next
}

func isSet(p *bool) bool { return p != nil && *p }

// normalize repairs persisted state that breaks the selector exclusivity,
// using the same precedence as resolve.
func normalize(m Mode) Mode {
	switch {
	case m.BejMode:
		m.DarkMode = false
		m.UseSystemAppearance = false
	case m.UseSystemAppearance:
		m.DarkMode = false
	}
	if _, err := ParseBoardColor(string(m.BoardColor)); err != nil {
		m.BoardColor = Blue
	}
	return m
}
