package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petervdpas/sudoku/internal/state"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestParseUpdate(t *testing.T) {
	u, err := parseUpdate("bejMode", "true")
	require.NoError(t, err)
	require.Equal(t, state.Update{BejMode: state.Bool(true)}, u)

	u, err = parseUpdate("sudokuBoardColor", "Purple")
	require.NoError(t, err)
	require.Equal(t, state.Update{BoardColor: state.Color(state.Purple)}, u)

	_, err = parseUpdate("darkMode", "maybe")
	require.Error(t, err)
	_, err = parseUpdate("lastBackgroundTime", "1")
	require.Error(t, err)
	_, err = parseUpdate("sudokuBoardColor", "teal")
	require.ErrorIs(t, err, state.ErrUnknownBoardColor)
}

func TestPrefsCommands(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "sudoku.toml")

	execute(t, "--config", cfg, "prefs", "set", "darkMode", "true")
	out := execute(t, "--config", cfg, "prefs", "set", "bejMode", "true")
	require.Contains(t, out, "darkMode=false")
	require.Contains(t, out, "bejMode=true")

	out = execute(t, "--config", cfg, "prefs", "set", "bejMode", "true")
	require.Contains(t, out, "unchanged")

	out = execute(t, "--config", cfg, "prefs", "show")
	require.Regexp(t, `bejMode\s+true`, out)
	require.Regexp(t, `sudokuBoardColor\s+blue`, out)

	out = execute(t, "--config", cfg, "palette", "--css")
	require.Contains(t, out, "--board")
}

func TestResumeCheckCommand(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "sudoku.toml")

	out := execute(t, "--config", cfg, "resume-check", "--last", "1000", "--now", "1121")
	require.Contains(t, out, "cold")

	out = execute(t, "--config", cfg, "resume-check", "--last", "1000", "--now", "1120")
	require.Contains(t, out, "warm")

	out = execute(t, "--config", cfg, "resume-check", "--last", "0", "--now", "99999")
	require.Contains(t, out, "warm")
}
