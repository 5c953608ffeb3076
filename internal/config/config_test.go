package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 120*time.Second, cfg.ResumeThreshold())
	require.Equal(t, 15*time.Second, cfg.RemoteTimeout())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"empty storage dir", func(c *Config) { c.Storage.Dir = " " }},
		{"zero timeout", func(c *Config) { c.Remote.TimeoutSec = 0 }},
		{"bad scheme", func(c *Config) { c.Remote.BaseURL = "ftp://example.org" }},
		{"missing host", func(c *Config) { c.Remote.BaseURL = "http://" }},
		{"zero threshold", func(c *Config) { c.Lifecycle.ResumeThresholdSec = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mod(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestEnsureCreatesThenLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg, created, err := Ensure(path)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, Default(), cfg)

	cfg.Remote.BaseURL = "https://api.example.org"
	cfg.Lifecycle.ResumeThresholdSec = 30
	require.NoError(t, Save(path, cfg))

	got, created, err := Ensure(path)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "https://api.example.org", got.Remote.BaseURL)
	require.Equal(t, 30*time.Second, got.ResumeThreshold())
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"chatty\"\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SUDOKU_LOG_LEVEL", "debug")
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
}
