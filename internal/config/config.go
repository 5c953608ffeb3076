package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the user config dir.
const FileName = "sudoku.toml"

// EnvPrefix prefixes environment overrides, e.g. SUDOKU_REMOTE_BASE_URL.
const EnvPrefix = "SUDOKU"

type Config struct {
	Storage   Storage   `mapstructure:"storage"`
	Remote    Remote    `mapstructure:"remote"`
	Lifecycle Lifecycle `mapstructure:"lifecycle"`
	Log       Log       `mapstructure:"log"`
}

type Storage struct {
	// Directory holding data.db. Relative paths resolve against the config dir.
	Dir string `mapstructure:"dir"`
}

type Remote struct {
	// Backend base URL. Empty disables credential refresh and sync.
	BaseURL    string `mapstructure:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_seconds"`
}

type Lifecycle struct {
	// Background time after which a resume is treated as cold.
	ResumeThresholdSec float64 `mapstructure:"resume_threshold_seconds"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

func Default() Config {
	return Config{
		Storage: Storage{
			Dir: "data",
		},
		Remote: Remote{
			BaseURL:    "",
			TimeoutSec: 15,
		},
		Lifecycle: Lifecycle{
			ResumeThresholdSec: 120,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// ResumeThreshold returns the lifecycle threshold as a duration.
func (c Config) ResumeThreshold() time.Duration {
	return time.Duration(c.Lifecycle.ResumeThresholdSec * float64(time.Second))
}

// RemoteTimeout returns the per-call timeout for backend requests.
func (c Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutSec) * time.Second
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.Dir) == "" {
		return errors.New("storage.dir is required")
	}

	if c.Remote.TimeoutSec < 1 || c.Remote.TimeoutSec > 300 {
		return errors.New("remote.timeout_seconds must be 1..300")
	}
	if raw := strings.TrimSpace(c.Remote.BaseURL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("remote.base_url: invalid url: %v", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("remote.base_url: scheme must be http or https")
		}
		if u.Host == "" {
			return errors.New("remote.base_url: missing host")
		}
	}

	if c.Lifecycle.ResumeThresholdSec <= 0 {
		return errors.New("lifecycle.resume_threshold_seconds must be > 0")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("log.level must be one of debug, info, warn, error")
	}

	return nil
}

// Dir returns the per-user config directory for the app.
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "sudoku"), nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()

	d := Default()
	v.SetDefault("storage.dir", d.Storage.Dir)
	v.SetDefault("remote.base_url", d.Remote.BaseURL)
	v.SetDefault("remote.timeout_seconds", d.Remote.TimeoutSec)
	v.SetDefault("lifecycle.resume_threshold_seconds", d.Lifecycle.ResumeThresholdSec)
	v.SetDefault("log.level", d.Log.Level)

	v.SetConfigType("toml")
	v.SetConfigFile(path)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads path (if present) on top of the defaults and env overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return decode(v)
}

func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("storage.dir", cfg.Storage.Dir)
	v.Set("remote.base_url", cfg.Remote.BaseURL)
	v.Set("remote.timeout_seconds", cfg.Remote.TimeoutSec)
	v.Set("lifecycle.resume_threshold_seconds", cfg.Lifecycle.ResumeThresholdSec)
	v.Set("log.level", cfg.Log.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Ensure loads config if it exists; otherwise creates a default config file.
// Returns (cfg, createdNew, err).
func Ensure(path string) (Config, bool, error) {
	if _, err := os.Stat(path); err == nil {
		cfg, err := Load(path)
		return cfg, false, err
	} else if !os.IsNotExist(err) {
		return Config{}, false, err
	}

	cfg := Default()
	if err := Save(path, cfg); err != nil {
		return Config{}, false, fmt.Errorf("create default config: %w", err)
	}
	return cfg, true, nil
}

// Watch calls fn with the reloaded config every time the file at path is
// written. Invalid edits are reported through onErr and otherwise ignored.
func Watch(path string, fn func(Config), onErr func(error)) error {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			return
		}
		fn(cfg)
	})
	v.WatchConfig()
	return nil
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, os.ErrNotExist)
}
