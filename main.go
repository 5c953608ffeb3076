// main.go
package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/petervdpas/sudoku/internal/app"
	"github.com/petervdpas/sudoku/internal/config"
)

//go:embed all:frontend/dist
var assets embed.FS

// appVersion is set at build time via -ldflags "-X main.appVersion=x.y.z"
var appVersion = "dev"

var (
	cfgFlag      string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:           "sudoku",
	Short:         "Sudoku desktop app",
	Long:          "Runs the desktop app when called without a command.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDesktop,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sudoku v%s\n", appVersion)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFlag, "config", "", "config file (default: <user config dir>/sudoku/"+config.FileName+")")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(paletteCmd)
	rootCmd.AddCommand(resumeCheckCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the config path, creates a default file on first run
// and applies the --log-level override.
func loadConfig() (dir, path string, cfg config.Config, err error) {
	path = cfgFlag
	if path == "" {
		base, err := config.Dir()
		if err != nil {
			return "", "", config.Config{}, err
		}
		path = filepath.Join(base, config.FileName)
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return "", "", config.Config{}, err
	}
	dir = filepath.Dir(path)

	cfg, _, err = config.Ensure(path)
	if err != nil {
		return "", "", config.Config{}, err
	}
	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
		if err := cfg.Validate(); err != nil {
			return "", "", config.Config{}, err
		}
	}
	if err := app.SetLogLevel(cfg.Log.Level); err != nil {
		return "", "", config.Config{}, err
	}
	return dir, path, cfg, nil
}

func runDesktop(cmd *cobra.Command, args []string) error {
	dir, path, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a := NewApp(dir, path, cfg)
	return wails.Run(&options.App{
		Title:  "Sudoku",
		Width:  900,
		Height: 1000,

		AssetServer: &assetserver.Options{
			Assets: assets,
		},

		OnStartup:     a.startup,
		OnDomReady:    a.domReady,
		OnBeforeClose: a.beforeClose,
		OnShutdown:    a.shutdown,
		Bind:          []any{a},
	})
}
