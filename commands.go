package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/petervdpas/sudoku/internal/config"
	"github.com/petervdpas/sudoku/internal/lifecycle"
	"github.com/petervdpas/sudoku/internal/state"
	"github.com/petervdpas/sudoku/internal/storage"
	"github.com/petervdpas/sudoku/internal/theme"
	"github.com/petervdpas/sudoku/internal/util"
)

var (
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	coldStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	warmStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	paletteCSS bool
	resumeLast float64
	resumeNow  float64
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Inspect or change stored preferences",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every stored preference",
	Args:  cobra.NoArgs,
	RunE:  runPrefsShow,
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change an appearance preference",
	Long: `Change an appearance preference. Mode keys follow the same rules as the
app: enabling darkMode, useSystemAppearance or bejMode clears the other two.

Keys: darkMode, useSystemAppearance, bejMode, highContrastMode, sudokuBoardColor`,
	Args: cobra.ExactArgs(2),
	RunE: runPrefsSet,
}

var paletteCmd = &cobra.Command{
	Use:   "palette",
	Short: "Preview the color tokens for the stored appearance",
	Args:  cobra.NoArgs,
	RunE:  runPalette,
}

var resumeCheckCmd = &cobra.Command{
	Use:   "resume-check",
	Short: "Report whether a resume would be cold or warm",
	Long: `Report whether returning to the foreground would be a cold resume.
--last defaults to the stored background time and --now to the current time,
both in unix seconds.`,
	Args: cobra.NoArgs,
	RunE: runResumeCheck,
}

func init() {
	prefsCmd.AddCommand(prefsShowCmd)
	prefsCmd.AddCommand(prefsSetCmd)

	paletteCmd.Flags().BoolVar(&paletteCSS, "css", false, "print the stylesheet instead of swatches")

	resumeCheckCmd.Flags().Float64Var(&resumeLast, "last", -1, "background time, unix seconds")
	resumeCheckCmd.Flags().Float64Var(&resumeNow, "now", -1, "resume time, unix seconds")
}

func openStorage() (*storage.DB, config.Config, error) {
	dir, _, cfg, err := loadConfig()
	if err != nil {
		return nil, config.Config{}, err
	}
	db, err := storage.Open(util.ResolvePath(dir, cfg.Storage.Dir))
	if err != nil {
		return nil, config.Config{}, err
	}
	return db, cfg, nil
}

func runPrefsShow(cmd *cobra.Command, args []string) error {
	db, _, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	prefs, err := db.Prefs()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := cmd.OutOrStdout()
	for _, k := range keys {
		v := prefs[k]
		if k == storage.KeyRemoteIdentity && v != "" {
			v = "(set)"
		}
		fmt.Fprintf(out, "%-22s %s\n", k, v)
	}
	return nil
}

// parseUpdate turns one key/value pair into an appearance update.
func parseUpdate(key, value string) (state.Update, error) {
	if key == storage.KeyBoardColor {
		c, err := state.ParseBoardColor(value)
		if err != nil {
			return state.Update{}, err
		}
		return state.Update{BoardColor: &c}, nil
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return state.Update{}, fmt.Errorf("%s: %w", key, err)
	}
	switch key {
	case storage.KeyDarkMode:
		return state.Update{DarkMode: &b}, nil
	case storage.KeyUseSystemAppearance:
		return state.Update{UseSystemAppearance: &b}, nil
	case storage.KeyBejMode:
		return state.Update{BejMode: &b}, nil
	case storage.KeyHighContrastMode:
		return state.Update{HighContrastMode: &b}, nil
	}
	return state.Update{}, fmt.Errorf("unknown or read-only key %q", key)
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	u, err := parseUpdate(args[0], args[1])
	if err != nil {
		return err
	}

	db, _, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	ap, err := state.NewAppearance(db, nil)
	if err != nil {
		return err
	}
	changed, err := ap.Apply(u)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("unchanged"))
		return nil
	}
	m := ap.Mode()
	fmt.Fprintf(cmd.OutOrStdout(), "darkMode=%t useSystemAppearance=%t bejMode=%t highContrastMode=%t sudokuBoardColor=%s\n",
		m.DarkMode, m.UseSystemAppearance, m.BejMode, m.HighContrastMode, m.BoardColor)
	return nil
}

func runPalette(cmd *cobra.Command, args []string) error {
	db, _, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	ap, err := state.NewAppearance(db, nil)
	if err != nil {
		return err
	}
	m := ap.Mode()
	if paletteCSS {
		fmt.Fprintln(cmd.OutOrStdout(), theme.CSS(m))
		return nil
	}

	scheme := string(ap.Scheme())
	if scheme == "" {
		scheme = "system"
	}
	fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("scheme: "+scheme))
	fmt.Fprintln(cmd.OutOrStdout(), theme.Preview(m))
	return nil
}

func runResumeCheck(cmd *cobra.Command, args []string) error {
	db, cfg, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	last := resumeLast
	if last < 0 {
		if last, err = db.Float(storage.KeyLastBackgroundTime); err != nil {
			return err
		}
	}
	now := resumeNow
	if now < 0 {
		now = util.UnixSeconds(time.Now())
	}

	d := lifecycle.Decide(now, last, cfg.ResumeThreshold())
	verdict := warmStyle.Render("warm")
	if d.ColdResume {
		verdict = coldStyle.Render("cold")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s resume (elapsed %s, threshold %s)\n",
		verdict, d.Elapsed.Round(time.Millisecond), cfg.ResumeThreshold())
	return nil
}
