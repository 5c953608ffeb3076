// app.go
package main

import (
	"context"
	"errors"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/petervdpas/sudoku/internal/app"
	"github.com/petervdpas/sudoku/internal/config"
	"github.com/petervdpas/sudoku/internal/lifecycle"
	"github.com/petervdpas/sudoku/internal/notify"
	"github.com/petervdpas/sudoku/internal/remote"
	"github.com/petervdpas/sudoku/internal/state"
)

var log = logging.Logger("sudoku/main")

var errNotStarted = errors.New("app not started")

// App is the object bound to the webview.
type App struct {
	ctx context.Context

	cfgDir  string
	cfgPath string
	cfg     config.Config

	mu          sync.RWMutex
	coord       *app.Coordinator
	unsubscribe func()
}

// AppearanceInfo is the appearance snapshot handed to the frontend.
type AppearanceInfo struct {
	state.Mode
	Scheme string `json:"scheme"`
}

func NewApp(cfgDir, cfgPath string, cfg config.Config) *App {
	return &App{cfgDir: cfgDir, cfgPath: cfgPath, cfg: cfg}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	progress := func(step, total int, label string) {
		runtime.EventsEmit(ctx, "startup:progress", map[string]any{
			"step":  step,
			"total": total,
			"label": label,
		})
	}

	coord, err := app.New(ctx, app.Options{
		ConfigDir: a.cfgDir,
		CfgPath:   a.cfgPath,
		Cfg:       a.cfg,
		Progress:  progress,
	})
	if err != nil {
		log.Errorw("startup failed", "err", err)
		runtime.EventsEmit(ctx, "startup:error", err.Error())
		return
	}

	// Forward every event to the webview under its kind name.
	unsub := coord.Subscribe(notify.Any, func(e notify.Event) {
		runtime.EventsEmit(ctx, string(e.Kind()), e.Payload())
	})

	a.mu.Lock()
	a.coord = coord
	a.unsubscribe = unsub
	a.mu.Unlock()
}

func (a *App) domReady(ctx context.Context) {
	runtime.EventsEmit(ctx, "theme:css", a.GetThemeCSS())
}

// beforeClose records the background time so a relaunch within the
// threshold counts as a warm resume.
func (a *App) beforeClose(ctx context.Context) bool {
	if c := a.coordinator(); c != nil {
		if _, err := c.HandleSignal(ctx, lifecycle.Background); err != nil {
			log.Warnw("background on close", "err", err)
		}
	}
	return false
}

func (a *App) shutdown(ctx context.Context) {
	a.mu.Lock()
	c := a.coord
	unsub := a.unsubscribe
	a.coord, a.unsubscribe = nil, nil
	a.mu.Unlock()

	if c == nil {
		return
	}
	if unsub != nil {
		unsub()
	}
	start := time.Now()
	if err := c.Close(); err != nil {
		log.Errorw("shutdown", "err", err)
	}
	log.Infow("shutdown complete", "took", time.Since(start))
}

func (a *App) coordinator() *app.Coordinator {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.coord
}

// -------------------------
// Appearance API for Wails frontend
// -------------------------

func (a *App) GetAppearance() (AppearanceInfo, error) {
	c := a.coordinator()
	if c == nil {
		return AppearanceInfo{}, errNotStarted
	}
	return AppearanceInfo{Mode: c.Appearance(), Scheme: string(c.Scheme())}, nil
}

// UpdateAppearance applies a partial update; omitted fields are unchanged.
func (a *App) UpdateAppearance(u state.Update) (bool, error) {
	c := a.coordinator()
	if c == nil {
		return false, errNotStarted
	}
	return c.Apply(u)
}

func (a *App) ToggleTheme() error {
	c := a.coordinator()
	if c == nil {
		return errNotStarted
	}
	return c.ToggleTheme()
}

func (a *App) SetBoardColor(color string) error {
	c := a.coordinator()
	if c == nil {
		return errNotStarted
	}
	bc, err := state.ParseBoardColor(color)
	if err != nil {
		return err
	}
	return c.SetBoardColor(bc)
}

func (a *App) GetThemeCSS() string {
	c := a.coordinator()
	if c == nil {
		return ""
	}
	return c.ThemeCSS()
}

// -------------------------
// Lifecycle API
// -------------------------

// ScenePhase receives "active", "inactive" or "background" from the page's
// visibility and focus handlers.
func (a *App) ScenePhase(phase string) (bool, error) {
	c := a.coordinator()
	if c == nil {
		return false, errNotStarted
	}
	sig, err := lifecycle.ParseSignal(phase)
	if err != nil {
		return false, err
	}
	d, err := c.HandleSignal(a.ctx, sig)
	return d.ColdResume, err
}

func (a *App) ConsumeColdResume() bool {
	c := a.coordinator()
	return c != nil && c.ConsumeColdResume()
}

func (a *App) RootID() string {
	c := a.coordinator()
	if c == nil {
		return ""
	}
	return c.RootID()
}

// RecentEvents feeds the debug panel.
func (a *App) RecentEvents(n int) []notify.Record {
	c := a.coordinator()
	if c == nil {
		return nil
	}
	return c.Recent(n)
}

// -------------------------
// Account API
// -------------------------

func (a *App) SignIn(id remote.Identity) error {
	c := a.coordinator()
	if c == nil {
		return errNotStarted
	}
	return c.SignIn(id)
}

func (a *App) SignedInUser() string {
	c := a.coordinator()
	if c == nil {
		return ""
	}
	if id := c.CurrentIdentity(); id != nil {
		return id.UserID
	}
	return ""
}

func (a *App) SavedGameCount() (int, error) {
	c := a.coordinator()
	if c == nil {
		return 0, errNotStarted
	}
	games, err := c.SavedGames()
	return len(games), err
}
