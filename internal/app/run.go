// Package app wires the presentation coordinator: storage, the event bus,
// appearance state, the lifecycle controller and the remote session and
// sync helpers.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/sudoku/internal/config"
	"github.com/petervdpas/sudoku/internal/dispatch"
	"github.com/petervdpas/sudoku/internal/lifecycle"
	"github.com/petervdpas/sudoku/internal/notify"
	"github.com/petervdpas/sudoku/internal/remote"
	"github.com/petervdpas/sudoku/internal/session"
	"github.com/petervdpas/sudoku/internal/state"
	"github.com/petervdpas/sudoku/internal/storage"
	"github.com/petervdpas/sudoku/internal/syncer"
	"github.com/petervdpas/sudoku/internal/telemetry"
	"github.com/petervdpas/sudoku/internal/theme"
	"github.com/petervdpas/sudoku/internal/util"
)

var log = logging.Logger("sudoku/app")

type Options struct {
	// ConfigDir is the base for relative storage paths.
	ConfigDir string
	// CfgPath enables live reload of the log level when set.
	CfgPath string
	Cfg     config.Config

	// Now overrides the lifecycle clock.
	Now      func() time.Time
	Progress func(step, total int, label string)
}

// Coordinator is the process-scoped owner of all presentation state. Its
// mutating methods run on a single UI queue, which is also where every
// event is published. Bus handlers run on that queue and must not call
// back into the Coordinator synchronously; use Post instead.
type Coordinator struct {
	cfg config.Config

	db         *storage.DB
	bus        *notify.Bus
	queue      *dispatch.Queue
	appearance *state.Appearance
	auth       *remote.Auth
	guard      *session.Guard
	sync       *syncer.Trigger
	life       *lifecycle.Controller
	tracing    *telemetry.Provider

	closeOnce sync.Once
	closed    chan struct{}
}

func New(ctx context.Context, o Options) (*Coordinator, error) {
	cfg := o.Cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := SetLogLevel(cfg.Log.Level); err != nil {
		return nil, err
	}

	emit := o.Progress
	if emit == nil {
		emit = func(int, int, string) {}
	}
	const total = 4
	step := 0

	dataDir := util.ResolvePath(o.ConfigDir, cfg.Storage.Dir)
	log.Infow("starting", "config", o.CfgPath, "backend", cfg.Remote.BaseURL)

	c := &Coordinator{cfg: cfg, closed: make(chan struct{})}

	step++
	emit(step, total, "Opening database")
	db, err := storage.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	c.db = db
	log.Infow("database open", "path", db.Path())

	step++
	emit(step, total, "Loading appearance")
	c.bus = notify.NewBus()
	c.queue = dispatch.NewQueue()
	c.appearance, err = state.NewAppearance(db, c.bus)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("load appearance: %w", err)
	}

	step++
	emit(step, total, "Connecting backend")
	c.auth, err = remote.NewAuth(cfg.Remote.BaseURL, cfg.RemoteTimeout(), db)
	if err != nil {
		c.Close()
		return nil, err
	}
	if !c.auth.Enabled() {
		log.Infow("remote backend disabled")
	}
	docs := remote.NewDocuments(cfg.Remote.BaseURL, cfg.RemoteTimeout())
	c.guard = session.NewGuard(c.auth, c.queue, c.bus, cfg.RemoteTimeout())
	c.sync = syncer.New(syncer.Options{
		Identities: c.auth,
		Documents:  docs,
		Store:      db,
		Queue:      c.queue,
		Publisher:  c.bus,
		Timeout:    cfg.RemoteTimeout(),
	})

	step++
	emit(step, total, "Starting lifecycle")
	c.tracing, err = telemetry.Setup(ctx)
	if err != nil {
		log.Warnw("tracing disabled", "err", err)
	}
	c.life = lifecycle.New(lifecycle.Options{
		Store:     db,
		Publisher: c.bus,
		Validator: c.guard,
		Syncer:    c.sync,
		Threshold: cfg.ResumeThreshold(),
		Now:       o.Now,
	})

	if o.CfgPath != "" {
		err := config.Watch(o.CfgPath, c.reload, func(err error) {
			log.Warnw("ignoring invalid config edit", "path", o.CfgPath, "err", err)
		})
		if err != nil {
			log.Warnw("config watch disabled", "path", o.CfgPath, "err", err)
		}
	}

	log.Infow("ready", "root", c.life.RootID(), "scheme", c.appearance.Scheme())
	return c, nil
}

// reload applies the settings that can change at runtime.
func (c *Coordinator) reload(cfg config.Config) {
	select {
	case <-c.closed:
		return
	default:
	}
	if err := SetLogLevel(cfg.Log.Level); err != nil {
		log.Warnw("config reload", "err", err)
		return
	}
	log.Infow("log level reloaded", "level", cfg.Log.Level)
}

// SetLogLevel applies level to every sudoku/* logger.
func SetLogLevel(level string) error {
	if err := logging.SetLogLevelRegex("sudoku/.*", strings.ToLower(level)); err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	return nil
}

func (c *Coordinator) Config() config.Config { return c.cfg }

// Subscribe registers h on the event bus.
func (c *Coordinator) Subscribe(kind notify.Kind, h notify.Handler) func() {
	return c.bus.Subscribe(kind, h)
}

// Post runs fn on the UI queue without waiting.
func (c *Coordinator) Post(fn func()) error {
	return c.queue.Post(fn)
}

func (c *Coordinator) Appearance() state.Mode {
	return c.appearance.Mode()
}

func (c *Coordinator) Scheme() state.Scheme {
	return c.appearance.Scheme()
}

// Apply performs one appearance mutation on the UI queue.
func (c *Coordinator) Apply(u state.Update) (bool, error) {
	var changed bool
	var err error
	if qerr := c.queue.Do(func() { changed, err = c.appearance.Apply(u) }); qerr != nil {
		return false, qerr
	}
	return changed, err
}

func (c *Coordinator) ToggleTheme() error {
	var err error
	if qerr := c.queue.Do(func() { err = c.appearance.ToggleTheme() }); qerr != nil {
		return qerr
	}
	return err
}

func (c *Coordinator) SetBoardColor(color state.BoardColor) error {
	_, err := c.Apply(state.Update{BoardColor: &color})
	return err
}

// ThemeCSS renders the stylesheet for the current mode.
func (c *Coordinator) ThemeCSS() string {
	return theme.CSS(c.appearance.Mode())
}

// HandleSignal feeds one lifecycle signal through the controller on the UI
// queue.
func (c *Coordinator) HandleSignal(ctx context.Context, sig lifecycle.Signal) (lifecycle.Decision, error) {
	var d lifecycle.Decision
	var err error
	if qerr := c.queue.Do(func() { d, err = c.life.Handle(ctx, sig) }); qerr != nil {
		return lifecycle.Decision{}, qerr
	}
	return d, err
}

func (c *Coordinator) ConsumeColdResume() bool {
	return c.life.ConsumeColdResume()
}

func (c *Coordinator) RootID() string {
	return c.life.RootID()
}

// Recent returns up to n of the latest events, oldest first.
func (c *Coordinator) Recent(n int) []notify.Record {
	return c.bus.Recent(n)
}

// SignIn attaches id and starts a sync for it.
func (c *Coordinator) SignIn(id remote.Identity) error {
	if err := c.auth.SignIn(id); err != nil {
		return err
	}
	c.sync.Run()
	return nil
}

func (c *Coordinator) CurrentIdentity() *remote.Identity {
	return c.auth.CurrentIdentity()
}

// SavedGames lists the local copies for the signed-in user.
func (c *Coordinator) SavedGames() ([]storage.SavedGame, error) {
	id := c.auth.CurrentIdentity()
	if id == nil {
		return nil, nil
	}
	return c.db.SavedGames(id.UserID)
}

// Close stops background work, drains the UI queue and closes storage.
// It is safe to call more than once and on a partially built Coordinator.
func (c *Coordinator) Close() error {
	var errs []error
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.guard != nil {
			c.guard.Close()
		}
		if c.sync != nil {
			c.sync.Close()
		}
		if c.life != nil {
			c.life.Wait()
		}
		if c.queue != nil {
			c.queue.Close()
		}
		if c.bus != nil {
			c.bus.Close()
		}
		ctx, cancel := context.WithTimeout(context.Background(), util.ShortTimeout)
		defer cancel()
		if err := c.tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing: %w", err))
		}
		if c.db != nil {
			if err := c.db.Flush(); err != nil {
				errs = append(errs, err)
			}
			if err := c.db.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
