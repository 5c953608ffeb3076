package state

import (
	"errors"
	"fmt"
	"sync"

	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/sudoku/internal/notify"
	"github.com/petervdpas/sudoku/internal/storage"
)

var log = logging.Logger("sudoku/state")

// Store is the scalar persistence the appearance fields live in.
type Store interface {
	Bool(key string) (bool, error)
	SetBool(key string, v bool) error
	String(key string) (string, error)
	SetString(key, v string) error
}

// Publisher receives the change notifications.
type Publisher interface {
	Publish(notify.Event)
}

// Appearance owns the process-wide appearance mode. Every mutation goes
// through Apply (or the helpers built on it), which resolves exclusivity,
// recomputes the scheme, persists the changed fields and then publishes.
type Appearance struct {
	// applyMu serializes whole mutations, publish included. Subscribers must
	// not call Apply synchronously from a handler.
	applyMu sync.Mutex

	mu     sync.RWMutex
	mode   Mode
	scheme Scheme

	store Store
	pub   Publisher
}

// NewAppearance loads the persisted mode from store.
func NewAppearance(store Store, pub Publisher) (*Appearance, error) {
	m, err := load(store)
	if err != nil {
		return nil, err
	}

	a := &Appearance{store: store, pub: pub}
	fixed := normalize(m)
	if fixed != m {
		log.Warnw("repairing persisted appearance", "stored", m, "repaired", fixed)
		if err := a.persist(diff(m, fixed)); err != nil {
			return nil, err
		}
	}
	a.mode = fixed
	a.scheme = fixed.Scheme()
	return a, nil
}

func load(store Store) (Mode, error) {
	var m Mode
	var err error
	if m.DarkMode, err = store.Bool(storage.KeyDarkMode); err != nil {
		return Mode{}, err
	}
	if m.UseSystemAppearance, err = store.Bool(storage.KeyUseSystemAppearance); err != nil {
		return Mode{}, err
	}
	if m.BejMode, err = store.Bool(storage.KeyBejMode); err != nil {
		return Mode{}, err
	}
	if m.HighContrastMode, err = store.Bool(storage.KeyHighContrastMode); err != nil {
		return Mode{}, err
	}
	color, err := store.String(storage.KeyBoardColor)
	if err != nil {
		return Mode{}, err
	}
	m.BoardColor = BoardColor(color)
	return m, nil
}

// Mode returns a snapshot of the current mode.
func (a *Appearance) Mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

// Scheme returns the effective scheme, always consistent with Mode.
func (a *Appearance) Scheme() Scheme {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.scheme
}

// Apply performs one atomic mutation. It reports whether anything changed.
// Requests equal to the current values are a no-op: nothing is written and
// nothing is published. A persistence error is returned after the new mode
// has been applied and published.
func (a *Appearance) Apply(u Update) (bool, error) {
	if u.BoardColor != nil {
		if _, err := ParseBoardColor(string(*u.BoardColor)); err != nil {
			return false, err
		}
	}
	return a.update(func(Mode) Update { return u })
}

// update computes the Update from the current mode while holding applyMu,
// so read-modify-write helpers cannot interleave with other mutations.
func (a *Appearance) update(fn func(Mode) Update) (bool, error) {
	a.applyMu.Lock()
	defer a.applyMu.Unlock()

	a.mu.Lock()
	prev := a.mode
	next := resolve(prev, fn(prev))
	if next == prev {
		a.mu.Unlock()
		return false, nil
	}
	a.mode = next
	a.scheme = next.Scheme()
	a.mu.Unlock()

	change := diff(prev, next)
	err := a.persist(change)
	if err != nil {
		log.Errorw("persist appearance", "changed", change.Changed(), "err", err)
	}

	if a.pub != nil {
		if change.BoardColor != nil {
			a.pub.Publish(notify.BoardColorChanged{Old: string(prev.BoardColor), New: string(next.BoardColor)})
		}
		a.pub.Publish(change)
	}
	log.Debugw("appearance changed", "changed", change.Changed(), "scheme", next.Scheme())
	return true, err
}

// ToggleTheme leaves system appearance and flips dark mode, leaves bej mode
// for light, or flips dark mode. Leaving system appearance takes two
// mutations, so two events are published and the intermediate state is
// briefly visible.
func (a *Appearance) ToggleTheme() error {
	leftSystem := false
	_, err := a.update(func(m Mode) Update {
		switch {
		case m.UseSystemAppearance:
			leftSystem = true
			return Update{UseSystemAppearance: Bool(false)}
		case m.BejMode:
			return Update{BejMode: Bool(false)}
		default:
			return Update{DarkMode: Bool(!m.DarkMode)}
		}
	})
	if !leftSystem {
		return err
	}

	_, err2 := a.update(func(m Mode) Update {
		return Update{DarkMode: Bool(!m.DarkMode)}
	})
	return errors.Join(err, err2)
}

// SetBoardColor is Apply for the board color alone.
func (a *Appearance) SetBoardColor(c BoardColor) error {
	_, err := a.Apply(Update{BoardColor: &c})
	return err
}

func (a *Appearance) persist(change notify.ThemeChanged) error {
	var errs []error
	put := func(key string, v *bool) {
		if v != nil {
			if err := a.store.SetBool(key, *v); err != nil {
				errs = append(errs, err)
			}
		}
	}
	put(storage.KeyDarkMode, change.DarkMode)
	put(storage.KeyUseSystemAppearance, change.UseSystemAppearance)
	put(storage.KeyBejMode, change.BejMode)
	put(storage.KeyHighContrastMode, change.HighContrastMode)
	if change.BoardColor != nil {
		if err := a.store.SetString(storage.KeyBoardColor, *change.BoardColor); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("persist appearance: %w", err)
	}
	return nil
}

// diff builds the change event between two modes.
func diff(prev, next Mode) notify.ThemeChanged {
	var e notify.ThemeChanged
	if prev.DarkMode != next.DarkMode {
		e.DarkMode = Bool(next.DarkMode)
	}
	if prev.UseSystemAppearance != next.UseSystemAppearance {
		e.UseSystemAppearance = Bool(next.UseSystemAppearance)
	}
	if prev.BejMode != next.BejMode {
		e.BejMode = Bool(next.BejMode)
	}
	if prev.HighContrastMode != next.HighContrastMode {
		e.HighContrastMode = Bool(next.HighContrastMode)
	}
	if prev.BoardColor != next.BoardColor {
		c := string(next.BoardColor)
		e.BoardColor = &c
	}
	e.Scheme = string(next.Scheme())
	return e
}
