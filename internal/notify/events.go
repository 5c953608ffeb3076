package notify

import "time"

// Kind names an event. The string value is the wire name forwarded to the
// webview.
type Kind string

const (
	KindThemeChanged      Kind = "ThemeChanged"
	KindBoardColorChanged Kind = "BoardColorChanged"
	KindUserLoggedOut     Kind = "UserLoggedOut"
	KindColdResume        Kind = "ColdResume"
	KindSyncFinished      Kind = "SyncFinished"

	// Collaborator signals owned by the board and power-saving layers. This
	// module forwards them but never publishes them itself.
	KindPauseBackgroundTasks   Kind = "PauseBackgroundTasks"
	KindStopAllBackgroundTasks Kind = "StopAllBackgroundTasks"
	KindSaveGameState          Kind = "SaveGameState"

	// Any subscribes to every kind.
	Any Kind = "*"
)

// Event is one published notification. Payload returns the flat key/value
// form sent to the webview.
type Event interface {
	Kind() Kind
	Payload() map[string]any
}

// ThemeChanged reports an accepted appearance mutation. A nil field did not
// change.
type ThemeChanged struct {
	DarkMode            *bool
	UseSystemAppearance *bool
	BejMode             *bool
	HighContrastMode    *bool
	BoardColor          *string

	// Scheme is the effective scheme after the change: "light", "dark" or
	// "" when deferring to the OS.
	Scheme string
}

func (ThemeChanged) Kind() Kind { return KindThemeChanged }

// Changed lists the persisted keys that changed.
func (e ThemeChanged) Changed() []string {
	var keys []string
	if e.DarkMode != nil {
		keys = append(keys, "darkMode")
	}
	if e.UseSystemAppearance != nil {
		keys = append(keys, "useSystemAppearance")
	}
	if e.BejMode != nil {
		keys = append(keys, "bejMode")
	}
	if e.HighContrastMode != nil {
		keys = append(keys, "highContrastMode")
	}
	if e.BoardColor != nil {
		keys = append(keys, "sudokuBoardColor")
	}
	return keys
}

// Payload carries the single changed mode field under its legacy key, or
// bulkUpdate when several mode fields changed together. A board color
// change alone yields an empty payload.
func (e ThemeChanged) Payload() map[string]any {
	p := map[string]any{}
	n := 0
	add := func(key string, v *bool) {
		if v != nil {
			p[key] = *v
			n++
		}
	}
	add("isDarkMode", e.DarkMode)
	add("useSystemAppearance", e.UseSystemAppearance)
	add("bejMode", e.BejMode)
	add("highContrastMode", e.HighContrastMode)
	if n > 1 {
		return map[string]any{"bulkUpdate": true}
	}
	return p
}

type BoardColorChanged struct {
	Old string
	New string
}

func (BoardColorChanged) Kind() Kind { return KindBoardColorChanged }

func (e BoardColorChanged) Payload() map[string]any {
	return map[string]any{"oldColor": e.Old, "newColor": e.New}
}

type UserLoggedOut struct{}

func (UserLoggedOut) Kind() Kind              { return KindUserLoggedOut }
func (UserLoggedOut) Payload() map[string]any { return map[string]any{} }

// ColdResume tells the presentation layer to rebuild its root under RootID.
type ColdResume struct {
	RootID  string
	Elapsed time.Duration
}

func (ColdResume) Kind() Kind { return KindColdResume }

func (e ColdResume) Payload() map[string]any {
	return map[string]any{"rootId": e.RootID, "elapsedSeconds": e.Elapsed.Seconds()}
}

// SyncFinished reports the outcome of one sync-down attempt.
type SyncFinished struct {
	UserID string
	Games  int
	Err    error
}

func (SyncFinished) Kind() Kind { return KindSyncFinished }

func (e SyncFinished) Payload() map[string]any {
	p := map[string]any{"games": e.Games, "ok": e.Err == nil}
	if e.Err != nil {
		p["error"] = e.Err.Error()
	}
	return p
}

// Signal is a payload-free collaborator signal such as SaveGameState.
type Signal struct {
	Name Kind
}

func (s Signal) Kind() Kind              { return s.Name }
func (Signal) Payload() map[string]any { return map[string]any{} }
