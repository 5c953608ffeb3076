package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSameKindRunsInRegistrationOrder(t *testing.T) {
	b := NewBus()
	var order []string
	b.Subscribe(KindThemeChanged, func(Event) { order = append(order, "a") })
	b.Subscribe(Any, func(Event) { order = append(order, "any") })
	b.Subscribe(KindThemeChanged, func(Event) { order = append(order, "b") })
	b.Subscribe(KindUserLoggedOut, func(Event) { order = append(order, "other") })

	b.Publish(ThemeChanged{})
	require.Equal(t, []string{"a", "b", "any"}, order)
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	off := b.Subscribe(KindUserLoggedOut, func(Event) { calls++ })
	b.Publish(UserLoggedOut{})
	off()
	off()
	b.Publish(UserLoggedOut{})
	require.Equal(t, 1, calls)
	require.Zero(t, b.Subscribers(KindUserLoggedOut))
}

func TestReentrantPublishDoesNotDeadlock(t *testing.T) {
	b := NewBus()
	var got []Kind
	b.Subscribe(KindBoardColorChanged, func(e Event) {
		got = append(got, e.Kind())
		b.Publish(ThemeChanged{})
	})
	b.Subscribe(KindThemeChanged, func(e Event) {
		got = append(got, e.Kind())
		b.Subscribe(KindUserLoggedOut, func(Event) {})
	})

	b.Publish(BoardColorChanged{Old: "blue", New: "red"})
	require.Equal(t, []Kind{KindBoardColorChanged, KindThemeChanged}, got)
	require.Equal(t, 1, b.Subscribers(KindUserLoggedOut))
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	b := NewBus()
	reached := false
	b.Subscribe(KindSaveGameState, func(Event) { panic("boom") })
	b.Subscribe(KindSaveGameState, func(Event) { reached = true })

	require.NotPanics(t, func() { b.Publish(Signal{Name: KindSaveGameState}) })
	require.True(t, reached)
}

func TestRecentKeepsLatest(t *testing.T) {
	b := NewBus()
	for i := 0; i < recentCap+5; i++ {
		b.Publish(UserLoggedOut{})
	}
	b.Publish(BoardColorChanged{Old: "blue", New: "pink"})

	all := b.Recent(0)
	require.Len(t, all, recentCap)
	last := b.Recent(1)
	require.Len(t, last, 1)
	require.Equal(t, KindBoardColorChanged, last[0].Kind)
	require.Equal(t, "pink", last[0].Payload["newColor"])
}

func TestThemeChangedPayload(t *testing.T) {
	yes, no := true, false
	red := "red"

	single := ThemeChanged{BejMode: &yes, Scheme: "light"}
	require.Equal(t, map[string]any{"bejMode": true}, single.Payload())
	require.Equal(t, []string{"bejMode"}, single.Changed())

	dark := ThemeChanged{DarkMode: &yes}
	require.Equal(t, map[string]any{"isDarkMode": true}, dark.Payload())

	bulk := ThemeChanged{DarkMode: &yes, BejMode: &no}
	require.Equal(t, map[string]any{"bulkUpdate": true}, bulk.Payload())
	require.Equal(t, []string{"darkMode", "bejMode"}, bulk.Changed())

	colorOnly := ThemeChanged{BoardColor: &red}
	require.Empty(t, colorOnly.Payload())
	require.Equal(t, []string{"sudokuBoardColor"}, colorOnly.Changed())
}

func TestOtherPayloads(t *testing.T) {
	require.Equal(t, map[string]any{"oldColor": "blue", "newColor": "red"},
		BoardColorChanged{Old: "blue", New: "red"}.Payload())
	require.Empty(t, UserLoggedOut{}.Payload())

	failed := SyncFinished{Games: 0, Err: errors.New("offline")}.Payload()
	require.Equal(t, false, failed["ok"])
	require.Equal(t, "offline", failed["error"])

	require.Equal(t, KindStopAllBackgroundTasks, Signal{Name: KindStopAllBackgroundTasks}.Kind())
}
