package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petervdpas/sudoku/internal/dispatch"
	"github.com/petervdpas/sudoku/internal/notify"
	"github.com/petervdpas/sudoku/internal/remote"
	"github.com/petervdpas/sudoku/internal/storage"
)

type identities struct {
	mu sync.Mutex
	id *remote.Identity
}

func (i *identities) CurrentIdentity() *remote.Identity {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.id == nil {
		return nil
	}
	id := *i.id
	return &id
}

func (i *identities) set(userID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if userID == "" {
		i.id = nil
		return
	}
	i.id = &remote.Identity{UserID: userID}
}

type fakeDocs struct {
	calls atomic.Int32
	block chan struct{}
	games []remote.SavedGame
	err   error
}

func (d *fakeDocs) SyncDown(ctx context.Context, _ remote.Identity) ([]remote.SavedGame, error) {
	d.calls.Add(1)
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return d.games, d.err
}

type recorder struct {
	mu     sync.Mutex
	events []notify.SyncFinished
}

func (r *recorder) Publish(e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.(notify.SyncFinished))
}

func (r *recorder) all() []notify.SyncFinished {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.SyncFinished(nil), r.events...)
}

type fixture struct {
	trigger *Trigger
	ids     *identities
	docs    *fakeDocs
	db      *storage.DB
	queue   *dispatch.Queue
	rec     *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.Open(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		ids:   &identities{},
		docs:  &fakeDocs{},
		db:    db,
		queue: dispatch.NewQueue(),
		rec:   &recorder{},
	}
	f.trigger = New(Options{
		Identities: f.ids,
		Documents:  f.docs,
		Store:      db,
		Queue:      f.queue,
		Publisher:  f.rec,
		Timeout:    2 * time.Second,
	})
	t.Cleanup(func() {
		f.trigger.Close()
		f.queue.Close()
		_ = db.Close()
	})
	return f
}

func (f *fixture) settle(t *testing.T) {
	t.Helper()
	f.trigger.Wait()
	require.NoError(t, f.queue.Do(func() {}))
}

func TestRunWithoutIdentityIsNoop(t *testing.T) {
	f := newFixture(t)
	f.trigger.Run()
	f.settle(t)
	require.Zero(t, f.docs.calls.Load())
	require.Empty(t, f.rec.all())
}

func TestRunStoresGames(t *testing.T) {
	f := newFixture(t)
	f.ids.set("u1")
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.docs.games = []remote.SavedGame{
		{ID: "g1", Payload: "one", UpdatedAt: at},
		{ID: "g2", Payload: "two", UpdatedAt: at.Add(time.Hour)},
	}

	f.trigger.Run()
	f.settle(t)

	games, err := f.db.SavedGames("u1")
	require.NoError(t, err)
	require.Len(t, games, 2)
	require.Equal(t, "g2", games[0].ID)

	events := f.rec.all()
	require.Len(t, events, 1)
	require.NoError(t, events[0].Err)
	require.Equal(t, 2, events[0].Games)
	require.Equal(t, "u1", events[0].UserID)
}

func TestRunFailureIsReportedOnce(t *testing.T) {
	f := newFixture(t)
	f.ids.set("u1")
	f.docs.err = remote.ErrSyncIncomplete

	f.trigger.Run()
	f.settle(t)

	require.Equal(t, int32(1), f.docs.calls.Load())
	events := f.rec.all()
	require.Len(t, events, 1)
	require.ErrorIs(t, events[0].Err, remote.ErrSyncIncomplete)

	games, err := f.db.SavedGames("u1")
	require.NoError(t, err)
	require.Empty(t, games)
}

func TestOverlappingRunsShareOneRequest(t *testing.T) {
	f := newFixture(t)
	f.ids.set("u1")
	f.docs.block = make(chan struct{})
	f.docs.games = []remote.SavedGame{{ID: "g1", Payload: "x", UpdatedAt: time.Now()}}

	f.trigger.Run()
	require.Eventually(t, func() bool { return f.docs.calls.Load() == 1 }, time.Second, time.Millisecond)
	f.trigger.Run()
	f.trigger.Run()

	close(f.docs.block)
	f.settle(t)

	require.Equal(t, int32(1), f.docs.calls.Load())
	require.Len(t, f.rec.all(), 1)
}

func TestSignOutDuringSyncSkipsStore(t *testing.T) {
	f := newFixture(t)
	f.ids.set("u1")
	f.docs.block = make(chan struct{})
	f.docs.games = []remote.SavedGame{{ID: "g1", Payload: "x", UpdatedAt: time.Now()}}

	f.trigger.Run()
	require.Eventually(t, func() bool { return f.docs.calls.Load() == 1 }, time.Second, time.Millisecond)
	f.ids.set("")
	close(f.docs.block)
	f.settle(t)

	games, err := f.db.SavedGames("u1")
	require.NoError(t, err)
	require.Empty(t, games)

	events := f.rec.all()
	require.Len(t, events, 1)
	require.True(t, errors.Is(events[0].Err, errIdentityChanged))
}
