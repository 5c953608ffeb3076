// Package syncer pulls the signed-in user's saved games into local storage.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/singleflight"

	"github.com/petervdpas/sudoku/internal/notify"
	"github.com/petervdpas/sudoku/internal/remote"
	"github.com/petervdpas/sudoku/internal/storage"
	"github.com/petervdpas/sudoku/internal/util"
)

var log = logging.Logger("sudoku/syncer")

var errIdentityChanged = errors.New("identity changed during sync")

type Identities interface {
	CurrentIdentity() *remote.Identity
}

type Documents interface {
	SyncDown(ctx context.Context, id remote.Identity) ([]remote.SavedGame, error)
}

type Store interface {
	UpsertSavedGames(games []storage.SavedGame) (int, error)
}

type Poster interface {
	Post(fn func()) error
}

type Publisher interface {
	Publish(notify.Event)
}

type Options struct {
	Identities Identities
	Documents  Documents
	Store      Store
	Queue      Poster
	Publisher  Publisher
	Timeout    time.Duration
}

// Trigger runs one-shot sync-downs. Overlapping runs for the same user share
// a single request, and only the most recent run reports the outcome.
type Trigger struct {
	ids     Identities
	docs    Documents
	store   Store
	queue   Poster
	pub     Publisher
	timeout time.Duration

	flights singleflight.Group
	gen     atomic.Uint64
	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
}

func New(opts Options) *Trigger {
	if opts.Timeout <= 0 {
		opts.Timeout = util.DefaultFetchTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Trigger{
		ids:     opts.Identities,
		docs:    opts.Documents,
		store:   opts.Store,
		queue:   opts.Queue,
		pub:     opts.Publisher,
		timeout: opts.Timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Run returns immediately. With no identity attached it does nothing.
// There is no retry; a failure is logged and reported once.
func (t *Trigger) Run() {
	id := t.ids.CurrentIdentity()
	if id == nil {
		return
	}
	gen := t.gen.Add(1)

	// DoChan joins an in-flight request before returning.
	results := t.flights.DoChan(id.UserID, func() (any, error) {
		return t.syncDown(*id)
	})

	t.pending.Add(1)
	go func() {
		defer t.pending.Done()

		res := <-results
		n, _ := res.Val.(int)
		err := res.Err

		if t.gen.Load() != gen {
			log.Debugw("discarding stale sync result", "user", id.UserID, "gen", gen, "shared", res.Shared)
			return
		}
		if err != nil {
			log.Warnw("sync failed", "user", id.UserID, "err", err)
		} else {
			log.Infow("sync finished", "user", id.UserID, "games", n)
		}
		t.report(gen, notify.SyncFinished{UserID: id.UserID, Games: n, Err: err})
	}()
}

func (t *Trigger) syncDown(id remote.Identity) (int, error) {
	ctx, cancel := context.WithTimeout(t.ctx, t.timeout)
	defer cancel()

	games, err := t.docs.SyncDown(ctx, id)
	if err != nil {
		return 0, err
	}

	// A sign-out or account switch while the stream was open voids the result.
	if cur := t.ids.CurrentIdentity(); cur == nil || cur.UserID != id.UserID {
		return 0, errIdentityChanged
	}

	rows := make([]storage.SavedGame, 0, len(games))
	for _, g := range games {
		rows = append(rows, storage.SavedGame{
			ID:        g.ID,
			UserID:    id.UserID,
			Payload:   g.Payload,
			UpdatedAt: g.UpdatedAt,
		})
	}
	if _, err := t.store.UpsertSavedGames(rows); err != nil {
		return 0, fmt.Errorf("store synced games: %w", err)
	}
	return len(rows), nil
}

func (t *Trigger) report(gen uint64, e notify.SyncFinished) {
	if t.pub == nil {
		return
	}
	err := t.queue.Post(func() {
		if t.gen.Load() != gen {
			return
		}
		t.pub.Publish(e)
	})
	if err != nil {
		log.Debugw("dropping sync report", "err", err)
	}
}

// Wait blocks until in-flight runs have finished.
func (t *Trigger) Wait() {
	t.pending.Wait()
}

// Close cancels in-flight runs and waits for them.
func (t *Trigger) Close() {
	t.cancel()
	t.pending.Wait()
}
