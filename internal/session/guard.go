// Package session re-validates the remote credential when the app resumes.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/sudoku/internal/notify"
	"github.com/petervdpas/sudoku/internal/remote"
	"github.com/petervdpas/sudoku/internal/util"
)

var log = logging.Logger("sudoku/session")

// Auth is the identity provider the guard checks against.
type Auth interface {
	CurrentIdentity() *remote.Identity
	ForceRefresh(ctx context.Context, id remote.Identity) error
	SignOut() error
}

// Poster runs fn on the UI queue.
type Poster interface {
	Post(fn func()) error
}

type Publisher interface {
	Publish(notify.Event)
}

// Guard forces a credential refresh and signs the user out when it fails. Only the most recent Validate call may act on its result.
type Guard struct {
	auth    Auth
	queue   Poster
	pub     Publisher
	timeout time.Duration

	gen     atomic.Uint64
	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
}

func NewGuard(auth Auth, queue Poster, pub Publisher, timeout time.Duration) *Guard {
	if timeout <= 0 {
		timeout = util.DefaultFetchTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Guard{
		auth:    auth,
		queue:   queue,
		pub:     pub,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Validate returns immediately. With no identity attached it does nothing.
func (g *Guard) Validate() {
	id := g.auth.CurrentIdentity()
	if id == nil {
		return
	}
	gen := g.gen.Add(1)

	g.pending.Add(1)
	go func() {
		defer g.pending.Done()
		g.check(gen, *id)
	}()
}

func (g *Guard) check(gen uint64, id remote.Identity) {
	ctx, cancel := context.WithTimeout(g.ctx, g.timeout)
	err := g.auth.ForceRefresh(ctx, id)
	cancel()

	if err == nil {
		log.Debugw("credential refreshed", "user", id.UserID)
		return
	}
	if g.ctx.Err() != nil {
		log.Debugw("credential check cancelled", "user", id.UserID)
		return
	}
	if !g.current(gen, id) {
		log.Infow("discarding stale credential result", "user", id.UserID, "gen", gen)
		return
	}

	// Any failed forced refresh ends the session, not only an explicit
	// rejection from the backend.
	log.Warnw("credential check failed, signing out", "user", id.UserID,
		"rejected", errors.Is(err, remote.ErrCredentialInvalid), "err", err)
	err = g.queue.Post(func() {
		if !g.current(gen, id) {
			log.Infow("discarding stale sign-out", "user", id.UserID, "gen", gen)
			return
		}
		if err := g.auth.SignOut(); err != nil {
			log.Errorw("sign out", "user", id.UserID, "err", err)
		}
		if g.pub != nil {
			g.pub.Publish(notify.UserLoggedOut{})
		}
	})
	if err != nil {
		log.Warnw("dropping sign-out", "user", id.UserID, "err", err)
	}
}

// current reports whether gen is still the latest validation and id is
// still the attached identity.
func (g *Guard) current(gen uint64, id remote.Identity) bool {
	if g.gen.Load() != gen {
		return false
	}
	cur := g.auth.CurrentIdentity()
	return cur != nil && cur.UserID == id.UserID
}

// Wait blocks until in-flight validations have finished.
func (g *Guard) Wait() {
	g.pending.Wait()
}

// Close cancels in-flight validations and waits for them.
func (g *Guard) Close() {
	g.cancel()
	g.pending.Wait()
}
