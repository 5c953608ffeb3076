// Package notify is the in-process event bus between the presentation state
// coordinator and the view layer.
//
// Handlers for one kind run in registration order, followed by the Any
// subscribers. Publish runs handlers on the calling goroutine without holding
// the bus lock, so a handler may publish or (un)subscribe. Appearance
// events are published while the appearance mutation lock is held, so a
// handler must not apply an appearance change synchronously; it should
// post the change to the UI queue instead.
package notify

import (
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/sudoku/internal/util"
)

var log = logging.Logger("sudoku/notify")

// recentCap is how many published events Recent can return.
const recentCap = 64

type Handler func(Event)

// Record is a published event as kept for the debug panel.
type Record struct {
	At      time.Time      `json:"at"`
	Kind    Kind           `json:"kind"`
	Payload map[string]any `json:"payload"`
}

type subscription struct {
	id uint64
	fn Handler
}

type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Kind][]subscription

	recent *util.RingBuffer[Record]
	now    func() time.Time
}

func NewBus() *Bus {
	return &Bus{
		subs:   make(map[Kind][]subscription),
		recent: util.NewRingBuffer[Record](recentCap),
		now:    time.Now,
	}
}

// Subscribe registers fn for kind and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(kind Kind, fn Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(kind, id) })
	}
}

func (b *Bus) remove(kind Kind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[kind]
	for i, s := range list {
		if s.id == id {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(b.subs, kind)
			} else {
				b.subs[kind] = list
			}
			return
		}
	}
}

// Publish delivers e to the subscribers registered when Publish was called.
func (b *Bus) Publish(e Event) {
	kind := e.Kind()
	b.recent.Push(Record{At: b.now(), Kind: kind, Payload: e.Payload()})

	b.mu.RLock()
	targets := make([]subscription, 0, len(b.subs[kind])+len(b.subs[Any]))
	targets = append(targets, b.subs[kind]...)
	if kind != Any {
		targets = append(targets, b.subs[Any]...)
	}
	b.mu.RUnlock()

	log.Debugw("publish", "kind", kind, "subscribers", len(targets))
	for _, s := range targets {
		safeCall(kind, s.fn, e)
	}
}

// safeCall isolates subscribers from each other's panics.
func safeCall(kind Kind, fn Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("subscriber panicked", "kind", kind, "panic", r)
		}
	}()
	fn(e)
}

// Recent returns up to n of the latest published events, oldest first.
func (b *Bus) Recent(n int) []Record {
	return b.recent.Last(n)
}

// Subscribers reports how many handlers are registered for kind.
func (b *Bus) Subscribers(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}

// Close drops every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	b.subs = make(map[Kind][]subscription)
	b.mu.Unlock()
}
