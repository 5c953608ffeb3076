// Package dispatch provides the single serial execution context that owns
// presentation state. Background work hands results back with Post so state
// and event delivery never run concurrently.
package dispatch

import (
	"errors"
	"sync"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("sudoku/dispatch")

// ErrClosed is returned when posting to a stopped queue.
var ErrClosed = errors.New("dispatch: queue closed")

// Queue runs posted funcs one at a time, in post order, on its own goroutine.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	closed  bool

	wake chan struct{}
	done chan struct{}
}

func NewQueue() *Queue {
	q := &Queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.loop()
	return q
}

// Post enqueues fn without waiting for it to run.
func (q *Queue) Post(fn func()) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Do enqueues fn and waits until it has run. It must not be called from a
// func already running on q.
func (q *Queue) Do(fn func()) error {
	ran := make(chan struct{})
	if err := q.Post(func() {
		defer close(ran)
		fn()
	}); err != nil {
		return err
	}
	// Accepted work is always drained before the loop exits.
	<-ran
	return nil
}

// Close stops accepting work, runs what is already queued and returns once
// the loop has exited.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-q.done
}

func (q *Queue) loop() {
	defer close(q.done)
	for {
		<-q.wake

		for {
			q.mu.Lock()
			batch := q.pending
			q.pending = nil
			closed := q.closed
			q.mu.Unlock()

			if len(batch) == 0 {
				if closed {
					return
				}
				break
			}
			for _, fn := range batch {
				run(fn)
			}
		}
	}
}

func run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("queued func panicked", "panic", r)
		}
	}()
	fn()
}
