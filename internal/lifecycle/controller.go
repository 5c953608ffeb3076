// Package lifecycle tracks foreground/background transitions and decides
// whether a return to the foreground is a cold or a warm resume.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/petervdpas/sudoku/internal/notify"
	"github.com/petervdpas/sudoku/internal/storage"
	"github.com/petervdpas/sudoku/internal/telemetry"
	"github.com/petervdpas/sudoku/internal/util"
)

var log = logging.Logger("sudoku/lifecycle")

// DefaultThreshold is the background time after which a resume is cold.
const DefaultThreshold = 120 * time.Second

type Signal int

const (
	Active Signal = iota
	Inactive
	Background
)

func (s Signal) String() string {
	switch s {
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	case Background:
		return "background"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// ParseSignal accepts the phase names sent by the frontend.
func ParseSignal(s string) (Signal, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return Active, nil
	case "inactive":
		return Inactive, nil
	case "background":
		return Background, nil
	}
	return 0, fmt.Errorf("unknown lifecycle signal %q", s)
}

// Store persists the background timestamp.
type Store interface {
	Float(key string) (float64, error)
	SetFloat(key string, v float64) error
	Flush() error
}

// Validator re-checks the remote credential. Validate must not block.
type Validator interface {
	Validate()
}

// Syncer pulls remote data into local storage. Run must not block.
type Syncer interface {
	Run()
}

type Publisher interface {
	Publish(notify.Event)
}

// Decision is the outcome of one return to the foreground.
type Decision struct {
	ColdResume bool
	Elapsed    time.Duration
}

// Decide reports a cold resume when a background entry was recorded
// (last > 0) and strictly more than threshold has passed since. Times are
// unix seconds.
func Decide(now, last float64, threshold time.Duration) Decision {
	if last <= 0 {
		return Decision{}
	}
	elapsed := now - last
	return Decision{
		ColdResume: elapsed > threshold.Seconds(),
		Elapsed:    time.Duration(elapsed * float64(time.Second)),
	}
}

type Options struct {
	Store     Store
	Publisher Publisher
	Validator Validator
	Syncer    Syncer

	// Threshold defaults to DefaultThreshold.
	Threshold time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type Controller struct {
	store     Store
	pub       Publisher
	validator Validator
	syncer    Syncer
	threshold time.Duration
	now       func() time.Time
	tracer    oteltrace.Tracer

	mu          sync.Mutex
	state       Signal
	rootID      string
	coldPending bool

	flushes sync.WaitGroup
}

// New returns a controller in the Active state. Validator, Syncer and
// Publisher may be nil.
func New(opts Options) *Controller {
	c := &Controller{
		store:     opts.Store,
		pub:       opts.Publisher,
		validator: opts.Validator,
		syncer:    opts.Syncer,
		threshold: opts.Threshold,
		now:       opts.Now,
		tracer:    telemetry.Tracer("sudoku/lifecycle"),
		state:     Active,
		rootID:    uuid.NewString(),
	}
	if c.threshold <= 0 {
		c.threshold = DefaultThreshold
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// State returns the current phase.
func (c *Controller) State() Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RootID identifies the current root presentation. It changes on every
// cold resume.
func (c *Controller) RootID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rootID
}

// ConsumeColdResume reports whether a cold resume is pending and clears it.
func (c *Controller) ConsumeColdResume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := c.coldPending
	c.coldPending = false
	return pending
}

// Handle applies one lifecycle signal. Repeating the current phase is
// ignored. The returned Decision is only meaningful for Active.
func (c *Controller) Handle(ctx context.Context, sig Signal) (Decision, error) {
	c.mu.Lock()
	prev := c.state
	if sig == prev {
		c.mu.Unlock()
		return Decision{}, nil
	}
	c.state = sig
	c.mu.Unlock()

	log.Debugw("lifecycle transition", "from", prev, "to", sig)

	switch sig {
	case Inactive, Background:
		return Decision{}, c.enterBackground()
	case Active:
		return c.resume(ctx)
	default:
		return Decision{}, fmt.Errorf("unknown lifecycle signal %d", int(sig))
	}
}

func (c *Controller) enterBackground() error {
	now := util.UnixSeconds(c.now())
	if err := c.store.SetFloat(storage.KeyLastBackgroundTime, now); err != nil {
		log.Errorw("record background time", "err", err)
		return fmt.Errorf("record background time: %w", err)
	}

	c.flushes.Add(1)
	go func() {
		defer c.flushes.Done()
		if err := c.store.Flush(); err != nil {
			log.Warnw("flush after background", "err", err)
		}
	}()
	return nil
}

func (c *Controller) resume(ctx context.Context) (Decision, error) {
	_, span := c.tracer.Start(ctx, "lifecycle.resume")
	defer span.End()

	last, err := c.store.Float(storage.KeyLastBackgroundTime)
	if err != nil {
		span.RecordError(err)
		log.Errorw("read background time", "err", err)
		err = fmt.Errorf("read background time: %w", err)
		last = 0
	}

	d := Decide(util.UnixSeconds(c.now()), last, c.threshold)
	span.SetAttributes(
		attribute.Bool("lifecycle.cold_resume", d.ColdResume),
		attribute.Float64("lifecycle.elapsed_seconds", d.Elapsed.Seconds()),
	)

	if d.ColdResume {
		c.mu.Lock()
		c.rootID = uuid.NewString()
		c.coldPending = true
		root := c.rootID
		c.mu.Unlock()

		log.Infow("cold resume", "elapsed", d.Elapsed, "root", root)
		if c.pub != nil {
			c.pub.Publish(notify.ColdResume{RootID: root, Elapsed: d.Elapsed})
		}
	} else {
		log.Debugw("warm resume", "elapsed", d.Elapsed)
	}

	if c.validator != nil {
		c.validator.Validate()
	}
	if c.syncer != nil {
		c.syncer.Run()
	}
	return d, err
}

// Wait blocks until background flushes started by Handle have returned.
func (c *Controller) Wait() {
	c.flushes.Wait()
}
