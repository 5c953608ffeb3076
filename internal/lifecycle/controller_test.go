package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petervdpas/sudoku/internal/notify"
	"github.com/petervdpas/sudoku/internal/storage"
	"github.com/petervdpas/sudoku/internal/util"
)

type fakeStore struct {
	mu      sync.Mutex
	floats  map[string]float64
	flushes atomic.Int32
	block   chan struct{}
	setErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{floats: map[string]float64{}}
}

func (s *fakeStore) Float(key string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.floats[key], nil
}

func (s *fakeStore) SetFloat(key string, v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.floats[key] = v
	return nil
}

func (s *fakeStore) Flush() error {
	if s.block != nil {
		<-s.block
	}
	s.flushes.Add(1)
	return nil
}

type counter struct{ n atomic.Int32 }

func (c *counter) Validate() { c.n.Add(1) }
func (c *counter) Run()      { c.n.Add(1) }

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Publish(e notify.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Kind
	for _, e := range r.events {
		out = append(out, e.Kind())
	}
	return out
}

type clock struct{ now float64 }

func (c *clock) Now() time.Time { return util.FromUnixSeconds(c.now) }

func newController(t *testing.T) (*Controller, *fakeStore, *clock, *recorder, *counter, *counter) {
	t.Helper()
	store := newFakeStore()
	clk := &clock{}
	rec := &recorder{}
	validator, syncer := &counter{}, &counter{}
	c := New(Options{
		Store:     store,
		Publisher: rec,
		Validator: validator,
		Syncer:    syncer,
		Now:       clk.Now,
	})
	t.Cleanup(c.Wait)
	return c, store, clk, rec, validator, syncer
}

func TestDecideBoundary(t *testing.T) {
	tests := []struct {
		name      string
		now, last float64
		cold      bool
	}{
		{"exactly threshold is warm", 1120, 1000, false},
		{"just past threshold is cold", 1120.01, 1000, true},
		{"well past threshold", 5000, 1000, true},
		{"never backgrounded", 1e9, 0, false},
		{"clock went backwards", 900, 1000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.now, tt.last, DefaultThreshold)
			require.Equal(t, tt.cold, d.ColdResume)
		})
	}
}

func TestParseSignal(t *testing.T) {
	for _, s := range []Signal{Active, Inactive, Background} {
		got, err := ParseSignal(s.String())
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
	got, err := ParseSignal(" Background ")
	require.NoError(t, err)
	require.Equal(t, Background, got)

	_, err = ParseSignal("suspended")
	require.Error(t, err)
}

func TestColdThenWarmResume(t *testing.T) {
	ctx := context.Background()
	c, store, clk, rec, validator, syncer := newController(t)
	rootBefore := c.RootID()

	clk.now = 1000
	_, err := c.Handle(ctx, Background)
	require.NoError(t, err)
	require.Equal(t, 1000.0, store.floats[storage.KeyLastBackgroundTime])

	clk.now = 1121
	d, err := c.Handle(ctx, Active)
	require.NoError(t, err)
	require.True(t, d.ColdResume)
	require.Equal(t, 121*time.Second, d.Elapsed)
	require.NotEqual(t, rootBefore, c.RootID())

	require.True(t, c.ConsumeColdResume())
	require.False(t, c.ConsumeColdResume())

	clk.now = 1150
	_, err = c.Handle(ctx, Background)
	require.NoError(t, err)
	rootAfterCold := c.RootID()

	clk.now = 1200
	d, err = c.Handle(ctx, Active)
	require.NoError(t, err)
	require.False(t, d.ColdResume)
	require.False(t, c.ConsumeColdResume())
	require.Equal(t, rootAfterCold, c.RootID())

	require.Equal(t, int32(2), validator.n.Load())
	require.Equal(t, int32(2), syncer.n.Load())
	require.Equal(t, []notify.Kind{notify.KindColdResume}, rec.kinds())
}

func TestBackgroundPublishesNothing(t *testing.T) {
	ctx := context.Background()
	c, store, clk, rec, _, _ := newController(t)

	clk.now = 1000
	_, err := c.Handle(ctx, Inactive)
	require.NoError(t, err)
	_, err = c.Handle(ctx, Background)
	require.NoError(t, err)
	c.Wait()

	require.Equal(t, 1000.0, store.floats[storage.KeyLastBackgroundTime])
	require.Empty(t, rec.kinds())
}

func TestResumeAtThresholdIsWarm(t *testing.T) {
	ctx := context.Background()
	c, _, clk, _, _, _ := newController(t)

	clk.now = 1000
	_, err := c.Handle(ctx, Inactive)
	require.NoError(t, err)
	clk.now = 1120
	d, err := c.Handle(ctx, Active)
	require.NoError(t, err)
	require.False(t, d.ColdResume)
	require.False(t, c.ConsumeColdResume())
}

func TestFirstResumeWithoutTimestampIsWarm(t *testing.T) {
	ctx := context.Background()
	c, store, clk, _, validator, _ := newController(t)

	// Force a transition without recording a background time.
	store.setErr = errors.New("read only")
	_, err := c.Handle(ctx, Background)
	require.Error(t, err)
	store.setErr = nil

	clk.now = 1e9
	d, err := c.Handle(ctx, Active)
	require.NoError(t, err)
	require.False(t, d.ColdResume)
	require.Equal(t, int32(1), validator.n.Load())
}

func TestRapidTransitionsKeepLatestTimestamp(t *testing.T) {
	ctx := context.Background()
	c, store, clk, _, _, _ := newController(t)

	clk.now = 1000
	_, _ = c.Handle(ctx, Inactive)
	clk.now = 1000.2
	_, _ = c.Handle(ctx, Background)
	require.InDelta(t, 1000.2, store.floats[storage.KeyLastBackgroundTime], 1e-6)

	clk.now = 1120.1
	d, err := c.Handle(ctx, Active)
	require.NoError(t, err)
	require.False(t, d.ColdResume, "elapsed is measured from the latest background entry")
}

func TestRepeatedSignalIsIgnored(t *testing.T) {
	ctx := context.Background()
	c, store, clk, _, validator, _ := newController(t)

	_, err := c.Handle(ctx, Active)
	require.NoError(t, err)
	require.Zero(t, validator.n.Load())

	clk.now = 1000
	_, _ = c.Handle(ctx, Background)
	clk.now = 1100
	_, _ = c.Handle(ctx, Background)
	require.Equal(t, 1000.0, store.floats[storage.KeyLastBackgroundTime])
	require.Equal(t, Background, c.State())
}

func TestFlushDoesNotBlockTransition(t *testing.T) {
	c, store, clk, _, _, _ := newController(t)
	store.block = make(chan struct{})

	clk.now = 1000
	done := make(chan struct{})
	go func() {
		_, _ = c.Handle(context.Background(), Background)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle blocked on Flush")
	}
	require.Zero(t, store.flushes.Load())

	close(store.block)
	c.Wait()
	require.Equal(t, int32(1), store.flushes.Load())
}
