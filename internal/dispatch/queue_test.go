package dispatch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostRunsInOrder(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.NoError(t, q.Post(func() { got = append(got, i) }))
	}
	require.NoError(t, q.Do(func() {}))

	require.Len(t, got, 100)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestPostFromManyGoroutinesIsSerialized(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Post(func() { counter++ })
		}()
	}
	wg.Wait()
	require.NoError(t, q.Do(func() {}))
	require.Equal(t, 50, counter)
}

func TestPostFromQueuedFunc(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	done := make(chan struct{})
	require.NoError(t, q.Post(func() {
		_ = q.Post(func() { close(done) })
	}))
	<-done
}

func TestPanicKeepsLoopAlive(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	require.NoError(t, q.Post(func() { panic("boom") }))
	ran := false
	require.NoError(t, q.Do(func() { ran = true }))
	require.True(t, ran)
}

func TestCloseDrainsThenRejects(t *testing.T) {
	q := NewQueue()
	ran := 0
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Post(func() { ran++ }))
	}
	q.Close()
	require.Equal(t, 10, ran)

	require.ErrorIs(t, q.Post(func() {}), ErrClosed)
	require.ErrorIs(t, q.Do(func() {}), ErrClosed)
	q.Close()
}
