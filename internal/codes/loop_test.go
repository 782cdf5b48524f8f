package codes

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopDrainRunsInOrder(t *testing.T) {
	l := NewLoop()
	var got []int
	for i := 0; i < 3; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	l.Post(func() {
		l.Post(func() { got = append(got, 99) })
	})

	assert.Equal(t, 5, l.Drain())
	assert.Equal(t, []int{0, 1, 2, 99}, got)
	assert.Equal(t, 0, l.Len())
}

func TestLoopRunAndDo(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	var mu sync.Mutex
	n := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Do(ctx, func() {
				mu.Lock()
				n++
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	mu.Lock()
	assert.Equal(t, 20, n)
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLoopDoHonorsContext(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Do(ctx, func() {})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, l.Len(), "posted function stays queued")
}

func TestManualClockFiresInOrder(t *testing.T) {
	c := NewManualClock(t0)
	var fired []string
	c.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "b") })
	stopped := c.AfterFunc(2*time.Second, func() { fired = append(fired, "never") })

	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	wake, ok := c.NextWake()
	require.True(t, ok)
	assert.Equal(t, time.Second, wake)

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, t0.Add(2*time.Second), c.Now())
	assert.Equal(t, 1, c.Pending())

	c.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	_, ok = c.NextWake()
	assert.False(t, ok)
}

func TestManualClockTimerSeesFireTime(t *testing.T) {
	c := NewManualClock(t0)
	var at time.Time
	c.AfterFunc(4*time.Second, func() { at = c.Now() })

	c.Advance(10 * time.Second)
	assert.Equal(t, t0.Add(4*time.Second), at)
	assert.Equal(t, t0.Add(10*time.Second), c.Now())
}
