package codes

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registryRig struct {
	clock *ManualClock
	loop  *Loop
	reg   *Registry
	ticks []Tick
}

func newRegistryRig(opts ...RegistryOption) *registryRig {
	rig := &registryRig{clock: NewManualClock(t0), loop: NewLoop()}
	base := []RegistryOption{
		WithClock(rig.clock),
		WithSpawn(func(f func()) { f() }),
	}
	rig.reg = NewRegistry(rig.loop, func(t Tick) { rig.ticks = append(rig.ticks, t) }, append(base, opts...)...)
	return rig
}

func (r *registryRig) advance(d time.Duration) {
	for d > 0 {
		r.clock.Advance(time.Second)
		r.loop.Drain()
		d -= time.Second
	}
}

// countingRefresh returns a RefreshFunc reporting the given seconds left.
func countingRefresh(calls *int32, remaining int) RefreshFunc {
	return func(context.Context) (Refresh, error) {
		atomic.AddInt32(calls, 1)
		return Refresh{Code: Code{Value: "000000", Remaining: remaining, Window: 30}}, nil
	}
}

func TestRegistrySchedulesAtReportedBoundary(t *testing.T) {
	rig := newRegistryRig()
	var calls int32

	rig.reg.Register("github", countingRefresh(&calls, 27))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "register refreshes immediately")
	rig.loop.Drain()

	wake, ok := rig.reg.NextWake("github")
	require.True(t, ok)
	assert.Equal(t, t0.Add(27*time.Second), wake, "next wake follows remaining_seconds, not the window")
	next, ok := rig.clock.NextWake()
	require.True(t, ok)
	assert.Equal(t, 27*time.Second, next)

	rig.advance(26 * time.Second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "no refresh before the boundary")
	rig.advance(time.Second)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls), "refresh lands on the boundary")
}

func TestRegistryRegisterTwiceLeavesOnePendingTask(t *testing.T) {
	rig := newRegistryRig()
	var first, second int32

	rig.reg.Register("x", countingRefresh(&first, 20))
	rig.reg.Register("x", countingRefresh(&second, 20))
	rig.loop.Drain()

	assert.Equal(t, 1, rig.reg.Pending())
	assert.Equal(t, 1, rig.clock.Pending(), "exactly one timer armed")
	require.Len(t, rig.ticks, 1, "first registration's result is stale")

	rig.advance(20 * time.Second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&first), "replaced refresh never runs again")
	assert.EqualValues(t, 2, atomic.LoadInt32(&second))
	assert.Equal(t, 1, rig.clock.Pending())
}

func TestRegistryCancelAllStopsEverything(t *testing.T) {
	rig := newRegistryRig()
	var calls int32
	for _, id := range []string{"a", "b", "c"} {
		rig.reg.Register(id, countingRefresh(&calls, 7))
	}
	rig.loop.Drain()
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))

	rig.reg.CancelAll()
	assert.Equal(t, 0, rig.reg.Pending())
	assert.Equal(t, 0, rig.clock.Pending())

	rig.advance(10 * time.Minute)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls), "no fetch after CancelAll")
}

func TestRegistryCancelIsIdempotent(t *testing.T) {
	rig := newRegistryRig()
	var calls int32
	rig.reg.Cancel("never-registered")

	rig.reg.Register("a", countingRefresh(&calls, 5))
	rig.loop.Drain()
	rig.reg.Cancel("a")
	rig.reg.Cancel("a")

	assert.False(t, rig.reg.Registered("a"))
	assert.Equal(t, 0, rig.clock.Pending())
}

func TestRegistryFailureFallsBackToWindow(t *testing.T) {
	rig := newRegistryRig(WithFallback(30 * time.Second))
	var calls int32
	boom := &FetchError{Kind: KindServer, Status: 500, Message: "boom"}

	rig.reg.Register("x", func(context.Context) (Refresh, error) {
		atomic.AddInt32(&calls, 1)
		return Refresh{}, boom
	})
	rig.loop.Drain()

	require.Len(t, rig.ticks, 1)
	assert.ErrorIs(t, rig.ticks[0].Err, boom)
	assert.Equal(t, 30*time.Second, rig.ticks[0].Next)

	rig.advance(29 * time.Second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "no tight retry loop")
	rig.advance(time.Second)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestRegistryFailureUsesLastKnownWindow(t *testing.T) {
	rig := newRegistryRig()
	fail := false

	rig.reg.Register("x", func(context.Context) (Refresh, error) {
		if fail {
			return Refresh{}, errors.New("down")
		}
		return Refresh{Code: Code{Value: "1", Remaining: 3, Window: 60}}, nil
	})
	rig.loop.Drain()

	fail = true
	rig.advance(3 * time.Second)
	require.Len(t, rig.ticks, 2)
	assert.Equal(t, 60*time.Second, rig.ticks[1].Next)
}

func TestRegistryZeroRemainingUsesMinDelay(t *testing.T) {
	rig := newRegistryRig()
	var calls int32
	rig.reg.Register("x", countingRefresh(&calls, 0))
	rig.loop.Drain()

	require.Len(t, rig.ticks, 1)
	assert.Equal(t, MinDelay, rig.ticks[0].Next)
}

func TestRegistryDiscardsInFlightResultAfterCancel(t *testing.T) {
	var pending []func()
	rig := newRegistryRig(WithSpawn(func(f func()) { pending = append(pending, f) }))
	var calls int32

	rig.reg.Register("x", countingRefresh(&calls, 15))
	require.Len(t, pending, 1)
	rig.reg.Cancel("x")

	// the network call resolves after the cancel
	pending[0]()
	rig.loop.Drain()

	assert.Empty(t, rig.ticks, "stale result must not be delivered")
	assert.Equal(t, 0, rig.clock.Pending(), "stale result must not reschedule")
}

func TestRegistryEntriesAreIndependent(t *testing.T) {
	rig := newRegistryRig()
	var a, b int32
	rig.reg.Register("a", countingRefresh(&a, 4))
	rig.reg.Register("b", countingRefresh(&b, 9))
	rig.loop.Drain()

	rig.advance(9 * time.Second)
	assert.EqualValues(t, 3, atomic.LoadInt32(&a), "a at 0s, 4s, 8s")
	assert.EqualValues(t, 2, atomic.LoadInt32(&b), "b at 0s, 9s")
	assert.ElementsMatch(t, []string{"a", "b"}, rig.reg.IDs())
}

func TestRegistryRefreshGetsContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	rig := newRegistryRig(WithContext(ctx))

	var got any
	rig.reg.Register("x", func(ctx context.Context) (Refresh, error) {
		got = ctx.Value(key{})
		return Refresh{Code: Code{Remaining: 5, Window: 30}}, nil
	})
	assert.Equal(t, "v", got)
}
