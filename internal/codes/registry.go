package codes

import (
	"context"
	"time"

	"github.com/Dicklesworthstone/otpdash/internal/logging"
)

// MinDelay is the shortest gap between two refreshes of one entry. A server
// reporting zero seconds left would otherwise be asked again immediately.
const MinDelay = time.Second

// RefreshFunc fetches fresh data for one registration. It runs off the loop
// and may block on the network.
type RefreshFunc func(ctx context.Context) (Refresh, error)

// Registry owns at most one scheduled refresh per entry ID. Each refresh is
// scheduled at the boundary the server reported on the previous fetch.
//
// Every method except the constructor must be called on the loop given to
// NewRegistry.
type Registry struct {
	loop     Poster
	onTick   func(Tick)
	clock    Clock
	spawn    func(func())
	fallback time.Duration
	ctx      context.Context
	log      logging.Logger

	seq   uint64
	tasks map[string]*task
}

type task struct {
	gen      uint64
	fn       RefreshFunc
	timer    Timer
	wakeAt   time.Time
	window   int // last reported window length, seconds
	inflight bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock sets the time source. Defaults to RealClock.
func WithClock(c Clock) RegistryOption {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithFallback sets the delay used after a failed refresh when the entry's
// window length is not yet known. Defaults to DefaultWindowSeconds.
func WithFallback(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.fallback = d
		}
	}
}

// WithContext sets the context handed to every RefreshFunc.
func WithContext(ctx context.Context) RegistryOption {
	return func(r *Registry) {
		if ctx != nil {
			r.ctx = ctx
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithSpawn replaces the function used to start a RefreshFunc off the loop.
// Defaults to starting a goroutine.
func WithSpawn(spawn func(func())) RegistryOption {
	return func(r *Registry) {
		if spawn != nil {
			r.spawn = spawn
		}
	}
}

// NewRegistry returns an empty registry. onTick is called on the loop with
// every result that is still current.
func NewRegistry(loop Poster, onTick func(Tick), opts ...RegistryOption) *Registry {
	r := &Registry{
		loop:     loop,
		onTick:   onTick,
		clock:    RealClock(),
		spawn:    func(f func()) { go f() },
		fallback: DefaultWindowSeconds * time.Second,
		ctx:      context.Background(),
		log:      logging.Nop(),
		tasks:    make(map[string]*task),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.onTick == nil {
		r.onTick = func(Tick) {}
	}
	return r
}

// Register cancels any schedule for id, runs fn right away and keeps
// rescheduling it at each reported window boundary.
func (r *Registry) Register(id string, fn RefreshFunc) {
	window := 0
	if prev, ok := r.tasks[id]; ok {
		window = prev.window
	}
	r.Cancel(id)

	r.seq++
	t := &task{gen: r.seq, fn: fn, window: window}
	r.tasks[id] = t
	r.run(id, t)
}

// Cancel drops the schedule for id. Unknown ids are ignored. A fetch already
// in flight is not aborted; its result is discarded.
func (r *Registry) Cancel(id string) {
	t, ok := r.tasks[id]
	if !ok {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	delete(r.tasks, id)
}

// CancelAll drops every schedule. No RefreshFunc runs afterwards until the
// next Register.
func (r *Registry) CancelAll() {
	for id := range r.tasks {
		r.Cancel(id)
	}
}

// Registered reports whether id has a live schedule.
func (r *Registry) Registered(id string) bool {
	_, ok := r.tasks[id]
	return ok
}

// Pending returns the number of live schedules, one per registered id.
func (r *Registry) Pending() int {
	return len(r.tasks)
}

// IDs returns the registered ids in no particular order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.tasks))
	for id := range r.tasks {
		ids = append(ids, id)
	}
	return ids
}

// NextWake returns when id will next be refreshed. It is false while the
// entry is unregistered or a fetch is in flight.
func (r *Registry) NextWake(id string) (time.Time, bool) {
	t, ok := r.tasks[id]
	if !ok || t.timer == nil {
		return time.Time{}, false
	}
	return t.wakeAt, true
}

func (r *Registry) run(id string, t *task) {
	t.inflight = true
	gen, fn, ctx := t.gen, t.fn, r.ctx

	r.spawn(func() {
		res, err := fn(ctx)
		r.loop.Post(func() { r.complete(id, gen, res, err) })
	})
}

func (r *Registry) complete(id string, gen uint64, res Refresh, err error) {
	t, ok := r.tasks[id]
	if !ok || t.gen != gen {
		r.log.Debug(r.ctx, "dropping refresh result", "entry", id, "reason", ErrStaleResult)
		return
	}
	t.inflight = false

	var delay time.Duration
	if err != nil {
		delay = r.fallbackFor(t)
		r.log.Warn(r.ctx, "refresh failed", "entry", id, "error", err, "retry_in", delay)
	} else {
		if res.Code.Window > 0 {
			t.window = res.Code.Window
		}
		delay = delayFor(res.Code)
		r.log.Debug(r.ctx, "refreshed", "entry", id, "next", delay)
	}
	r.schedule(id, t, delay)

	r.onTick(Tick{
		EntryID: id,
		Refresh: res,
		Err:     err,
		At:      r.clock.Now(),
		Next:    delay,
	})
}

func (r *Registry) schedule(id string, t *task, delay time.Duration) {
	gen := t.gen
	t.wakeAt = r.clock.Now().Add(delay)
	t.timer = r.clock.AfterFunc(delay, func() {
		r.loop.Post(func() { r.wake(id, gen) })
	})
}

func (r *Registry) wake(id string, gen uint64) {
	t, ok := r.tasks[id]
	if !ok || t.gen != gen || t.timer == nil {
		return
	}
	t.timer = nil
	r.run(id, t)
}

func (r *Registry) fallbackFor(t *task) time.Duration {
	if t.window > 0 {
		return time.Duration(t.window) * time.Second
	}
	return r.fallback
}

// delayFor converts the reported seconds remaining into the wait before the
// next fetch.
func delayFor(c Code) time.Duration {
	remaining := c.Remaining
	if c.Window > 0 && remaining > c.Window {
		remaining = c.Window
	}
	d := time.Duration(remaining) * time.Second
	if d < MinDelay {
		return MinDelay
	}
	return d
}
