package codes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC)

// fakeFetcher serves canned codes and counts calls.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	codes   map[string]Code
	errs    map[string]error
	all     []Listed
	allErr  error
	details map[string]Details
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls:   make(map[string]int),
		codes:   make(map[string]Code),
		errs:    make(map[string]error),
		details: make(map[string]Details),
	}
}

func (f *fakeFetcher) FetchCode(_ context.Context, id string) (Code, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	if err := f.errs[id]; err != nil {
		return Code{}, err
	}
	c, ok := f.codes[id]
	if !ok {
		return Code{}, &FetchError{Kind: KindServer, EntryID: id, Status: 404, Message: "not found"}
	}
	return c, nil
}

func (f *fakeFetcher) FetchAll(context.Context) ([]Listed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[BatchKey]++
	if f.allErr != nil {
		return nil, f.allErr
	}
	return append([]Listed(nil), f.all...), nil
}

func (f *fakeFetcher) FetchDetails(_ context.Context, id string) (Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["details:"+id]++
	d, ok := f.details[id]
	if !ok {
		return Details{}, errors.New("no details")
	}
	return d, nil
}

func (f *fakeFetcher) set(id string, c Code) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[id] = c
	delete(f.errs, id)
}

func (f *fakeFetcher) fail(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[id] = err
}

func (f *fakeFetcher) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// fakeRenderer records what the board drew.
type fakeRenderer struct {
	rows    map[string]Row
	renders map[string]int
	removed []string
	details []DetailView
	closed  int
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{rows: make(map[string]Row), renders: make(map[string]int)}
}

func (r *fakeRenderer) RenderRow(row Row) {
	r.rows[row.Entry.ID] = row
	r.renders[row.Entry.ID]++
}

func (r *fakeRenderer) RemoveRow(id string) {
	delete(r.rows, id)
	r.removed = append(r.removed, id)
}

func (r *fakeRenderer) RenderDetail(v DetailView) { r.details = append(r.details, v) }
func (r *fakeRenderer) CloseDetail()              { r.closed++ }

type recordingNotifier struct {
	notices []Notice
}

func (n *recordingNotifier) Notify(notice Notice) { n.notices = append(n.notices, notice) }

func (n *recordingNotifier) errors() []Notice {
	var out []Notice
	for _, x := range n.notices {
		if x.Level == NoticeError {
			out = append(out, x)
		}
	}
	return out
}

type fakeCopier struct {
	text string
	err  error
}

func (c *fakeCopier) Copy(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

// harness drives a Board on a manual clock and a drained loop.
type harness struct {
	t        *testing.T
	clock    *ManualClock
	loop     *Loop
	fetcher  *fakeFetcher
	renderer *fakeRenderer
	notifier *recordingNotifier
	copier   *fakeCopier
	board    *Board
}

func newHarness(t *testing.T, mode Mode) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		clock:    NewManualClock(t0),
		loop:     NewLoop(),
		fetcher:  newFakeFetcher(),
		renderer: newFakeRenderer(),
		notifier: &recordingNotifier{},
		copier:   &fakeCopier{},
	}
	h.board = NewBoard(BoardConfig{
		Loop:     h.loop,
		Fetcher:  h.fetcher,
		Renderer: h.renderer,
		Notifier: h.notifier,
		Copier:   h.copier,
		Clock:    h.clock,
		Mode:     mode,
		Window:   30,
		Spawn:    func(f func()) { f() },
	})
	return h
}

// advance moves simulated time forward one second at a time, draining the
// loop after each step so rescheduled timers are picked up.
func (h *harness) advance(d time.Duration) {
	for d > 0 {
		step := time.Second
		if d < step {
			step = d
		}
		h.clock.Advance(step)
		h.loop.Drain()
		d -= step
	}
}

// code returns a Code as the server would report it at the harness time.
func (h *harness) code(value string, remaining int) Code {
	return Code{Value: value, Remaining: remaining, Window: 30, FetchedAt: h.clock.Now()}
}
