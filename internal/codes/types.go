package codes

import "time"

// Entry is a stored credential as far as the refresh core cares. The rest of
// the record belongs to the CRUD layer.
type Entry struct {
	ID       string
	Title    string
	Username string
	URL      string
	HasCode  bool
}

// Label returns the title, or the ID when the entry has no title.
func (e Entry) Label() string {
	if e.Title != "" {
		return e.Title
	}
	return e.ID
}

// Code is the last known one-time code of an entry.
type Code struct {
	Value     string
	Remaining int // seconds left in the window when fetched
	Window    int // window length in seconds
	FetchedAt time.Time
}

// State returns the countdown state at fetch time.
func (c Code) State() WindowState {
	return Window(c.Remaining, c.Window)
}

// StateAt returns the countdown state at now, counting down locally from
// FetchedAt.
func (c Code) StateAt(now time.Time) WindowState {
	if c.FetchedAt.IsZero() {
		return c.State()
	}
	return c.State().Elapse(now.Sub(c.FetchedAt))
}

// Listed is one token of the batch listing.
type Listed struct {
	Name string
	Code Code
}

// Details is the detail view payload of one entry.
type Details struct {
	Name   string
	Code   Code
	Secret string
	QRCode string // data URI as served; not rendered here
}

// Refresh is what a RefreshFunc produced. Per-entry refreshes fill Code;
// batch refreshes also fill Tokens and set Code to the soonest boundary.
type Refresh struct {
	Code   Code
	Tokens []Listed
}

// Tick is delivered on the loop after every non-stale refresh.
type Tick struct {
	EntryID string
	Refresh Refresh
	Err     error
	At      time.Time
	Next    time.Duration // delay until the following refresh
}
