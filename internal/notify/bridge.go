package notify

import (
	"context"
	"sync"

	"github.com/Dicklesworthstone/otpdash/internal/codes"
	"github.com/Dicklesworthstone/otpdash/internal/logging"
)

// Bridge forwards board notices to a Notifier. Delivery runs on its own
// goroutine so the event loop never waits on a webhook or a shell command.
type Bridge struct {
	ctx  context.Context
	n    *Notifier
	next codes.Notifier
	log  logging.Logger
	send func(func())
	wg   sync.WaitGroup
}

// NewBridge returns a codes.Notifier that passes every notice to next (the
// on-screen toast, may be nil) and forwards matching ones to n.
func NewBridge(ctx context.Context, n *Notifier, next codes.Notifier, log logging.Logger) *Bridge {
	if log == nil {
		log = logging.Nop()
	}
	return &Bridge{ctx: ctx, n: n, next: next, log: log, send: func(f func()) { go f() }}
}

// SetNotifier swaps the outgoing notifier, e.g. after a config reload. It
// must be called on the loop.
func (b *Bridge) SetNotifier(n *Notifier) { b.n = n }

// Notify implements codes.Notifier.
func (b *Bridge) Notify(notice codes.Notice) {
	if b.next != nil {
		b.next.Notify(notice)
	}
	if b.n == nil {
		return
	}
	ev, ok := EventFor(notice)
	if !ok || !b.n.Enabled(ev.Type) {
		return
	}
	b.wg.Add(1)
	b.send(func() {
		defer b.wg.Done()
		if err := b.n.Notify(b.ctx, ev); err != nil {
			b.log.Warn(b.ctx, "notification failed", "event", string(ev.Type), "error", err)
		}
	})
}

// Wait blocks until every delivery started so far has finished. Short-lived
// commands call it before exiting.
func (b *Bridge) Wait() { b.wg.Wait() }

// EventFor maps a notice to the event it represents.
func EventFor(notice codes.Notice) (Event, bool) {
	var ev Event
	switch notice.Key {
	case codes.KeyFetchFailed:
		ev = NewFetchFailedEvent(notice.EntryID, notice.Message)
	case codes.KeyCopySuccess:
		ev = Event{Type: EventCopied, Entry: notice.EntryID, Message: notice.Message}
	case codes.KeyCopyError, codes.KeyNoCode:
		ev = Event{Type: EventCopyFailed, Entry: notice.EntryID, Message: notice.Message}
	default:
		return Event{}, false
	}
	if notice.Err != nil {
		ev.Details = map[string]string{"error": notice.Err.Error()}
	}
	return ev, true
}
