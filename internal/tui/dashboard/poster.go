package dashboard

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/otpdash/internal/codes"
)

// drainMsg asks Update to run the functions queued on the board's loop.
type drainMsg struct{}

// teaPoster makes the bubbletea event loop the board's loop. Functions are
// queued on a codes.Loop and run from Update when the drainMsg arrives, so
// they keep posting order and never run concurrently with Update.
type teaPoster struct {
	loop *codes.Loop

	mu   sync.Mutex
	send func(tea.Msg)
}

func newTeaPoster() *teaPoster {
	return &teaPoster{loop: codes.NewLoop()}
}

// attach sets the function delivering messages to the program.
func (p *teaPoster) attach(send func(tea.Msg)) {
	p.mu.Lock()
	p.send = send
	p.mu.Unlock()
}

// Post implements codes.Poster. It is called from timer and fetch
// goroutines, so it must not block on the program.
func (p *teaPoster) Post(fn func()) {
	p.loop.Post(fn)

	p.mu.Lock()
	send := p.send
	p.mu.Unlock()
	if send != nil {
		go send(drainMsg{})
	}
}

// drain runs the queued functions. It is only called from Update.
func (p *teaPoster) drain() int {
	return p.loop.Drain()
}
