package dashboard

import (
	"time"

	"github.com/Dicklesworthstone/otpdash/internal/codes"
)

// toastTTL is how long a notice stays on screen.
const toastTTL = 3 * time.Second

// maxToasts bounds the notice backlog.
const maxToasts = 5

type toast struct {
	level codes.NoticeLevel
	text  string
	until time.Time
}

// screen is the board's Renderer and on-screen Notifier. The model reads
// rows straight from the board when it draws, so the render calls only
// track what changed.
type screen struct {
	clock   codes.Clock
	toasts  []toast
	renders int
	detail  bool
	removed []string
}

func (s *screen) RenderRow(codes.Row) { s.renders++ }

func (s *screen) RemoveRow(id string) {
	s.renders++
	s.removed = append(s.removed, id)
}

func (s *screen) RenderDetail(codes.DetailView) {
	s.renders++
	s.detail = true
}

func (s *screen) CloseDetail() {
	s.renders++
	s.detail = false
}

// Notify implements codes.Notifier.
func (s *screen) Notify(n codes.Notice) {
	s.push(n.Level, n.Message)
}

func (s *screen) push(level codes.NoticeLevel, text string) {
	s.toasts = append(s.toasts, toast{level: level, text: text, until: s.clock.Now().Add(toastTTL)})
	if len(s.toasts) > maxToasts {
		s.toasts = s.toasts[len(s.toasts)-maxToasts:]
	}
}

// current returns the newest notice that has not expired at now.
func (s *screen) current(now time.Time) (toast, bool) {
	for i := len(s.toasts) - 1; i >= 0; i-- {
		if now.Before(s.toasts[i].until) {
			return s.toasts[i], true
		}
	}
	return toast{}, false
}
