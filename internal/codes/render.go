package codes

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Row is the render-ready state of one list row.
type Row struct {
	Entry     Entry
	Code      Code
	State     WindowState
	Err       error // last refresh failure; Code keeps the previous value
	UpdatedAt time.Time
	Next      time.Duration
}

// HasCode reports whether a code value has been received.
func (r Row) HasCode() bool { return r.Code.Value != "" }

// DetailView is the render-ready state of the detail panel.
type DetailView struct {
	Row    Row
	Secret string
	QRCode string
	Loaded bool // details payload received
}

// Renderer draws rows and the detail panel. All calls arrive on the loop.
type Renderer interface {
	RenderRow(row Row)
	RemoveRow(id string)
	RenderDetail(view DetailView)
	CloseDetail()
}

// NoticeLevel is the severity of a Notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeSuccess:
		return "success"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a transient user-visible message.
type Notice struct {
	Level   NoticeLevel
	Key     string // message catalog key
	Message string // translated text
	EntryID string
	Err     error
}

// Notifier receives notices. Implementations must not block the loop.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Copier writes text to the clipboard.
type Copier interface {
	Copy(text string) error
}

// Translator looks up user-facing strings by key.
type Translator interface {
	T(key string) string
}

type keyTranslator struct{}

func (keyTranslator) T(key string) string { return key }

// Message catalog keys used by the adapter.
const (
	KeyCopySuccess = "dashboard.copy_success"
	KeyCopyError   = "dashboard.copy_error"
	KeyFetchFailed = "dashboard.fetch_error"
	KeyNoCode      = "dashboard.no_code"
)

// Adapter turns ticks into rows, keeps the last known code of each entry
// and reports copy and fetch outcomes as notices.
type Adapter struct {
	renderer Renderer
	notifier Notifier
	copier   Copier
	tr       Translator
	rows     map[string]Row
}

// NewAdapter wires the external collaborators. A nil translator returns keys
// unchanged; a nil notifier or copier disables that feature.
func NewAdapter(r Renderer, n Notifier, c Copier, tr Translator) *Adapter {
	if tr == nil {
		tr = keyTranslator{}
	}
	if n == nil {
		n = NotifierFunc(func(Notice) {})
	}
	return &Adapter{
		renderer: r,
		notifier: n,
		copier:   c,
		tr:       tr,
		rows:     make(map[string]Row),
	}
}

// Apply folds a tick for e into its row and renders it. A failed tick keeps
// the previous code and emits one error notice.
func (a *Adapter) Apply(e Entry, t Tick) Row {
	row := a.rows[e.ID]
	row.Entry = e
	row.UpdatedAt = t.At
	row.Next = t.Next

	if t.Err != nil {
		row.Err = t.Err
		a.ReportFailure(e.ID, t.Err)
	} else {
		row.Err = nil
		row.Code = t.Refresh.Code
	}
	row.State = row.Code.State()

	a.rows[e.ID] = row
	if a.renderer != nil {
		a.renderer.RenderRow(row)
	}
	return row
}

// Show renders a row for e without a code, keeping any code already known.
func (a *Adapter) Show(e Entry) Row {
	row, ok := a.rows[e.ID]
	row.Entry = e
	if !ok {
		row.State = Window(0, DefaultWindowSeconds)
	}
	a.rows[e.ID] = row
	if a.renderer != nil {
		a.renderer.RenderRow(row)
	}
	return row
}

// ReportFailure emits the error notice for a failed fetch.
func (a *Adapter) ReportFailure(id string, err error) {
	msg := a.tr.T(KeyFetchFailed)
	var fe *FetchError
	if errors.As(err, &fe) && fe.Message != "" {
		msg += ": " + fe.Message
	}
	a.notifier.Notify(Notice{
		Level:   NoticeError,
		Key:     KeyFetchFailed,
		Message: msg,
		EntryID: id,
		Err:     err,
	})
}

// Remove forgets the row for id.
func (a *Adapter) Remove(id string) {
	if _, ok := a.rows[id]; !ok {
		return
	}
	delete(a.rows, id)
	if a.renderer != nil {
		a.renderer.RemoveRow(id)
	}
}

// Reset forgets every row without rendering.
func (a *Adapter) Reset() {
	a.rows = make(map[string]Row)
}

// Row returns the row for id.
func (a *Adapter) Row(id string) (Row, bool) {
	row, ok := a.rows[id]
	return row, ok
}

// Rows returns every row ordered by label.
func (a *Adapter) Rows() []Row {
	rows := make([]Row, 0, len(a.rows))
	for _, r := range a.rows {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		li, lj := strings.ToLower(rows[i].Entry.Label()), strings.ToLower(rows[j].Entry.Label())
		if li == lj {
			return rows[i].Entry.ID < rows[j].Entry.ID
		}
		return li < lj
	})
	return rows
}

// Copy writes the current code of id to the clipboard and reports the
// outcome as a notice. The returned error is informational only.
func (a *Adapter) Copy(id string) error {
	row, ok := a.rows[id]
	if !ok || !row.HasCode() {
		a.notifier.Notify(Notice{Level: NoticeError, Key: KeyNoCode, Message: a.tr.T(KeyNoCode), EntryID: id, Err: ErrNoCode})
		return ErrNoCode
	}
	return a.CopyText(id, row.Code.Value)
}

// CopyText writes text to the clipboard on behalf of id and reports the
// outcome as a notice.
func (a *Adapter) CopyText(id, text string) error {
	if a.copier == nil {
		err := errors.New("clipboard unavailable")
		a.notifier.Notify(Notice{Level: NoticeError, Key: KeyCopyError, Message: a.tr.T(KeyCopyError), EntryID: id, Err: err})
		return err
	}
	if err := a.copier.Copy(text); err != nil {
		a.notifier.Notify(Notice{Level: NoticeError, Key: KeyCopyError, Message: a.tr.T(KeyCopyError), EntryID: id, Err: err})
		return err
	}
	a.notifier.Notify(Notice{Level: NoticeSuccess, Key: KeyCopySuccess, Message: a.tr.T(KeyCopySuccess), EntryID: id})
	return nil
}
