package codes

import (
	"context"
	"time"

	"github.com/Dicklesworthstone/otpdash/internal/logging"
)

// Mode selects how codes are fetched.
type Mode int

const (
	// ModePerEntry refreshes every entry on its own schedule.
	ModePerEntry Mode = iota
	// ModeBatch refreshes the whole list with one request per boundary.
	ModeBatch
)

// ParseMode maps "per-entry" and "batch" to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "", "per-entry", "entry":
		return ModePerEntry, true
	case "batch", "list":
		return ModeBatch, true
	default:
		return ModePerEntry, false
	}
}

func (m Mode) String() string {
	if m == ModeBatch {
		return "batch"
	}
	return "per-entry"
}

// BatchKey is the registry id of the batch listing.
const BatchKey = "\x00batch"

// BoardConfig holds a Board's collaborators.
type BoardConfig struct {
	Loop       Poster
	Fetcher    Fetcher
	Renderer   Renderer
	Notifier   Notifier
	Copier     Copier
	Translator Translator
	Clock      Clock
	Logger     logging.Logger
	Mode       Mode
	Window     int           // default window length, seconds
	Fallback   time.Duration // retry delay after a failure; defaults to Window
	Context    context.Context
	Spawn      func(func()) // runs fetches off the loop; defaults to a goroutine
}

// Board is one mounted view: it owns the registry, the adapter and the
// detail sync, and is what the CRUD layer and the UI talk to. Every method
// must be called on the loop.
type Board struct {
	loop    Poster
	fetcher Fetcher
	clock   Clock
	log     logging.Logger
	mode    Mode
	window  int
	ctx     context.Context
	spawn   func(func())

	registry *Registry
	adapter  *Adapter
	detail   *DetailSync
	renderer Renderer

	entries map[string]Entry
	order   []string
}

// NewBoard builds a board. Nothing is fetched until Show or StartBatch.
func NewBoard(cfg BoardConfig) *Board {
	b := &Board{
		loop:     cfg.Loop,
		fetcher:  cfg.Fetcher,
		clock:    cfg.Clock,
		log:      cfg.Logger,
		mode:     cfg.Mode,
		window:   cfg.Window,
		ctx:      cfg.Context,
		spawn:    cfg.Spawn,
		renderer: cfg.Renderer,
		entries:  make(map[string]Entry),
	}
	if b.clock == nil {
		b.clock = RealClock()
	}
	if b.log == nil {
		b.log = logging.Nop()
	}
	if b.window <= 0 {
		b.window = DefaultWindowSeconds
	}
	if b.ctx == nil {
		b.ctx = context.Background()
	}
	if b.spawn == nil {
		b.spawn = func(f func()) { go f() }
	}
	fallback := cfg.Fallback
	if fallback <= 0 {
		fallback = time.Duration(b.window) * time.Second
	}

	b.registry = NewRegistry(cfg.Loop, b.onTick,
		WithClock(b.clock),
		WithFallback(fallback),
		WithContext(b.ctx),
		WithLogger(b.log),
		WithSpawn(b.spawn),
	)
	b.adapter = NewAdapter(cfg.Renderer, cfg.Notifier, cfg.Copier, cfg.Translator)
	b.detail = NewDetailSync(b.registry)
	return b
}

// Registry returns the board's registry.
func (b *Board) Registry() *Registry { return b.registry }

// Mode returns the fetch mode.
func (b *Board) Mode() Mode { return b.mode }

// Rows returns the rendered rows ordered by label.
func (b *Board) Rows() []Row { return b.adapter.Rows() }

// Row returns the row of id.
func (b *Board) Row(id string) (Row, bool) { return b.adapter.Row(id) }

// Entries returns the shown entries in display order.
func (b *Board) Entries() []Entry {
	out := make([]Entry, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.entries[id])
	}
	return out
}

// Detail returns the open detail view.
func (b *Board) Detail() (DetailView, bool) { return b.detail.View() }

// Show makes entries the visible set. New entries with codes are registered,
// entries no longer present are removed and their timers cancelled.
func (b *Board) Show(entries []Entry) {
	keep := make(map[string]bool, len(entries))
	for _, e := range entries {
		keep[e.ID] = true
	}
	// EntryRemoved shrinks b.order in place
	for _, id := range append([]string(nil), b.order...) {
		if !keep[id] {
			b.EntryRemoved(id)
		}
	}

	b.order = b.order[:0]
	for _, e := range entries {
		prev, known := b.entries[e.ID]
		b.entries[e.ID] = e
		b.order = append(b.order, e.ID)

		b.adapter.Show(e)
		if b.mode == ModeBatch {
			continue
		}
		switch {
		case e.HasCode && (!known || !prev.HasCode || !b.registry.Registered(e.ID)):
			b.registry.Register(e.ID, b.refreshFor(e.ID))
		case !e.HasCode && known:
			b.registry.Cancel(e.ID)
		}
	}
}

// StartBatch registers the single batch refresh used in ModeBatch.
func (b *Board) StartBatch() {
	b.registry.Register(BatchKey, b.refreshAll)
}

// EntryRemoved is called when an entry was deleted from the store or left
// the view. Its timer is cancelled and its row dropped.
func (b *Board) EntryRemoved(id string) {
	b.registry.Cancel(id)
	if b.detail.IsOpen(id) {
		b.detail.Close()
		if b.renderer != nil {
			b.renderer.CloseDetail()
		}
	}
	b.adapter.Remove(id)
	if _, ok := b.entries[id]; ok {
		delete(b.entries, id)
		for i, o := range b.order {
			if o == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Unmount tears the view down. No fetch happens afterwards.
func (b *Board) Unmount() {
	b.registry.CancelAll()
	b.detail.Close()
	b.adapter.Reset()
	b.entries = make(map[string]Entry)
	b.order = nil
}

// OpenDetail opens the detail panel for id and fetches its code right away,
// replacing the entry's current schedule. Secret and QR image are fetched
// alongside.
func (b *Board) OpenDetail(id string) {
	if _, ok := b.entries[id]; !ok {
		b.entries[id] = Entry{ID: id, Title: id, HasCode: true}
		b.order = append(b.order, id)
	}
	b.detail.Open(id, b.refreshFor(id))
	if b.renderer != nil {
		view, _ := b.detail.View()
		if row, ok := b.adapter.Row(id); ok {
			view, _ = b.detail.Observe(row)
		}
		b.renderer.RenderDetail(view)
	}

	ctx := b.ctx
	b.spawn(func() {
		det, err := b.fetcher.FetchDetails(ctx, id)
		b.loop.Post(func() { b.detailsArrived(id, det, err) })
	})
}

// CloseDetail closes the detail panel. In per-entry mode the entry keeps its
// schedule for the list row; in batch mode the list is fed by the batch
// refresh, so the entry's own schedule is dropped.
func (b *Board) CloseDetail() {
	id := b.detail.Close()
	if id == "" {
		return
	}
	if b.mode == ModeBatch {
		b.registry.Cancel(id)
	}
	if b.renderer != nil {
		b.renderer.CloseDetail()
	}
}

// Copy copies the current code of id to the clipboard.
func (b *Board) Copy(id string) error {
	return b.adapter.Copy(id)
}

// CopySecret copies the secret of the open detail view.
func (b *Board) CopySecret() error {
	view, ok := b.detail.View()
	if !ok || view.Secret == "" {
		return ErrNoCode
	}
	return b.adapter.CopyText(view.Row.Entry.ID, view.Secret)
}

// Refresh re-registers id immediately, or every registration when id is "".
func (b *Board) Refresh(id string) {
	if id != "" {
		if b.mode == ModeBatch && !b.detail.IsOpen(id) {
			b.StartBatch()
			return
		}
		if b.registry.Registered(id) {
			b.registry.Register(id, b.refreshFor(id))
		}
		return
	}
	for _, rid := range b.registry.IDs() {
		if rid == BatchKey {
			b.StartBatch()
			continue
		}
		b.registry.Register(rid, b.refreshFor(rid))
	}
}

func (b *Board) refreshFor(id string) RefreshFunc {
	return func(ctx context.Context) (Refresh, error) {
		code, err := b.fetcher.FetchCode(ctx, id)
		return Refresh{Code: code}, err
	}
}

func (b *Board) refreshAll(ctx context.Context) (Refresh, error) {
	tokens, err := b.fetcher.FetchAll(ctx)
	if err != nil {
		return Refresh{}, err
	}
	return Refresh{Code: SoonestBoundary(tokens, b.window), Tokens: tokens}, nil
}

func (b *Board) onTick(t Tick) {
	if t.EntryID == BatchKey {
		b.batchTick(t)
		return
	}

	e, ok := b.entries[t.EntryID]
	if !ok {
		b.registry.Cancel(t.EntryID)
		return
	}
	b.applyRow(e, t)
}

func (b *Board) batchTick(t Tick) {
	if t.Err != nil {
		b.adapter.ReportFailure("", t.Err)
		return
	}

	seen := make(map[string]bool, len(t.Refresh.Tokens))
	order := make([]string, 0, len(t.Refresh.Tokens))
	for _, tok := range t.Refresh.Tokens {
		seen[tok.Name] = true
		order = append(order, tok.Name)
		e, ok := b.entries[tok.Name]
		if !ok {
			e = Entry{ID: tok.Name, Title: tok.Name, HasCode: true}
			b.entries[tok.Name] = e
		}
		b.applyRow(e, Tick{
			EntryID: tok.Name,
			Refresh: Refresh{Code: tok.Code},
			At:      t.At,
			Next:    t.Next,
		})
	}
	for _, id := range append([]string(nil), b.order...) {
		if !seen[id] {
			b.EntryRemoved(id)
		}
	}
	b.order = order
}

func (b *Board) applyRow(e Entry, t Tick) {
	row := b.adapter.Apply(e, t)
	if view, ok := b.detail.Observe(row); ok && b.renderer != nil {
		b.renderer.RenderDetail(view)
	}
}

func (b *Board) detailsArrived(id string, det Details, err error) {
	if err != nil {
		if b.detail.IsOpen(id) {
			b.adapter.ReportFailure(id, err)
		}
		return
	}
	if view, ok := b.detail.SetDetails(id, det); ok && b.renderer != nil {
		b.renderer.RenderDetail(view)
	}
}
