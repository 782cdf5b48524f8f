// Package dashboard is the live terminal view of one-time codes.
package dashboard

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/otpdash/internal/api"
	"github.com/Dicklesworthstone/otpdash/internal/codes"
	"github.com/Dicklesworthstone/otpdash/internal/config"
	"github.com/Dicklesworthstone/otpdash/internal/i18n"
	"github.com/Dicklesworthstone/otpdash/internal/logging"
	"github.com/Dicklesworthstone/otpdash/internal/notify"
	"github.com/Dicklesworthstone/otpdash/internal/tui/styles"
	"github.com/Dicklesworthstone/otpdash/internal/tui/theme"
)

// DefaultRedrawInterval is how often the countdowns are repainted.
const DefaultRedrawInterval = time.Second

// requestTimeout bounds list and delete calls made from the dashboard.
const requestTimeout = 15 * time.Second

// EntryStore is the part of the API client the dashboard needs.
type EntryStore interface {
	ListEntries(ctx context.Context) ([]api.Entry, error)
	DeleteEntry(ctx context.Context, id string) error
	ListGroups(ctx context.Context) ([]api.Group, error)
	DeleteGroup(ctx context.Context, id string) error
}

// Options configures the dashboard.
type Options struct {
	Store       EntryStore
	Fetcher     codes.Fetcher
	Copier      codes.Copier
	Notifier    *notify.Notifier // may be nil
	Catalog     *i18n.Catalog
	Theme       theme.Theme
	Mode        codes.Mode
	Window      int
	Fallback    time.Duration
	Redraw      time.Duration
	MaskSecrets bool
	Group       string // group id shown first; empty shows every group
	Logger      logging.Logger
	Clock       codes.Clock
	Spawn       func(func()) // test hook; defaults to a goroutine
	ConfigPath  string       // watched for live reload; empty disables
}

type startMsg struct{}

// redrawMsg repaints the countdowns. No request is made.
type redrawMsg time.Time

type entriesMsg struct {
	entries   []api.Entry
	groups    []api.Group
	err       error
	groupsErr error
}

type deletedMsg struct {
	id    string
	title string
	err   error
}

type groupDeletedMsg struct {
	id   string
	name string
	err  error
}

type configMsg struct{ cfg *config.Config }

type configErrMsg struct{ err error }

// translator lets a config reload swap the catalog under the board.
type translator struct{ c *i18n.Catalog }

func (t *translator) T(key string) string { return t.c.T(key) }

// Model is the dashboard model.
type Model struct {
	opts     Options
	ctx      context.Context
	cancel   context.CancelFunc
	poster   *teaPoster
	board    *codes.Board
	screen   *screen
	bridge   *notify.Bridge
	notifier *notify.Notifier
	tr       *translator
	log      logging.Logger

	styles styles.Styles
	keys   KeyMap
	help   help.Model
	spin   spinner.Model
	filter textinput.Model

	entries      []api.Entry
	groups       []api.Group
	group        string // selected group id, empty for all
	loading      bool
	filtering    bool
	confirm      string // entry awaiting delete confirmation
	confirmGroup string // group awaiting delete confirmation
	reveal       bool
	mask         bool
	cursor       int
	width        int
	height       int
	now          time.Time
	quitting     bool
}

// New builds a dashboard. Nothing is fetched until the program starts.
func New(opts Options) Model {
	if opts.Clock == nil {
		opts.Clock = codes.RealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Catalog == nil {
		opts.Catalog = i18n.MustLoad(i18n.DefaultLang)
	}
	if opts.Theme.Name == "" {
		opts.Theme = theme.Current()
	}
	if opts.Redraw <= 0 {
		opts.Redraw = DefaultRedrawInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	poster := newTeaPoster()
	scr := &screen{clock: opts.Clock}
	tr := &translator{c: opts.Catalog}
	bridge := notify.NewBridge(ctx, opts.Notifier, scr, opts.Logger)

	board := codes.NewBoard(codes.BoardConfig{
		Loop:       poster,
		Fetcher:    opts.Fetcher,
		Renderer:   scr,
		Notifier:   bridge,
		Copier:     opts.Copier,
		Translator: tr,
		Clock:      opts.Clock,
		Logger:     opts.Logger,
		Mode:       opts.Mode,
		Window:     opts.Window,
		Fallback:   opts.Fallback,
		Context:    ctx,
		Spawn:      opts.Spawn,
	})

	ti := textinput.New()
	ti.Prompt = tr.T("dashboard.filter_prompt")
	ti.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		poster:   poster,
		board:    board,
		screen:   scr,
		bridge:   bridge,
		notifier: opts.Notifier,
		tr:       tr,
		log:      opts.Logger,
		styles:   styles.New(opts.Theme),
		keys:     dashKeys,
		help:     help.New(),
		spin:     sp,
		filter:   ti,
		mask:     opts.MaskSecrets,
		group:    opts.Group,
		width:    80,
		height:   24,
		now:      opts.Clock.Now(),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return startMsg{} },
		m.spin.Tick,
		m.redraw(),
	)
}

func (m Model) redraw() tea.Cmd {
	return tea.Tick(m.opts.Redraw, func(t time.Time) tea.Msg {
		return redrawMsg(t)
	})
}

func (m Model) loadEntries() tea.Cmd {
	store := m.opts.Store
	ctx := m.ctx
	return func() tea.Msg {
		if store == nil {
			return entriesMsg{}
		}
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		entries, err := store.ListEntries(ctx)
		if err != nil {
			return entriesMsg{err: err}
		}
		groups, gerr := store.ListGroups(ctx)
		return entriesMsg{entries: entries, groups: groups, groupsErr: gerr}
	}
}

func (m Model) deleteEntry(id, title string) tea.Cmd {
	store := m.opts.Store
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return deletedMsg{id: id, title: title, err: store.DeleteEntry(ctx, id)}
	}
}

func (m Model) deleteGroup(id, name string) tea.Cmd {
	store := m.opts.Store
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return groupDeletedMsg{id: id, name: name, err: store.DeleteGroup(ctx, id)}
	}
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case startMsg:
		if m.board.Mode() == codes.ModeBatch {
			m.board.StartBatch()
			return m, nil
		}
		m.loading = true
		return m, m.loadEntries()

	case entriesMsg:
		m.loading = false
		if msg.err != nil {
			m.log.Warn(m.ctx, "loading entries failed", "error", msg.err)
			m.screen.push(codes.NoticeError, m.tr.T("passwords.load_entries_error")+": "+msg.err.Error())
			return m, nil
		}
		if msg.groupsErr != nil {
			m.log.Warn(m.ctx, "loading groups failed", "error", msg.groupsErr)
			m.screen.push(codes.NoticeError, m.tr.T("passwords.load_groups_error"))
		}
		m.entries = msg.entries
		m.groups = msg.groups
		m.show()
		return m, nil

	case drainMsg:
		m.poster.drain()
		m.clampCursor()
		return m, nil

	case redrawMsg:
		m.now = m.opts.Clock.Now()
		return m, m.redraw()

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case deletedMsg:
		if msg.err != nil {
			m.log.Warn(m.ctx, "deleting entry failed", "entry", msg.id, "error", msg.err)
			m.screen.push(codes.NoticeError, m.tr.T("passwords.delete_error")+": "+msg.err.Error())
			return m, nil
		}
		m.board.EntryRemoved(msg.id)
		m.dropEntry(msg.id)
		m.clampCursor()
		m.screen.push(codes.NoticeSuccess, m.tr.T("passwords.delete_success"))
		m.announceRemoval(msg.title)
		return m, nil

	case groupDeletedMsg:
		if msg.err != nil {
			m.log.Warn(m.ctx, "deleting group failed", "group", msg.id, "error", msg.err)
			m.screen.push(codes.NoticeError, m.tr.T("passwords.delete_group_error")+": "+msg.err.Error())
			return m, nil
		}
		m.removeGroup(msg.id)
		m.screen.push(codes.NoticeSuccess, m.tr.T("passwords.group_deleted")+": "+msg.name)
		return m, nil

	case configMsg:
		m.applyConfig(msg.cfg)
		return m, nil

	case configErrMsg:
		m.log.Warn(m.ctx, "config reload failed", "error", msg.err)
		m.screen.push(codes.NoticeError, msg.err.Error())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch msg.Type {
		case tea.KeyEnter:
			m.filtering = false
			m.filter.Blur()
			return m, nil
		case tea.KeyEsc:
			m.filtering = false
			m.filter.Blur()
			m.filter.SetValue("")
			m.show()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.cursor = 0
		m.show()
		return m, cmd
	}

	if m.confirm != "" {
		id := m.confirm
		m.confirm = ""
		if key.Matches(msg, m.keys.Confirm) {
			return m, m.deleteEntry(id, m.titleOf(id))
		}
		return m, nil
	}
	if m.confirmGroup != "" {
		id := m.confirmGroup
		m.confirmGroup = ""
		if key.Matches(msg, m.keys.Confirm) {
			return m, m.deleteGroup(id, m.groupName(id))
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		m.cursor++
		m.clampCursor()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		return m, m.filter.Focus()

	case key.Matches(msg, m.keys.Detail):
		row, ok := m.selected()
		if !ok {
			break
		}
		if view, open := m.board.Detail(); open {
			m.board.CloseDetail()
			if view.Row.Entry.ID == row.Entry.ID {
				break
			}
		}
		if !row.Entry.HasCode {
			m.screen.push(codes.NoticeError, m.tr.T(codes.KeyNoCode))
			break
		}
		m.reveal = false
		m.board.OpenDetail(row.Entry.ID)

	case key.Matches(msg, m.keys.Close):
		m.board.CloseDetail()

	case key.Matches(msg, m.keys.Copy):
		if id, ok := m.targetID(); ok {
			_ = m.board.Copy(id)
		}

	case key.Matches(msg, m.keys.CopySecret):
		if err := m.board.CopySecret(); errors.Is(err, codes.ErrNoCode) {
			m.screen.push(codes.NoticeError, m.tr.T(codes.KeyNoCode))
		}

	case key.Matches(msg, m.keys.Reveal):
		m.reveal = !m.reveal

	case key.Matches(msg, m.keys.Delete):
		if m.board.Mode() == codes.ModeBatch || m.opts.Store == nil {
			m.screen.push(codes.NoticeInfo, m.tr.T("dashboard.delete_batch"))
			break
		}
		if row, ok := m.selected(); ok {
			m.confirm = row.Entry.ID
		}

	case key.Matches(msg, m.keys.NextGroup):
		if m.board.Mode() == codes.ModeBatch {
			break
		}
		m.group = m.nextGroup()
		m.cursor = 0
		m.show()

	case key.Matches(msg, m.keys.DeleteGroup):
		switch {
		case m.board.Mode() == codes.ModeBatch || m.opts.Store == nil:
			m.screen.push(codes.NoticeInfo, m.tr.T("dashboard.delete_batch"))
		case m.group == "":
			m.screen.push(codes.NoticeInfo, m.tr.T("passwords.select_group_first"))
		default:
			m.confirmGroup = m.group
		}

	case key.Matches(msg, m.keys.Refresh):
		if id, ok := m.targetID(); ok {
			m.board.Refresh(id)
		}

	case key.Matches(msg, m.keys.RefreshAll):
		m.board.Refresh("")
		if m.board.Mode() == codes.ModePerEntry {
			return m, m.loadEntries()
		}
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.board.Unmount()
	m.cancel()
	m.quitting = true
	return m, tea.Quit
}

// show hands the filtered entries to the board. Entries filtered out lose
// their timers until they are visible again.
func (m *Model) show() {
	if m.board.Mode() == codes.ModeBatch {
		return
	}
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	visible := make([]codes.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if m.group != "" && e.GroupID != m.group {
			continue
		}
		if q != "" && !matches(e, q) {
			continue
		}
		visible = append(visible, ToCodesEntry(e))
	}
	m.board.Show(visible)
}

func matches(e api.Entry, q string) bool {
	return strings.Contains(strings.ToLower(e.Title), q) ||
		strings.Contains(strings.ToLower(e.Username), q) ||
		strings.Contains(strings.ToLower(e.URL), q)
}

// ToCodesEntry converts a stored entry into the refresh core's view of it.
func ToCodesEntry(e api.Entry) codes.Entry {
	return codes.Entry{
		ID:       e.ID,
		Title:    e.Title,
		Username: e.Username,
		URL:      e.URL,
		HasCode:  e.HaveTOTP,
	}
}

// rows returns the board rows that pass the filter.
func (m Model) rows() []codes.Row {
	all := m.board.Rows()
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if q == "" || m.board.Mode() == codes.ModePerEntry {
		return all
	}
	out := all[:0:0]
	for _, r := range all {
		if strings.Contains(strings.ToLower(r.Entry.Label()), q) {
			out = append(out, r)
		}
	}
	return out
}

func (m Model) selected() (codes.Row, bool) {
	rows := m.rows()
	if len(rows) == 0 {
		return codes.Row{}, false
	}
	i := m.cursor
	if i >= len(rows) {
		i = len(rows) - 1
	}
	return rows[i], true
}

// targetID is the open detail entry, else the selected row.
func (m Model) targetID() (string, bool) {
	if view, ok := m.board.Detail(); ok {
		return view.Row.Entry.ID, true
	}
	row, ok := m.selected()
	return row.Entry.ID, ok
}

func (m *Model) clampCursor() {
	n := len(m.rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) titleOf(id string) string {
	for _, e := range m.entries {
		if e.ID == id {
			return e.Title
		}
	}
	return id
}

func (m Model) entry(id string) (api.Entry, bool) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, true
		}
	}
	return api.Entry{}, false
}

func (m *Model) dropEntry(id string) {
	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}

// nextGroup returns the group after the selected one; the cycle runs through
// every group and back to all.
func (m Model) nextGroup() string {
	if len(m.groups) == 0 {
		return ""
	}
	if m.group == "" {
		return m.groups[0].ID
	}
	for i, g := range m.groups {
		if g.ID == m.group {
			if i+1 < len(m.groups) {
				return m.groups[i+1].ID
			}
			return ""
		}
	}
	return ""
}

func (m Model) groupName(id string) string {
	for _, g := range m.groups {
		if g.ID == id {
			return g.Name
		}
	}
	return id
}

// removeGroup drops a deleted group. Its entries are gone from the server
// too, so each one is removed from the board and its timer cancelled.
func (m *Model) removeGroup(id string) {
	for _, e := range append([]api.Entry(nil), m.entries...) {
		if e.GroupID != id {
			continue
		}
		m.board.EntryRemoved(e.ID)
		m.dropEntry(e.ID)
		m.announceRemoval(e.Title)
	}
	for i, g := range m.groups {
		if g.ID == id {
			m.groups = append(m.groups[:i], m.groups[i+1:]...)
			break
		}
	}
	if m.group == id {
		m.group = ""
	}
	m.cursor = 0
	m.show()
	m.clampCursor()
}

func (m Model) announceRemoval(title string) {
	n := m.notifier
	if n == nil || !n.Enabled(notify.EventEntryRemoved) {
		return
	}
	ev := notify.NewEntryRemovedEvent(title)
	ctx, log := m.ctx, m.log
	go func() {
		if err := n.Notify(ctx, ev); err != nil {
			log.Warn(ctx, "notification failed", "event", string(ev.Type), "error", err)
		}
	}()
}

func (m *Model) applyConfig(cfg *config.Config) {
	m.styles = styles.New(theme.FromName(cfg.UI.Theme))
	m.tr.c = i18n.MustLoad(cfg.UI.Lang)
	m.filter.Prompt = m.tr.T("dashboard.filter_prompt")
	m.mask = cfg.UI.MaskSecrets

	n := notify.New(cfg.Notifications)
	m.bridge.SetNotifier(n)
	m.notifier = n

	m.log.Info(m.ctx, "config reloaded", "theme", cfg.UI.Theme, "lang", cfg.UI.Lang)
	m.screen.push(codes.NoticeInfo, m.tr.T("dashboard.config_reloaded"))
}

// Run starts the dashboard and blocks until it exits.
func Run(opts Options) error {
	m := New(opts)
	defer m.cancel()

	p := tea.NewProgram(m, tea.WithAltScreen())
	m.poster.attach(p.Send)

	if opts.ConfigPath != "" {
		stop, err := config.Watch(opts.ConfigPath,
			func(cfg *config.Config) { p.Send(configMsg{cfg: cfg}) },
			func(err error) { p.Send(configErrMsg{err: err}) },
		)
		if err != nil {
			m.log.Warn(m.ctx, "config watch disabled", "error", err)
		} else {
			defer stop()
		}
	}

	_, err := p.Run()
	return err
}
