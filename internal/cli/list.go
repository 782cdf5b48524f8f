package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/otpdash/internal/api"
	"github.com/Dicklesworthstone/otpdash/internal/codes"
	"github.com/Dicklesworthstone/otpdash/internal/logging"
	"github.com/Dicklesworthstone/otpdash/internal/output"
	"github.com/Dicklesworthstone/otpdash/internal/tui/dashboard"
	"github.com/Dicklesworthstone/otpdash/internal/tui/styles"
	"github.com/Dicklesworthstone/otpdash/internal/tui/theme"
)

// settlePoll is how often list re-checks for outstanding first fetches in
// case a result arrived without a row change.
const settlePoll = 100 * time.Millisecond

type listOptions struct {
	mode  string
	watch bool
}

func newListCmd() *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "codes"},
		Short:   "Print the current code of every entry",
		Long: `Print the current code of every entry that has one-time codes.

With --watch the list is redrawn every second and each code is fetched
again when its window rolls over, until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Refresh mode: per-entry or batch (default from config)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Keep refreshing until interrupted")
	return cmd
}

func runList(cmd *cobra.Command, opts listOptions) error {
	mode, err := resolveMode(opts.mode)
	if err != nil {
		return err
	}
	if err := requirePerEntry(mode); err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	log, closeLog, err := openLogger(false)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var entries []codes.Entry
	if mode == codes.ModePerEntry {
		lctx, cancel := context.WithTimeout(ctx, requestTimeout)
		list, err := groupEntries(lctx, client)
		cancel()
		if err != nil {
			return err
		}
		entries = codeEntries(list)
	}

	s := newListSession(ctx, mode, newFetcher(client), log)
	defer s.close()
	if err := s.start(ctx, entries); err != nil {
		return err
	}
	if err := s.waitSettled(ctx); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	st := styles.New(theme.FromName(cfg.UI.Theme))
	if opts.watch {
		return s.watch(ctx, w, st, cfg.Refresh.Redraw.Std())
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	if snap.err != nil {
		return snap.err
	}
	if err := writeList(w, snap, st, false); err != nil {
		return err
	}
	return snap.allFailed()
}

// groupEntries lists the entries in the --group scope.
func groupEntries(ctx context.Context, client *api.Client) ([]api.Entry, error) {
	g, err := scopeGroup(ctx, client)
	if err != nil {
		return nil, err
	}
	return scopedEntries(ctx, client, g)
}

func codeEntries(list []api.Entry) []codes.Entry {
	out := make([]codes.Entry, 0, len(list))
	for _, e := range list {
		if e.HaveTOTP {
			out = append(out, dashboard.ToCodesEntry(e))
		}
	}
	return out
}

// listScreen is the board's renderer and notifier for list output. Every
// call runs on the loop; changed is poked so the waiting side re-checks.
type listScreen struct {
	changed  chan struct{}
	batchErr error
}

func (s *listScreen) poke() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *listScreen) RenderRow(codes.Row) { s.poke() }

func (s *listScreen) RemoveRow(string) { s.poke() }

func (s *listScreen) RenderDetail(codes.DetailView) {}

func (s *listScreen) CloseDetail() {}

// Notify implements codes.Notifier.
func (s *listScreen) Notify(n codes.Notice) {
	if n.Level == codes.NoticeError && n.EntryID == "" {
		s.batchErr = n.Err
	}
	s.poke()
}

// listSession runs a board on its own loop goroutine.
type listSession struct {
	loop   *codes.Loop
	board  *codes.Board
	screen *listScreen
	clock  codes.Clock
	cancel context.CancelFunc
	done   chan struct{}
}

func newListSession(ctx context.Context, mode codes.Mode, fetcher codes.Fetcher, log logging.Logger) *listSession {
	ctx, cancel := context.WithCancel(ctx)
	s := &listSession{
		loop:   codes.NewLoop(),
		screen: &listScreen{changed: make(chan struct{}, 1)},
		clock:  codes.RealClock(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.board = codes.NewBoard(codes.BoardConfig{
		Loop:     s.loop,
		Fetcher:  fetcher,
		Renderer: s.screen,
		Notifier: s.screen,
		Clock:    s.clock,
		Logger:   log,
		Mode:     mode,
		Window:   cfg.Server.WindowSeconds,
		Fallback: cfg.Fallback(),
		Context:  ctx,
	})
	go func() {
		defer close(s.done)
		_ = s.loop.Run(ctx)
	}()
	return s
}

func (s *listSession) start(ctx context.Context, entries []codes.Entry) error {
	return s.loop.Do(ctx, func() {
		if s.board.Mode() == codes.ModeBatch {
			s.board.StartBatch()
			return
		}
		s.board.Show(entries)
	})
}

// close unmounts the board and stops the loop.
func (s *listSession) close() {
	unmounted := make(chan struct{})
	s.loop.Post(func() {
		s.board.Unmount()
		close(unmounted)
	})
	select {
	case <-unmounted:
	case <-s.done:
	}
	s.cancel()
	<-s.done
}

// settled reports whether every registration has had its first result.
// It must run on the loop.
func (s *listSession) settled() bool {
	reg := s.board.Registry()
	for _, id := range reg.IDs() {
		if _, ok := reg.NextWake(id); !ok {
			return false
		}
	}
	return true
}

func (s *listSession) waitSettled(ctx context.Context) error {
	poll := time.NewTicker(settlePoll)
	defer poll.Stop()
	for {
		var done bool
		if err := s.loop.Do(ctx, func() { done = s.settled() }); err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.screen.changed:
		case <-poll.C:
		}
	}
}

type listItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Username    string `json:"username,omitempty"`
	Code        string `json:"code,omitempty"`
	Remaining   int    `json:"remaining_seconds"`
	Window      int    `json:"window"`
	FetchedAt   string `json:"fetched_at,omitempty"`
	NextRefresh string `json:"next_refresh,omitempty"`
	Error       string `json:"error,omitempty"`

	state codes.WindowState
}

type listResponse struct {
	Mode  string     `json:"mode"`
	At    string     `json:"at"`
	Codes []listItem `json:"codes"`

	err  error
	errs []error
}

// allFailed returns the first fetch error when no entry has a code.
func (r listResponse) allFailed() error {
	if len(r.errs) == 0 {
		return nil
	}
	for _, it := range r.Codes {
		if it.Code != "" {
			return nil
		}
	}
	return r.errs[0]
}

func (s *listSession) snapshot(ctx context.Context) (listResponse, error) {
	var resp listResponse
	err := s.loop.Do(ctx, func() {
		now := s.clock.Now()
		reg := s.board.Registry()
		resp = listResponse{
			Mode:  s.board.Mode().String(),
			At:    output.FormatTime(now),
			Codes: []listItem{},
			err:   s.screen.batchErr,
		}
		for _, row := range s.board.Rows() {
			it := listItem{
				ID:       row.Entry.ID,
				Title:    row.Entry.Label(),
				Username: row.Entry.Username,
			}
			if row.HasCode() {
				it.state = row.Code.StateAt(now)
				it.Code = row.Code.Value
				it.Remaining = it.state.Remaining
				it.Window = it.state.Window
				it.FetchedAt = output.FormatTime(row.Code.FetchedAt)
			}
			key := row.Entry.ID
			if s.board.Mode() == codes.ModeBatch {
				key = codes.BatchKey
			}
			if at, ok := reg.NextWake(key); ok {
				it.NextRefresh = output.FormatTime(at)
			}
			if row.Err != nil {
				it.Error = row.Err.Error()
				resp.errs = append(resp.errs, row.Err)
			}
			resp.Codes = append(resp.Codes, it)
		}
		if resp.err == nil {
			return
		}
		// a later successful batch clears the failure
		if len(resp.Codes) > 0 {
			resp.err = nil
		}
	})
	return resp, err
}

func writeList(w io.Writer, resp listResponse, st styles.Styles, bars bool) error {
	if IsJSONOutput() {
		return output.WriteJSON(w, resp, !bars)
	}
	if len(resp.Codes) == 0 {
		_, err := fmt.Fprintln(w, catalog().T("dashboard.no_tokens"))
		return err
	}

	headers := []string{"NAME", "CODE", "LEFT", "USER"}
	if bars {
		headers = append(headers, "")
	}
	tbl := output.NewTable(headers...).MaxWidth(0, 32).MaxWidth(3, 24)
	for _, it := range resp.Codes {
		code, left := "—", ""
		if it.Code != "" {
			code = styles.GroupCode(it.Code)
			left = it.state.Display + "s"
		}
		if it.Error != "" {
			code += " !"
		}
		cells := []string{it.Title, code, left, it.Username}
		if bars {
			bar := ""
			if it.Code != "" {
				bar = st.CountdownBar(it.state, 10)
			}
			cells = append(cells, bar)
		}
		tbl.AddRow(cells...)
	}
	return tbl.Render(w)
}

// watch redraws the list every interval until ctx is cancelled. JSON output
// emits one compact object per redraw.
func (s *listSession) watch(ctx context.Context, w io.Writer, st styles.Styles, every time.Duration) error {
	if every <= 0 {
		every = time.Second
	}
	term := termenv.NewOutput(w)
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		snap, err := s.snapshot(ctx)
		if err != nil {
			return nil
		}
		if !IsJSONOutput() {
			term.ClearScreen()
		}
		if err := writeList(w, snap, st, true); err != nil {
			return err
		}
		if !IsJSONOutput() {
			if snap.err != nil {
				fmt.Fprintln(w, st.Error.Render(snap.err.Error()))
			}
			fmt.Fprintln(w, st.Muted.Render("ctrl+c to stop"))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
