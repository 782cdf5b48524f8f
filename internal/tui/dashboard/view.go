package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/otpdash/internal/codes"
	"github.com/Dicklesworthstone/otpdash/internal/tui/layout"
	"github.com/Dicklesworthstone/otpdash/internal/tui/styles"
	"github.com/Dicklesworthstone/otpdash/internal/util"
)

const (
	codeWidth = 11
	barWidth  = 10
	urlWidth  = 30

	// cursor, ring, gaps, countdown and bar
	rowFixed = 2 + 2 + codeWidth + 2 + 4 + 1 + barWidth + 2
)

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	st := m.styles
	var b strings.Builder

	title := st.Title.Render(m.tr.T("dashboard.title"))
	rows := m.rows()
	group := m.tr.T("passwords.all_groups")
	if m.group != "" {
		group = m.groupName(m.group)
	}
	meta := st.Muted.Render(fmt.Sprintf("%s · %s · %d", m.board.Mode(), group, len(rows)))
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(meta) - 2
	if gap < 1 {
		gap = 1
	}
	b.WriteString(" " + title + strings.Repeat(" ", gap) + meta + "\n\n")

	listWidth, detailWidth := layout.SplitProportions(m.width)
	var list strings.Builder
	switch {
	case m.loading:
		list.WriteString(" " + m.spin.View() + " " + st.Muted.Render(m.tr.T("dashboard.loading")) + "\n")
	case len(rows) == 0:
		list.WriteString(" " + st.Muted.Render(m.tr.T("dashboard.no_tokens")) + "\n")
	default:
		for i, row := range rows {
			list.WriteString(m.renderRow(row, i == m.cursor, listWidth))
			list.WriteString("\n")
		}
	}

	view, open := m.board.Detail()
	switch {
	case open && detailWidth > 0:
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(listWidth).Render(strings.TrimRight(list.String(), "\n")),
			m.renderDetail(view, detailWidth)))
		b.WriteString("\n")
	case open:
		b.WriteString(list.String())
		b.WriteString("\n")
		b.WriteString(m.renderDetail(view, m.width-4))
		b.WriteString("\n")
	default:
		b.WriteString(list.String())
	}

	if m.filtering || m.filter.Value() != "" {
		b.WriteString("\n " + m.filter.View() + "\n")
	}
	if m.confirm != "" {
		b.WriteString("\n " + st.Error.Render(m.tr.T("dashboard.confirm_remove")) + "\n")
	}
	if m.confirmGroup != "" {
		b.WriteString("\n " + st.Error.Render(m.groupName(m.confirmGroup)+": "+m.tr.T("passwords.confirm_delete_group")) + "\n")
	}
	if t, ok := m.screen.current(m.now); ok {
		b.WriteString("\n " + m.renderToast(t) + "\n")
	}

	b.WriteString("\n " + m.help.View(m.keys))
	return b.String()
}

func (m Model) renderRow(row codes.Row, selected bool, width int) string {
	st := m.styles
	ic := st.Icons
	lw := layout.LabelWidth(width, rowFixed)

	cursor := "  "
	if selected {
		cursor = ic.Pointer + " "
	}

	label := styles.PadRight(styles.Truncate(row.Entry.Label(), lw), lw)

	var line string
	switch {
	case !row.Entry.HasCode:
		line = cursor + "  " + label + "  " + st.Muted.Render(styles.PadRight(ic.Missing, codeWidth))
	case !row.HasCode():
		line = cursor + "  " + label + "  " + st.Muted.Render(styles.PadRight(ic.Pending, codeWidth))
	default:
		ws := row.Code.StateAt(m.now)
		line = cursor + st.Ring(ws) + " " + label + "  " +
			st.Code.Render(styles.PadRight(styles.GroupCode(row.Code.Value), codeWidth)) + "  " +
			styles.RightAlign(st.Countdown(ws), 4) + " " + st.CountdownBar(ws, barWidth)
	}

	if row.Err != nil {
		line += " " + st.Error.Render(ic.Warning)
	}
	if row.Entry.Username != "" {
		line += "  " + st.Muted.Render(styles.Truncate(row.Entry.Username, 24))
	}
	if layout.TierForWidth(m.width) >= layout.TierWide && row.Entry.URL != "" {
		line += "  " + st.Info.Render(layout.TruncateRunes(row.Entry.URL, urlWidth, "…"))
	}

	if selected {
		return st.Selected.Render(line)
	}
	return st.Row.Render(line)
}

func (m Model) renderDetail(view codes.DetailView, width int) string {
	st := m.styles
	row := view.Row
	var b strings.Builder

	title := row.Entry.Label()
	if e, ok := m.entry(row.Entry.ID); ok && e.Title != "" {
		title = e.Title
	}
	b.WriteString(st.Title.Render(m.tr.T("dashboard.token_details")+": "+title) + "\n")

	if e, ok := m.entry(row.Entry.ID); ok {
		if e.Username != "" {
			b.WriteString(st.Muted.Render(e.Username) + "\n")
		}
		if e.URL != "" {
			b.WriteString(st.Info.Render(e.URL) + "\n")
		}
	}
	b.WriteString("\n")

	if row.HasCode() {
		ws := row.Code.StateAt(m.now)
		b.WriteString(st.Header.Render(m.tr.T("dashboard.current_code")) + "  " +
			st.Code.Render(styles.GroupCode(row.Code.Value)) + "\n")
		b.WriteString(st.CountdownBar(ws, min(30, width-12)) + " " + st.Countdown(ws) + "\n")
	} else {
		b.WriteString(st.Muted.Render(m.tr.T("dashboard.refreshing")) + "\n")
	}

	if view.Loaded {
		secret := view.Secret
		if m.mask != m.reveal {
			secret = styles.Mask(secret) + " " + st.Muted.Render("("+m.tr.T("dashboard.secret_hidden")+")")
		}
		b.WriteString(st.Header.Render(m.tr.T("dashboard.secret_key")) + "  " + secret + "\n")
		if view.QRCode != "" {
			b.WriteString(st.Muted.Render(m.tr.T("dashboard.qr_available")) + "\n")
		}
	}
	if row.Next > 0 {
		b.WriteString(st.Muted.Render(m.tr.T("dashboard.next_refresh")+": "+util.Countdown(row.Next)) + "\n")
	}

	if width < 30 {
		width = 30
	}
	return st.Panel.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderToast(t toast) string {
	st := m.styles
	ic := st.Icons
	switch t.level {
	case codes.NoticeError:
		return st.Error.Render(ic.Cross + " " + t.text)
	case codes.NoticeSuccess:
		return st.Success.Render(ic.Check + " " + t.text)
	default:
		return st.Info.Render(ic.Dot + " " + t.text)
	}
}
