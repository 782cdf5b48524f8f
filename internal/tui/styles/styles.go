// Package styles renders the visual pieces of the dashboard.
package styles

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/Dicklesworthstone/otpdash/internal/codes"
	"github.com/Dicklesworthstone/otpdash/internal/tui/icons"
	"github.com/Dicklesworthstone/otpdash/internal/tui/theme"
)

// Styles are the lipgloss styles derived from one theme.
type Styles struct {
	Theme theme.Theme
	Icons icons.IconSet

	Title    lipgloss.Style
	Header   lipgloss.Style
	Row      lipgloss.Style
	Selected lipgloss.Style
	Code     lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Info     lipgloss.Style
	Panel    lipgloss.Style
	Help     lipgloss.Style
}

// New builds the styles of th. A plain theme yields unstyled output apart
// from bold and reverse video.
func New(th theme.Theme) Styles {
	s := Styles{Theme: th, Icons: icons.Current()}
	s.Title = lipgloss.NewStyle().Bold(true).Foreground(th.Primary)
	s.Header = lipgloss.NewStyle().Bold(true).Foreground(th.Subtext)
	s.Row = lipgloss.NewStyle().Foreground(th.Text)
	s.Code = lipgloss.NewStyle().Bold(true).Foreground(th.Text)
	s.Muted = lipgloss.NewStyle().Foreground(th.Overlay)
	s.Error = lipgloss.NewStyle().Foreground(th.Error)
	s.Success = lipgloss.NewStyle().Foreground(th.Success)
	s.Info = lipgloss.NewStyle().Foreground(th.Info)
	s.Help = lipgloss.NewStyle().Foreground(th.Overlay)
	s.Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(th.Surface1).
		Padding(0, 1)

	if th.IsPlain() {
		s.Selected = lipgloss.NewStyle().Reverse(true)
	} else {
		s.Selected = lipgloss.NewStyle().Background(th.Surface0).Foreground(th.Text).Bold(true)
	}
	return s
}

// Countdown renders the seconds left, coloured by urgency.
func (s Styles) Countdown(st codes.WindowState) string {
	return lipgloss.NewStyle().
		Foreground(s.Theme.UrgencyColor(st.Urgency)).
		Bold(st.Urgency == codes.UrgencyCritical).
		Render(st.Display + "s")
}

// Ring renders a one-cell circular indicator of the window progress.
func (s Styles) Ring(st codes.WindowState) string {
	return lipgloss.NewStyle().Foreground(s.Theme.UrgencyColor(st.Urgency)).Render(s.Icons.RingFrame(st.Progress))
}

// CountdownBar renders a bar of width cells whose filled part is the share
// of the window left. The drained cells are the dash offset of a stroke
// width cells long, rounded to whole cells.
func (s Styles) CountdownBar(st codes.WindowState, width int) string {
	if width <= 0 {
		return ""
	}
	filled := width - int(math.Round(st.DashOffset(float64(width))))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	bar := lipgloss.NewStyle().Foreground(s.Theme.UrgencyColor(st.Urgency)).Render(strings.Repeat(s.Icons.BarFull, filled))
	rest := lipgloss.NewStyle().Foreground(s.Theme.Surface1).Render(strings.Repeat(s.Icons.BarEmpty, width-filled))
	return bar + rest
}

// GroupCode splits a code into groups of three for reading, e.g.
// "123456" -> "123 456". Codes of other lengths are left alone.
func GroupCode(code string) string {
	if len(code) != 6 && len(code) != 9 {
		return code
	}
	var b strings.Builder
	for i := 0; i < len(code); i += 3 {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(code[i : i+3])
	}
	return b.String()
}

// Mask replaces a secret with at most 16 bullets.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	n := len([]rune(secret))
	if n > 16 {
		n = 16
	}
	return strings.Repeat("•", n)
}

// Truncate shortens text to maxWidth cells with an ellipsis. ANSI sequences
// do not count towards the width.
func Truncate(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(text) <= maxWidth {
		return text
	}
	return truncate.StringWithTail(text, uint(maxWidth), "…")
}

// PadRight pads text with spaces to width cells.
func PadRight(text string, width int) string {
	w := lipgloss.Width(text)
	if w >= width {
		return text
	}
	return text + strings.Repeat(" ", width-w)
}

// RightAlign right-aligns text within a given width.
func RightAlign(text string, width int) string {
	visLen := lipgloss.Width(text)
	if visLen >= width {
		return text
	}
	return strings.Repeat(" ", width-visLen) + text
}

// KeyHint renders a keyboard shortcut hint.
func (s Styles) KeyHint(key, description string) string {
	return s.Info.Bold(true).Render(key) + " " + s.Help.Render(description)
}
