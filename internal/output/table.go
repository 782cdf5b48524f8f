package output

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Table writes aligned text columns. Widths are measured in terminal cells,
// so CJK titles line up with ASCII ones.
type Table struct {
	headers []string
	rows    [][]string
	gap     int
	max     map[int]int
}

// NewTable creates a table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, gap: 2, max: make(map[int]int)}
}

// MaxWidth caps column col at width cells; longer cells are truncated.
func (t *Table) MaxWidth(col, width int) *Table {
	t.max[col] = width
	return t
}

// AddRow appends a row. Missing cells are blank.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Render writes the table to w. The last column is not padded.
func (t *Table) Render(w io.Writer) error {
	cols := len(t.headers)
	for _, r := range t.rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	widths := make([]int, cols)
	measure := func(cells []string) {
		for i, c := range cells {
			if cw := runewidth.StringWidth(t.cell(i, c)); cw > widths[i] {
				widths[i] = cw
			}
		}
	}
	measure(t.headers)
	for _, r := range t.rows {
		measure(r)
	}

	var b strings.Builder
	line := func(cells []string) {
		for i := 0; i < cols; i++ {
			c := ""
			if i < len(cells) {
				c = t.cell(i, cells[i])
			}
			if i == cols-1 {
				b.WriteString(c)
				break
			}
			b.WriteString(runewidth.FillRight(c, widths[i]+t.gap))
		}
		b.WriteByte('\n')
	}
	if len(t.headers) > 0 {
		line(t.headers)
	}
	for _, r := range t.rows {
		line(r)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (t *Table) cell(col int, s string) string {
	if m, ok := t.max[col]; ok && m > 0 && runewidth.StringWidth(s) > m {
		return runewidth.Truncate(s, m, "…")
	}
	return s
}
