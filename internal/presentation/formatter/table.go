package formatter

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

const minColumnWidth = 6

type Column struct {
	Header string
	Align  Align
}

type rowKind int

const (
	rowData rowKind = iota
	rowSub
	rowSeparator
)

type tableRow struct {
	kind   rowKind
	values []string
}

// Table is a box-drawn grid. Columns are sized to their content and, when
// MaxWidth is set, the widest left-aligned columns are truncated to fit.
type Table struct {
	Columns  []Column
	MaxWidth int

	rows   []tableRow
	footer []string
}

func NewTable(cols ...Column) *Table {
	return &Table{Columns: cols}
}

func (t *Table) AddRow(values ...string) {
	t.rows = append(t.rows, tableRow{kind: rowData, values: t.pad(values)})
}

// AddSubRow adds an indented detail row under the previous row.
func (t *Table) AddSubRow(values ...string) {
	t.rows = append(t.rows, tableRow{kind: rowSub, values: t.pad(values)})
}

func (t *Table) AddSeparator() {
	if len(t.rows) > 0 && t.rows[len(t.rows)-1].kind != rowSeparator {
		t.rows = append(t.rows, tableRow{kind: rowSeparator})
	}
}

func (t *Table) SetFooter(values ...string) {
	t.footer = t.pad(values)
}

func (t *Table) pad(values []string) []string {
	out := make([]string, len(t.Columns))
	copy(out, values)
	return out
}

func (t *Table) widths() []int {
	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = runewidth.StringWidth(col.Header)
	}
	measure := func(values []string) {
		for i, v := range values {
			if w := runewidth.StringWidth(v); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for _, row := range t.rows {
		measure(row.values)
	}
	measure(t.footer)

	if t.MaxWidth <= 0 {
		return widths
	}

	// total = content + 3 per column ("│ x ") + closing border
	total := func() int {
		sum := 1
		for _, w := range widths {
			sum += w + 3
		}
		return sum
	}
	for total() > t.MaxWidth {
		widest := -1
		for i, col := range t.Columns {
			if col.Align != AlignLeft || widths[i] <= minColumnWidth {
				continue
			}
			if widest < 0 || widths[i] > widths[widest] {
				widest = i
			}
		}
		if widest < 0 {
			break
		}
		widths[widest]--
	}
	return widths
}

// Render draws the table to w.
func (t *Table) Render(w io.Writer) error {
	widths := t.widths()
	var b strings.Builder

	t.border(&b, widths, "┌", "┬", "┐")
	headers := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		headers[i] = col.Header
	}
	t.line(&b, widths, headers)
	t.border(&b, widths, "├", "┼", "┤")

	for _, row := range t.rows {
		if row.kind == rowSeparator {
			t.border(&b, widths, "├", "┼", "┤")
			continue
		}
		t.line(&b, widths, row.values)
	}

	if t.footer != nil {
		t.border(&b, widths, "├", "┼", "┤")
		t.line(&b, widths, t.footer)
	}
	t.border(&b, widths, "└", "┴", "┘")

	_, err := io.WriteString(w, b.String())
	return err
}

func (t *Table) border(b *strings.Builder, widths []int, left, middle, right string) {
	b.WriteString(left)
	for i, width := range widths {
		b.WriteString(strings.Repeat("─", width+2))
		if i < len(widths)-1 {
			b.WriteString(middle)
		}
	}
	b.WriteString(right)
	b.WriteByte('\n')
}

func (t *Table) line(b *strings.Builder, widths []int, values []string) {
	b.WriteString("│")
	for i, v := range values {
		if runewidth.StringWidth(v) > widths[i] {
			v = runewidth.Truncate(v, widths[i], "…")
		}
		b.WriteByte(' ')
		if t.Columns[i].Align == AlignRight {
			b.WriteString(runewidth.FillLeft(v, widths[i]))
		} else {
			b.WriteString(runewidth.FillRight(v, widths[i]))
		}
		b.WriteString(" │")
	}
	b.WriteByte('\n')
}

// WriteCSV writes the header, data and footer rows as CSV. Separators are
// dropped.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	headers := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		headers[i] = col.Header
	}
	if err := cw.Write(headers); err != nil {
		return err
	}
	for _, row := range t.rows {
		if row.kind == rowSeparator {
			continue
		}
		if err := cw.Write(row.values); err != nil {
			return err
		}
	}
	if t.footer != nil {
		if err := cw.Write(t.footer); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// TerminalWidth returns the column count of w when it is a terminal, or 0.
func TerminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}
