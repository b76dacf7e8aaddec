package formatter

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// ErrUnsupportedFormat is returned when a view has no rendering for the
// requested format.
var ErrUnsupportedFormat = errors.New("unsupported output format")

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("%w: %q (expected table, json or csv)", ErrUnsupportedFormat, s)
	}
}

// Renderer writes usage and session views in one output format.
type Renderer struct {
	out       io.Writer
	format    Format
	loc       *time.Location
	maxWidth  int
	breakdown bool
}

type Option func(*Renderer)

// WithLocation renders timestamps in loc.
func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithBreakdown adds a per-model row under each aggregate row.
func WithBreakdown(on bool) Option {
	return func(r *Renderer) { r.breakdown = on }
}

// WithMaxWidth caps table width; 0 disables fitting.
func WithMaxWidth(width int) Option {
	return func(r *Renderer) { r.maxWidth = width }
}

func NewRenderer(out io.Writer, format Format, opts ...Option) *Renderer {
	r := &Renderer{
		out:      out,
		format:   format,
		loc:      time.Local,
		maxWidth: TerminalWidth(out),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) Format() Format { return r.format }

// emit writes v as JSON, or builds and writes the table for the other formats.
func (r *Renderer) emit(v any, build func() *Table) error {
	if r.format == FormatJSON {
		return WriteJSON(r.out, v)
	}
	if build == nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, r.format)
	}

	table := build()
	if r.format == FormatCSV {
		return table.WriteCSV(r.out)
	}
	table.MaxWidth = r.maxWidth
	return table.Render(r.out)
}

// WriteJSON writes v as indented JSON with sorted map keys.
func WriteJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func (r *Renderer) timestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(r.loc).Format("2006-01-02 15:04")
}
