package display

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"
)

// ANSI sequences used while redrawing.
const (
	enterAlternateScreen = "\033[?1049h"
	exitAlternateScreen  = "\033[?1049l"
	clearScreen          = "\033[2J"
	moveCursorHome       = "\033[H"
	hideCursor           = "\033[?25l"
	showCursor           = "\033[?25h"
)

// Screen repaints a whole view in place. On a terminal it uses the alternate
// screen buffer; on any other writer each frame is appended after a
// timestamped header.
type Screen struct {
	out    io.Writer
	tty    bool
	active bool
}

func NewScreen(out io.Writer) *Screen {
	s := &Screen{out: out}
	if f, ok := out.(*os.File); ok {
		s.tty = term.IsTerminal(int(f.Fd()))
	}
	return s
}

// Enter switches to the alternate screen buffer.
func (s *Screen) Enter() {
	if !s.tty || s.active {
		return
	}
	fmt.Fprint(s.out, enterAlternateScreen+clearScreen+moveCursorHome+hideCursor)
	s.active = true
}

// Exit restores the normal screen buffer.
func (s *Screen) Exit() {
	if !s.active {
		return
	}
	fmt.Fprint(s.out, clearScreen+moveCursorHome+showCursor+exitAlternateScreen)
	s.active = false
}

// Draw renders one frame. The frame is built off-screen first so a failing
// render leaves the previous frame visible.
func (s *Screen) Draw(at time.Time, render func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}

	if s.active {
		fmt.Fprint(s.out, clearScreen+moveCursorHome)
	}
	fmt.Fprintf(s.out, "Updated %s (Ctrl+C to quit)\n\n", at.Format("2006-01-02 15:04:05"))
	_, err := s.out.Write(buf.Bytes())
	return err
}
