// ABOUTME: Frame displays for the pacing loop
// ABOUTME: Writes frames directly with ANSI cursor control or hands them to the TUI
package ui

import (
	"bufio"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
)

// ANSIDisplay draws each frame from the top-left corner of the terminal
type ANSIDisplay struct {
	buf *bufio.Writer
	out *termenv.Output

	started   bool
	closeOnce sync.Once
}

// NewANSIDisplay creates a display writing to w
func NewANSIDisplay(w io.Writer) *ANSIDisplay {
	buf := bufio.NewWriterSize(w, 256*1024)
	return &ANSIDisplay{
		buf: buf,
		out: termenv.NewOutput(buf),
	}
}

// Show moves the cursor home and writes the frame. The screen is cleared
// once, before the first frame.
func (d *ANSIDisplay) Show(text string) error {
	if !d.started {
		d.out.HideCursor()
		d.out.ClearScreen()
		d.started = true
	}

	d.out.MoveCursor(1, 1)
	if _, err := d.buf.WriteString(text); err != nil {
		return err
	}
	return d.buf.Flush()
}

// Close restores the cursor. Safe to call more than once.
func (d *ANSIDisplay) Close() error {
	var err error
	d.closeOnce.Do(func() {
		if d.started {
			d.out.ShowCursor()
			d.buf.WriteString("\n")
		}
		err = d.buf.Flush()
	})
	return err
}

// ProgramDisplay hands frames to a running bubbletea program
type ProgramDisplay struct {
	prog *tea.Program
}

// NewProgramDisplay creates a display backed by prog
func NewProgramDisplay(prog *tea.Program) *ProgramDisplay {
	return &ProgramDisplay{prog: prog}
}

// Show sends the frame to the program; it never fails
func (d *ProgramDisplay) Show(text string) error {
	d.prog.Send(FrameMsg{Text: text})
	return nil
}

// Status forwards pacing status to the program
func (d *ProgramDisplay) Status(msg StatusMsg) {
	d.prog.Send(msg)
}
