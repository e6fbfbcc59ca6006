// Package console renders line output on a framebuffer through a small
// VT100-ish terminal, with a one-line status band across the top.
package console

import (
	"image/color"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"

	"ember/hal"
)

// statusHeight is the pixel height of the status band. Framebuffers
// shorter than three bands get no status band at all.
const statusHeight = 12

var (
	statusFG = color.RGBA{R: 0x30, G: 0xff, B: 0x6a, A: 0xff}
	statusBG = color.RGBA{A: 0xff}
)

// Console is a framebuffer terminal. New tolerates a nil framebuffer
// and returns an inert console, so headless callers need no branching.
type Console struct {
	fb     hal.Framebuffer
	status *fbDisplay
	body   *fbDisplay
	term   *tinyterm.Terminal
	dirty  bool
}

var (
	_ hal.Logger         = (*Console)(nil)
	_ tinyterm.Displayer = (*fbDisplay)(nil)
)

// New builds a console over fb.
func New(fb hal.Framebuffer) *Console {
	c := &Console{fb: fb}
	if fb == nil {
		return c
	}
	band := statusHeight
	if fb.Height() < 3*statusHeight {
		band = 0
	}
	c.status = newFBDisplay(fb, 0, band)
	c.body = newFBDisplay(fb, band, fb.Height()-band)
	c.reset()
	return c
}

func (c *Console) reset() {
	c.term = tinyterm.NewTerminal(c.body)
	c.term.Configure(&tinyterm.Config{
		Font:              &proggy.TinySZ8pt7b,
		FontHeight:        10,
		FontOffset:        6,
		UseSoftwareScroll: true,
	})
	c.fb.ClearRGB(0, 0, 0)
	_ = c.fb.Present()
}

// Write feeds terminal output. Drawing lands in the framebuffer
// immediately; call Flush to present it.
func (c *Console) Write(p []byte) (int, error) {
	if c.term == nil {
		return len(p), nil
	}
	c.dirty = true
	return c.term.Write(p)
}

func (c *Console) WriteString(s string) {
	_, _ = c.Write([]byte(s))
}

// WriteLineString makes the console usable as a log sink. Lines are
// presented immediately.
func (c *Console) WriteLineString(s string) {
	c.WriteString(s)
	c.WriteString("\n")
	_ = c.Flush()
}

func (c *Console) WriteLineBytes(b []byte) {
	_, _ = c.Write(b)
	c.WriteString("\n")
	_ = c.Flush()
}

// SetStatus replaces the status band text.
func (c *Console) SetStatus(s string) {
	if c.status == nil || !c.status.ok {
		return
	}
	w, _ := c.status.Size()
	_ = c.status.FillRectangle(0, 0, w, statusHeight, statusBG)
	tinyfont.WriteLine(c.status, &proggy.TinySZ8pt7b, 2, 8, s, statusFG)
	c.dirty = true
}

// Flush presents pending drawing. A clean console presents nothing.
func (c *Console) Flush() error {
	if c.fb == nil || !c.dirty {
		return nil
	}
	c.dirty = false
	return c.fb.Present()
}

// Clear resets the terminal and blanks the framebuffer, status band
// included.
func (c *Console) Clear() {
	if c.term == nil {
		return
	}
	c.reset()
	c.dirty = false
}
