package console

import (
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// Fault repaints the whole framebuffer as a fault screen: the origin
// thread, the panic value and the captured stack, wrapped to the
// display width. The terminal contents are abandoned; Clear restores
// a usable console.
func (c *Console) Fault(origin string, value any, stack []byte) {
	if c.term == nil {
		return
	}

	lines := []string{
		"kernel fault",
		"thread: " + origin,
		fmt.Sprintf("value: %v", value),
	}
	if len(stack) > 0 {
		lines = append(lines, "stack:")
		for _, l := range strings.Split(string(stack), "\n") {
			if l == "" {
				continue
			}
			lines = append(lines, l)
		}
	} else {
		lines = append(lines, "stack: unavailable")
	}

	c.fb.ClearRGB(0xff, 0xff, 0xff)

	font := &proggy.TinySZ8pt7b
	const lineHeight = 10
	black := color.RGBA{A: 0xff}
	full := newFBDisplay(c.fb, 0, c.fb.Height())

	_, outbox := tinyfont.LineWidth(font, "0")
	cols := 1
	if outbox > 0 {
		cols = (c.fb.Width() - 4) / int(outbox)
		if cols < 1 {
			cols = 1
		}
	}

	y := 0
drawing:
	for _, line := range lines {
		for len(line) > 0 {
			if y+lineHeight > c.fb.Height() {
				break drawing
			}
			chunk, rest := takeRunes(line, cols)
			tinyfont.WriteLine(full, font, 2, int16(y+6), chunk, black)
			y += lineHeight
			line = strings.TrimLeft(rest, " ")
		}
	}
	_ = c.fb.Present()
	c.dirty = false
}

// takeRunes splits s after at most n runes.
func takeRunes(s string, n int) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if len(s) <= n {
		return s, ""
	}
	var i, count int
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
