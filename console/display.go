package console

import (
	"image/color"

	"tinygo.org/x/drivers"

	"ember/hal"
)

// fbDisplay exposes one horizontal band of a framebuffer as a displayer
// the terminal and font code draw through. Band coordinates start at
// y 0; the band owns rows [top, top+height) of the underlying buffer.
type fbDisplay struct {
	fb     hal.Framebuffer
	top    int
	height int
	ok     bool
}

func newFBDisplay(fb hal.Framebuffer, top, height int) *fbDisplay {
	d := &fbDisplay{fb: fb, top: top, height: height}
	d.ok = fb != nil && height > 0 &&
		fb.Format() == hal.PixelFormatRGB565 && fb.Buffer() != nil
	return d
}

func (d *fbDisplay) Size() (x, y int16) {
	if !d.ok {
		return 0, 0
	}
	return int16(d.fb.Width()), int16(d.height)
}

func (d *fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	if !d.ok || x < 0 || y < 0 || int(x) >= d.fb.Width() || int(y) >= d.height {
		return
	}
	buf := d.fb.Buffer()
	off := (d.top+int(y))*d.fb.StrideBytes() + int(x)*2
	if off+1 >= len(buf) {
		return
	}
	p := rgb565From888(c.R, c.G, c.B)
	buf[off] = byte(p)
	buf[off+1] = byte(p >> 8)
}

func (d *fbDisplay) Display() error {
	if !d.ok {
		return nil
	}
	return d.fb.Present()
}

func (d *fbDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	if !d.ok {
		return nil
	}
	w := d.fb.Width()
	x0 := clamp(int(x), 0, w)
	x1 := clamp(int(x)+int(width), 0, w)
	y0 := clamp(int(y), 0, d.height)
	y1 := clamp(int(y)+int(height), 0, d.height)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	buf := d.fb.Buffer()
	stride := d.fb.StrideBytes()
	p := rgb565From888(c.R, c.G, c.B)
	lo, hi := byte(p), byte(p>>8)
	for py := y0; py < y1; py++ {
		row := (d.top + py) * stride
		for px := x0; px < x1; px++ {
			off := row + px*2
			if off+1 >= len(buf) {
				break
			}
			buf[off] = lo
			buf[off+1] = hi
		}
	}
	return nil
}

func (d *fbDisplay) SetScroll(line int16) {}

func (d *fbDisplay) SetRotation(drivers.Rotation) error { return nil }

func rgb565From888(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
