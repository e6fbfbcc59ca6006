//go:build tinygo && baremetal && !pyportal

package hal

// stubFramebuffer keeps console code working on targets without a
// display port. Present reports ErrNotImplemented.
type stubFramebuffer struct {
	width  int
	height int
	stride int
	buf    []byte
}

// NewBoardFramebuffer returns a RAM-only framebuffer on targets without
// a display port.
func NewBoardFramebuffer() (Framebuffer, error) {
	const w = 320
	const h = 240
	return &stubFramebuffer{
		width:  w,
		height: h,
		stride: w * 2,
		buf:    make([]byte, w*h*2),
	}, nil
}

func (f *stubFramebuffer) Width() int          { return f.width }
func (f *stubFramebuffer) Height() int         { return f.height }
func (f *stubFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *stubFramebuffer) StrideBytes() int    { return f.stride }
func (f *stubFramebuffer) Buffer() []byte      { return f.buf }
func (f *stubFramebuffer) Present() error      { return ErrNotImplemented }

func (f *stubFramebuffer) ClearRGB(r, g, b uint8) {
	pixel := rgb565(r, g, b)
	lo := byte(pixel)
	hi := byte(pixel >> 8)
	for i := 0; i < len(f.buf); i += 2 {
		f.buf[i] = lo
		f.buf[i+1] = hi
	}
}
