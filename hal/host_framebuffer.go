//go:build !tinygo

package hal

import "sync"

// HostFramebuffer is an in-memory RGB565 framebuffer shared between the
// simulated machine and the window renderer.
type HostFramebuffer struct {
	mu     sync.Mutex
	width  int
	height int
	stride int
	buf    []byte
}

// NewHostFramebuffer allocates a host framebuffer of the given size.
func NewHostFramebuffer(width, height int) *HostFramebuffer {
	stride := width * 2
	return &HostFramebuffer{
		width:  width,
		height: height,
		stride: stride,
		buf:    make([]byte, stride*height),
	}
}

func (f *HostFramebuffer) Width() int          { return f.width }
func (f *HostFramebuffer) Height() int         { return f.height }
func (f *HostFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *HostFramebuffer) StrideBytes() int    { return f.stride }
func (f *HostFramebuffer) Buffer() []byte      { return f.buf }
func (f *HostFramebuffer) Present() error      { return nil }

// ClearRGB fills the framebuffer with a solid color.
func (f *HostFramebuffer) ClearRGB(r, g, b uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pixel := rgb565(r, g, b)
	lo := byte(pixel)
	hi := byte(pixel >> 8)
	for i := 0; i < len(f.buf); i += 2 {
		f.buf[i] = lo
		f.buf[i+1] = hi
	}
}

func (f *HostFramebuffer) snapshotRGB565(dst []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(dst, f.buf)
}
