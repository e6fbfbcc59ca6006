//go:build tinygo && baremetal && pyportal

package hal

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ili9341"
)

// boardFramebuffer is a RAM copy of the panel contents. Present blits it
// out one row at a time. Drawing happens at memory speed; only Present
// touches the bus.
type boardFramebuffer struct {
	width  int
	height int
	stride int
	buf    []byte
	row    []byte

	lcd *ili9341.Device
}

// NewBoardFramebuffer brings up the PyPortal's parallel-bus ILI9341 and
// returns a framebuffer bound to it.
func NewBoardFramebuffer() (Framebuffer, error) {
	lcd := ili9341.NewParallel(
		machine.LCD_DATA0,
		machine.TFT_WR,
		machine.TFT_DC,
		machine.TFT_CS,
		machine.TFT_RESET,
		machine.TFT_RD,
	)

	backlight := machine.TFT_BACKLIGHT
	backlight.Configure(machine.PinConfig{Mode: machine.PinOutput})

	lcd.Configure(ili9341.Config{})
	if err := lcd.SetRotation(ili9341.Rotation0); err != nil {
		return nil, err
	}
	lcd.FillScreen(color.RGBA{0, 0, 0, 255})
	backlight.High()

	w, h := lcd.Size()
	return &boardFramebuffer{
		width:  int(w),
		height: int(h),
		stride: int(w) * 2,
		buf:    make([]byte, int(w)*int(h)*2),
		row:    make([]byte, int(w)*2),
		lcd:    lcd,
	}, nil
}

func (f *boardFramebuffer) Width() int          { return f.width }
func (f *boardFramebuffer) Height() int         { return f.height }
func (f *boardFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *boardFramebuffer) StrideBytes() int    { return f.stride }
func (f *boardFramebuffer) Buffer() []byte      { return f.buf }

func (f *boardFramebuffer) ClearRGB(r, g, b uint8) {
	pixel := rgb565(r, g, b)
	lo := byte(pixel)
	hi := byte(pixel >> 8)
	for i := 0; i < len(f.buf); i += 2 {
		f.buf[i] = lo
		f.buf[i+1] = hi
	}
}

func (f *boardFramebuffer) Present() error {
	for y := 0; y < f.height; y++ {
		src := f.buf[y*f.stride : y*f.stride+f.width*2]
		for i := 0; i < len(src); i += 2 {
			// Pixels are stored little-endian; the panel wants the high
			// byte first.
			f.row[i] = src[i+1]
			f.row[i+1] = src[i]
		}
		if err := f.lcd.DrawRGBBitmap8(0, int16(y), f.row, int16(f.width), 1); err != nil {
			return err
		}
	}
	return nil
}
