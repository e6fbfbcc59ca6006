package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var ErrNotImplemented = errors.New("not implemented")

// ErrTickReload is returned when a tick timer reload value does not fit the
// counter width of the platform timer.
var ErrTickReload = errors.New("tick reload out of range")

// Core models the single CPU core the scheduler runs on: the interrupt mask,
// the software-triggered context-switch request line, and the periodic tick
// timer peripheral.
//
// IrqLock masks interrupts and returns the previous mask state as an opaque
// key. IrqUnlock restores that state; releasing an inner lock of a nested
// pair must not unmask. Masking defers tick delivery until the matching
// outermost unlock.
type Core interface {
	IrqLock() uintptr
	IrqUnlock(key uintptr)

	// InISR reports whether the core is executing the tick handler.
	InISR() bool

	// PendSwitch requests a context switch. The request is latched until
	// consumed by TakePendSwitch; pending twice is the same as pending once.
	PendSwitch()
	TakePendSwitch() bool

	// Idle blocks until an interrupt-ish event arrives (tick, wakeup).
	Idle()

	// ConfigureTick programs the periodic timer with a reload value in timer
	// cycles and starts it counting, without enabling its interrupt.
	ConfigureTick(reload uint32) error

	// EnableTickInterrupt turns on tick delivery. Call only after the
	// consumer of ticks is ready to receive them.
	EnableTickInterrupt()

	// SetTickHandler installs the function invoked once per elapsed tick.
	SetTickHandler(fn func())
}

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// KeyCode is a minimal key identifier.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyTab
	KeyDelete
)

// KeyEvent is a keyboard event.
type KeyEvent struct {
	Code  KeyCode
	Press bool
	Rune  rune
}

// Keyboard provides key events (best-effort on each platform).
type Keyboard interface {
	Events() <-chan KeyEvent
}
