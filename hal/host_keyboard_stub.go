//go:build !tinygo && !cgo

package hal

// HostKeyboard translates window key input into KeyEvents.
type HostKeyboard struct {
	ch chan KeyEvent
}

func NewHostKeyboard() *HostKeyboard {
	return &HostKeyboard{ch: make(chan KeyEvent, 64)}
}

func (k *HostKeyboard) Events() <-chan KeyEvent { return k.ch }

func (k *HostKeyboard) Poll() {
	// No keyboard support without the window backend.
}
