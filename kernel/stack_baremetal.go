//go:build tinygo

package kernel

// Stack capture is not worth the flash on metal; the panic value and
// thread identity still reach the handler.
func captureStack() []byte {
	return nil
}
