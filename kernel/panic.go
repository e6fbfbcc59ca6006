package kernel

// PanicInfo contains details about a thread that died from a panic.
type PanicInfo struct {
	Thread *Thread
	Value  any
	Stack  []byte
}

// InFatalMode reports whether some thread of this kernel has died from a
// panic.
func (k *Kernel) InFatalMode() bool {
	return k.fatalActive.Load()
}

// SetFatalHandler installs a kernel-wide handler for thread panics.
//
// The handler is invoked at most once (on the first panic). Returning true
// confines the fault: the panicking thread terminates and the system keeps
// running. Returning false re-raises the panic after the thread has handed
// off the CPU. The handler must not panic or call back into the kernel.
func (k *Kernel) SetFatalHandler(fn func(PanicInfo) bool) {
	k.fatalHandler.Store(fn)
}

func (k *Kernel) triggerFatal(info PanicInfo) bool {
	handled := false
	k.fatalOnce.Do(func() {
		k.fatalActive.Store(true)
		info.Stack = captureStack()
		if v := k.fatalHandler.Load(); v != nil {
			if fn, ok := v.(func(PanicInfo) bool); ok && fn != nil {
				handled = fn(info)
			}
		}
	})
	return handled
}
