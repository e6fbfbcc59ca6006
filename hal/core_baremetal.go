//go:build tinygo && baremetal

package hal

import (
	"runtime"
	"runtime/interrupt"
)

// CortexMCore is the bare-metal implementation of Core. Interrupt masking
// maps onto PRIMASK through runtime/interrupt, and the timebase is the
// architectural SysTick counter.
//
// The language runtime owns the SysTick exception, so TICKINT stays clear
// and expirations are picked up by polling COUNTFLAG at kernel entry and in
// the idle loop. COUNTFLAG reports at least one expiry since the last read;
// a core that stays out of the kernel for more than a tick period loses the
// extra expirations, the same relaxation the hosted core documents for
// queued delivery.
type CortexMCore struct {
	started   bool
	irqOn     bool
	inHandler bool
	pend      bool
	handler   func()
}

// NewCortexMCore returns the core singleton for the current CPU.
func NewCortexMCore() *CortexMCore { return &CortexMCore{} }

func (c *CortexMCore) IrqLock() uintptr {
	state := interrupt.Disable()
	if uintptr(state) == 0 {
		c.deliver()
	}
	return uintptr(state)
}

func (c *CortexMCore) IrqUnlock(key uintptr) {
	if key == 0 {
		c.deliver()
	}
	interrupt.Restore(interrupt.State(key))
}

func (c *CortexMCore) InISR() bool { return c.inHandler || interrupt.In() }

func (c *CortexMCore) PendSwitch() { c.pend = true }

func (c *CortexMCore) TakePendSwitch() bool {
	state := interrupt.Disable()
	p := c.pend
	c.pend = false
	interrupt.Restore(state)
	return p
}

// Idle polls for a tick expiry or a pended switch, yielding to the runtime
// scheduler between polls.
func (c *CortexMCore) Idle() {
	for {
		state := interrupt.Disable()
		c.deliver()
		p := c.pend
		interrupt.Restore(state)
		if p {
			return
		}
		runtime.Gosched()
	}
}

func (c *CortexMCore) ConfigureTick(reload uint32) error {
	if reload == 0 || reload > 0xFFFFFF {
		return ErrTickReload
	}
	scbSHPR3.SetBits(shpr3SysTickLowest)
	systRVR.Set(reload)
	systCVR.Set(0)
	systCSR.Set(systCSREnable | systCSRClkSource)
	c.started = true
	return nil
}

func (c *CortexMCore) EnableTickInterrupt() { c.irqOn = true }

func (c *CortexMCore) SetTickHandler(fn func()) { c.handler = fn }

// deliver runs the tick handler if the counter wrapped since the last poll.
// Callers hold PRIMASK, which keeps the handler atomic against real ISRs.
func (c *CortexMCore) deliver() {
	if c.inHandler || !c.started || !c.irqOn || c.handler == nil {
		return
	}
	if systCSR.Get()&systCSRCountFlag == 0 {
		return
	}
	c.inHandler = true
	c.handler()
	c.inHandler = false
}
