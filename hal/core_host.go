//go:build !tinygo

package hal

import (
	"sync/atomic"
	"time"
)

// VirtualCore is the host implementation of Core: a simulated single CPU
// core with a PRIMASK-style interrupt mask, a latched context-switch request
// and a virtual tick timer.
//
// The tick driver (AdvanceTicks, StepWall) only queues ticks; the handler
// runs on the core itself at the next delivery point, which is the unmasked
// edge of an IrqLock/IrqUnlock pair or a return from Idle. That mirrors how
// a masked hardware core holds pended interrupts until the mask clears, and
// it keeps all scheduler state owned by exactly one execution context.
type VirtualCore struct {
	cpuHz uint32

	// Owned by the on-core execution context.
	masked  bool
	inISR   bool
	started bool
	irqOn   bool
	reload  uint32
	handler func()

	// Shared with the tick driver.
	pendingTicks atomic.Int64
	pendSwitch   atomic.Bool
	wake         chan struct{}

	// Wall-clock accumulation for StepWall.
	last time.Time
	acc  time.Duration
}

// NewVirtualCore returns a simulated core whose timer counts cycles of a
// virtual CPU clock running at cpuHz.
func NewVirtualCore(cpuHz uint32) *VirtualCore {
	return &VirtualCore{
		cpuHz: cpuHz,
		wake:  make(chan struct{}, 1),
	}
}

// CPUHz returns the virtual core clock frequency.
func (c *VirtualCore) CPUHz() uint32 { return c.cpuHz }

func (c *VirtualCore) IrqLock() uintptr {
	c.deliver()
	if c.masked {
		return 1
	}
	c.masked = true
	return 0
}

func (c *VirtualCore) IrqUnlock(key uintptr) {
	if key != 0 {
		return
	}
	c.masked = false
	c.deliver()
}

func (c *VirtualCore) InISR() bool { return c.inISR }

func (c *VirtualCore) PendSwitch() {
	c.pendSwitch.Store(true)
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *VirtualCore) TakePendSwitch() bool {
	return c.pendSwitch.Swap(false)
}

// Idle blocks until a tick or switch request arrives. Undelivered ticks make
// Idle return immediately so the caller can take a delivery point.
func (c *VirtualCore) Idle() {
	if c.pendingTicks.Load() > 0 || c.pendSwitch.Load() {
		return
	}
	<-c.wake
}

func (c *VirtualCore) ConfigureTick(reload uint32) error {
	// Same counter width as a hardware 24-bit tick timer.
	if reload == 0 || reload > 0xFFFFFF {
		return ErrTickReload
	}
	c.reload = reload
	c.started = true
	return nil
}

func (c *VirtualCore) EnableTickInterrupt() { c.irqOn = true }

func (c *VirtualCore) SetTickHandler(fn func()) { c.handler = fn }

// AdvanceTicks queues n timer expirations for delivery. It is safe to call
// from any goroutine; the handler itself always runs on the core.
func (c *VirtualCore) AdvanceTicks(n int64) {
	if n <= 0 {
		return
	}
	c.pendingTicks.Add(n)
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// StepWall advances the virtual timer by however much wall-clock time has
// elapsed since the previous call, at the configured tick rate.
func (c *VirtualCore) StepWall() {
	now := time.Now()
	if c.last.IsZero() {
		c.last = now
		c.acc = 0
		return
	}
	c.acc += now.Sub(c.last)
	c.last = now

	if !c.started || c.reload == 0 || c.cpuHz == 0 {
		return
	}
	tickDur := time.Duration(uint64(c.reload)+1) * time.Second / time.Duration(c.cpuHz)
	if tickDur <= 0 {
		return
	}
	n := int64(c.acc / tickDur)
	if n == 0 {
		return
	}
	c.acc -= time.Duration(n) * tickDur
	c.AdvanceTicks(n)
}

// deliver runs the tick handler for queued ticks. Delivery only happens
// unmasked, outside the handler, with the timer started and its interrupt
// enabled; each tick is a separate handler invocation.
func (c *VirtualCore) deliver() {
	if c.masked || c.inISR || !c.started || !c.irqOn || c.handler == nil {
		return
	}
	for c.pendingTicks.Load() > 0 {
		c.pendingTicks.Add(-1)
		c.inISR = true
		c.handler()
		c.inISR = false
	}
}
