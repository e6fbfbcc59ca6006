// Package arch owns the CPU-facing glue between the timer interrupt and
// the scheduler: tick bookkeeping, the announce-then-maybe-pend interrupt
// handler, and the yield request. Everything here is mechanism; policy
// lives in the kernel.
package arch

import (
	"fmt"
	"sync/atomic"

	"ember/hal"
	"ember/kernel"
)

// State tracks bring-up of the CPU timebase.
type State uint8

const (
	StateUninitialized State = iota
	StateConfigured
	StateTicking
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfigured:
		return "configured"
	case StateTicking:
		return "ticking"
	default:
		return "unknown"
	}
}

// CPU binds one core's tick timer to one kernel.
type CPU struct {
	core hal.Core
	k    *kernel.Kernel

	ticks atomic.Uint64
	state State

	// hook runs inside the tick handler, before time is announced.
	hook func()
}

// New returns the arch layer for core and k. Init must run before the
// kernel starts.
func New(core hal.Core, k *kernel.Kernel) *CPU {
	return &CPU{core: core, k: k}
}

// Init programs the tick timer for the configured tick rate at the given
// CPU frequency and installs the tick handler. Calling it again is a
// no-op, so platform resets can share one code path.
func (c *CPU) Init(cpuHz uint32) error {
	if c.state != StateUninitialized {
		return nil
	}
	tps := c.k.Config().TicksPerSec
	if tps <= 0 {
		return fmt.Errorf("tick rate %d: %w", tps, hal.ErrTickReload)
	}
	cycles := int64(cpuHz) / tps
	if cycles < 2 || cycles-1 > 0xFFFFFF {
		return fmt.Errorf("%d cycles per tick at %d Hz: %w", cycles, cpuHz, hal.ErrTickReload)
	}
	if err := c.core.ConfigureTick(uint32(cycles - 1)); err != nil {
		return err
	}
	c.core.SetTickHandler(c.tick)
	c.state = StateConfigured
	return nil
}

// EnableTickInterrupt lets the timer interrupt fire. The kernel must be
// started first: the handler announces time to it.
func (c *CPU) EnableTickInterrupt() {
	c.core.EnableTickInterrupt()
	c.state = StateTicking
}

// SetTickHook installs fn to run in the tick handler before the kernel
// sees the tick. It must be set before EnableTickInterrupt and must not
// block.
func (c *CPU) SetTickHook(fn func()) {
	c.hook = fn
}

// Ticks returns the number of timer interrupts taken. Safe from any
// goroutine.
func (c *CPU) Ticks() uint64 {
	return c.ticks.Load()
}

// State returns the bring-up state.
func (c *CPU) State() State {
	return c.state
}

// Yield requests a context switch without blocking. The switch happens at
// the next reschedule point; cooperative callers that must give up the CPU
// now should use the kernel's yield instead.
func (c *CPU) Yield() {
	c.core.PendSwitch()
}

// tick is the timer interrupt handler: count, run the hook, announce the
// tick, and pend a switch if the announcement changed the best runnable
// thread.
func (c *CPU) tick() {
	c.ticks.Add(1)
	if hook := c.hook; hook != nil {
		hook()
	}
	c.k.AnnounceTicks(1)
	if c.k.NeedsSwitch() {
		c.core.PendSwitch()
	}
}
