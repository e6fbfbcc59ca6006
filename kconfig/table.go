package kconfig

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid kernel config")

// Table is one concrete kernel configuration. The zero value has every
// option undefined.
type Table struct {
	values map[Option]int64
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{values: make(map[Option]int64)}
}

// Default returns the reference configuration: a single-core preemptible
// kernel with a 1 ms tick, sliced preemptive priorities and per-thread
// custom data.
func Default() *Table {
	t := NewTable()

	t.Set(Multithreading, 1)
	t.Set(ThreadCustomData, 1)
	t.Set(ThreadName, 1)
	t.Set(ThreadMaxNameLen, 32)
	t.Set(DynamicThread, 1)
	t.Set(MainStackSize, 8192)
	t.Set(MainThreadPriority, 0)
	t.Set(IdleStackSize, 512)
	t.Set(ISRStackSize, 2048)

	t.Set(NumPreemptPriorities, 15)
	t.Set(NumCoopPriorities, 16)
	t.Set(SchedScalable, 1)
	t.Set(WaitqScalable, 1)
	t.Set(Timeslicing, 1)
	t.Set(TimesliceSize, 0)
	t.Set(TimeslicePriority, 0)

	t.Set(SysClockTicksPerSec, 1000)
	t.Set(SysClockHWCyclesPerSec, 1_000_000)
	t.Set(SysClockMaxTimeoutDays, 365)
	// Defined as disabled, not undefined: consumers may test the value.
	t.Set(TicklessKernel, 0)
	t.Set(Timeout64Bit, 1)

	t.Set(Poll, 1)
	t.Set(Events, 1)
	t.Set(Errno, 1)
	t.Set(Assert, 1)

	return t
}

// Set defines opt with the given value.
func (t *Table) Set(opt Option, v int64) {
	if t.values == nil {
		t.values = make(map[Option]int64)
	}
	t.values[opt] = v
}

// Enable defines opt as a boolean option turned on.
func (t *Table) Enable(opt Option) { t.Set(opt, 1) }

// Undefine removes opt from the table entirely.
func (t *Table) Undefine(opt Option) {
	delete(t.values, opt)
}

// Defined reports whether opt is present, regardless of its value.
func (t *Table) Defined(opt Option) bool {
	_, ok := t.values[opt]
	return ok
}

// Value returns opt's value and whether it is defined.
func (t *Table) Value(opt Option) (int64, bool) {
	v, ok := t.values[opt]
	return v, ok
}

// Enabled reports whether opt is defined with a nonzero value. An option
// defined as 0 is present but disabled.
func (t *Table) Enabled(opt Option) bool {
	v, ok := t.values[opt]
	return ok && v != 0
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c := NewTable()
	for opt, v := range t.values {
		c.values[opt] = v
	}
	return c
}

// Options returns the defined options in symbol order.
func (t *Table) Options() []Option {
	opts := make([]Option, 0, len(t.values))
	for opt := range t.values {
		opts = append(opts, opt)
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i] < opts[j] })
	return opts
}

// Validate checks the table against the assumptions baked into the kernel
// and the thread port: one core, no userspace separation, plain linear
// thread stacks, a running tick.
func (t *Table) Validate() error {
	if !t.Enabled(Multithreading) {
		return fmt.Errorf("%w: %s must be enabled", ErrInvalidConfig, Multithreading.Symbol())
	}
	if !t.Enabled(ThreadCustomData) {
		return fmt.Errorf("%w: %s must be enabled", ErrInvalidConfig, ThreadCustomData.Symbol())
	}

	for _, opt := range []Option{SMP, Userspace, StackCanaries, StackSentinel, ThreadStackMemMapped} {
		if t.Defined(opt) {
			return fmt.Errorf("%w: %s must stay undefined", ErrInvalidConfig, opt.Symbol())
		}
	}

	if v, ok := t.Value(NumPreemptPriorities); !ok || v < 1 {
		return fmt.Errorf("%w: %s must be at least 1", ErrInvalidConfig, NumPreemptPriorities.Symbol())
	}
	if v, ok := t.Value(NumCoopPriorities); !ok || v < 0 {
		return fmt.Errorf("%w: %s must be defined and non-negative", ErrInvalidConfig, NumCoopPriorities.Symbol())
	}

	ticks, ok := t.Value(SysClockTicksPerSec)
	if !ok || ticks <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, SysClockTicksPerSec.Symbol())
	}
	cycles, ok := t.Value(SysClockHWCyclesPerSec)
	if !ok || cycles < ticks {
		return fmt.Errorf("%w: %s must be at least the tick rate", ErrInvalidConfig, SysClockHWCyclesPerSec.Symbol())
	}

	if t.Enabled(Timeslicing) {
		if v, _ := t.Value(TimesliceSize); v < 0 {
			return fmt.Errorf("%w: %s must be non-negative", ErrInvalidConfig, TimesliceSize.Symbol())
		}
	}

	return nil
}
