package kernel

import (
	"fmt"

	"ember/kconfig"
)

// Config is the subset of the kernel configuration the scheduler consumes,
// extracted once at construction so the hot paths never consult the table.
type Config struct {
	NumCoopPriorities    int
	NumPreemptPriorities int
	MainPriority         int
	TicksPerSec          int64
	// TimesliceTicks is the round-robin quantum; 0 disables slicing.
	TimesliceTicks int64
	// TimeslicePriority is the highest (numerically lowest) priority that
	// gets sliced.
	TimeslicePriority int
	ThreadNames       bool
	MaxNameLen        int
}

// ConfigFromTable validates tbl and extracts the scheduler configuration.
func ConfigFromTable(tbl *kconfig.Table) (Config, error) {
	if err := tbl.Validate(); err != nil {
		return Config{}, err
	}

	var cfg Config
	coop, _ := tbl.Value(kconfig.NumCoopPriorities)
	preempt, _ := tbl.Value(kconfig.NumPreemptPriorities)
	cfg.NumCoopPriorities = int(coop)
	cfg.NumPreemptPriorities = int(preempt)

	mainPrio, ok := tbl.Value(kconfig.MainThreadPriority)
	if !ok {
		mainPrio = 0
	}
	cfg.MainPriority = int(mainPrio)
	if !cfg.validPriority(cfg.MainPriority) {
		return Config{}, fmt.Errorf("%w: main thread priority %d", ErrPriority, cfg.MainPriority)
	}

	ticks, _ := tbl.Value(kconfig.SysClockTicksPerSec)
	cfg.TicksPerSec = ticks

	if tbl.Enabled(kconfig.Timeslicing) {
		size, _ := tbl.Value(kconfig.TimesliceSize)
		cfg.TimesliceTicks = size
		slicePrio, _ := tbl.Value(kconfig.TimeslicePriority)
		cfg.TimeslicePriority = int(slicePrio)
	}

	cfg.ThreadNames = tbl.Enabled(kconfig.ThreadName)
	if n, ok := tbl.Value(kconfig.ThreadMaxNameLen); ok && n > 0 {
		cfg.MaxNameLen = int(n)
	}

	return cfg, nil
}

// validPriority reports whether p is a usable thread priority: cooperative
// priorities are negative, preemptible ones run from 0 up. The lowest
// preemptible slot past the configured range is reserved for the idle
// thread.
func (c Config) validPriority(p int) bool {
	return p >= -c.NumCoopPriorities && p < c.NumPreemptPriorities
}

// PrioPreempt returns the x-th preemptible priority. Larger x is lower
// priority.
func PrioPreempt(x int) int { return x }

// PrioCoop returns the x-th cooperative priority as configured. Cooperative
// threads are never preempted by another thread; they run until they block
// or yield.
func (c Config) PrioCoop(x int) int { return -(c.NumCoopPriorities - x) }

// idlePriority is below every configurable priority.
func (c Config) idlePriority() int { return c.NumPreemptPriorities }
