// Package kernel is a priority-based preemptible scheduler with direct
// handoff semaphores, priority-inheritance mutexes and tick-driven
// timeouts. It runs the same way hosted and on metal: every thread is a
// goroutine, but at most one of them executes at a time, handed the CPU
// through its gate channel by the previous owner.
package kernel

import (
	"sync"
	"sync/atomic"

	"ember/hal"
)

type readyQueue struct {
	head, tail *Thread
}

// Kernel is one scheduler instance bound to one core.
type Kernel struct {
	core hal.Core
	cfg  Config

	readyQ  readyQueue
	current *Thread
	idle    *Thread

	// timeouts is the head of the delta list.
	timeouts *Thread

	// all is the live-thread registry for Foreach.
	all         *Thread
	threadCount atomic.Int32

	// uptime is in ticks, guarded by the kernel lock. uptimeA mirrors it
	// for lock-free readers off the core.
	uptime  int64
	uptimeA atomic.Int64

	nextID  atomic.Uint32
	started atomic.Bool

	counters counters
	tracer   Tracer

	fatalActive  atomic.Bool
	fatalOnce    sync.Once
	fatalHandler atomic.Value // func(PanicInfo) bool
}

// New returns a kernel for the given core. Start must run before any
// thread operation.
func New(core hal.Core, cfg Config) *Kernel {
	return &Kernel{core: core, cfg: cfg}
}

// Config returns the configuration the kernel was built with.
func (k *Kernel) Config() Config { return k.cfg }

// Core returns the core the kernel schedules on.
func (k *Kernel) Core() hal.Core { return k.core }

// Start brings the scheduler up: it creates the idle thread and the main
// thread, switches to main, and returns to the caller. The caller's
// context is the boot context; after Start returns it must not touch
// kernel state except through goroutine-safe surfaces (the core's tick
// driver, counter snapshots).
func (k *Kernel) Start(main func()) *Thread {
	if k.started.Swap(true) {
		panic("kernel: double start")
	}

	k.idle = k.newThread("idle", k.cfg.idlePriority(), nil)
	k.idle.entry = k.idleLoop

	mainThread := k.newThread("main", k.cfg.MainPriority, main)

	key := k.lock()
	k.registerLocked(k.idle)
	k.readyLocked(k.idle, wakeResumed)
	go k.idle.threadMain()

	k.registerLocked(mainThread)
	k.readyLocked(mainThread, wakeResumed)
	go mainThread.threadMain()

	k.counters.threadsCreated.Add(2)
	k.current = mainThread
	k.unlock(key)

	mainThread.gate <- mainThread.wake
	return mainThread
}

// idleLoop parks the core until something is pending, then takes a
// delivery point and hands the CPU to whatever became runnable.
func (k *Kernel) idleLoop() {
	for {
		k.core.Idle()
		key := k.lock()
		k.reschedule(key)
	}
}

// AnnounceTicks advances kernel time by n ticks: it charges the running
// thread's timeslice and expires due timeouts. The tick interrupt handler
// calls it; the switch itself is pended by the handler afterwards.
func (k *Kernel) AnnounceTicks(n int64) {
	if n <= 0 {
		return
	}
	key := k.lock()
	k.uptime += n
	k.uptimeA.Store(k.uptime)
	k.counters.tickAnnounces.Add(1)

	if k.cfg.TimesliceTicks > 0 && k.sliceableLocked(k.current) {
		k.current.slice -= n
		if k.current.slice <= 0 {
			k.current.slice = k.cfg.TimesliceTicks
			k.readyRemoveLocked(k.current)
			k.readyInsertLocked(k.current)
			k.counters.sliceRotations.Add(1)
		}
	}

	k.expireTimeoutsLocked(n)
	k.unlock(key)
}

// sliceableLocked reports whether t shares its CPU time round-robin:
// preemptible and at or below the slicing priority threshold.
func (k *Kernel) sliceableLocked(t *Thread) bool {
	return t != nil && t.prio >= 0 && t.prio >= k.cfg.TimeslicePriority && t.state == stateReady
}

// Uptime returns the kernel tick count since Start. Safe from any
// goroutine.
func (k *Kernel) Uptime() int64 {
	return k.uptimeA.Load()
}

// NumThreads returns the live thread count, including idle. Safe from any
// goroutine.
func (k *Kernel) NumThreads() int {
	return int(k.threadCount.Load())
}
