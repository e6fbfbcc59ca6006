package kernel

import "sync/atomic"

// counters are scheduler event counts. They are atomics so snapshots never
// need the kernel lock.
type counters struct {
	switches        atomic.Int64
	threadsCreated  atomic.Int64
	threadsExited   atomic.Int64
	tickAnnounces   atomic.Int64
	timeoutsExpired atomic.Int64
	sliceRotations  atomic.Int64
}

// CountersSnapshot is a point-in-time copy of the scheduler counters.
type CountersSnapshot struct {
	ContextSwitches int64
	ThreadsCreated  int64
	ThreadsExited   int64
	TickAnnounces   int64
	TimeoutsExpired int64
	SliceRotations  int64
}

// Snapshot returns the current counter values. Safe from any goroutine.
func (k *Kernel) Snapshot() CountersSnapshot {
	return CountersSnapshot{
		ContextSwitches: k.counters.switches.Load(),
		ThreadsCreated:  k.counters.threadsCreated.Load(),
		ThreadsExited:   k.counters.threadsExited.Load(),
		TickAnnounces:   k.counters.tickAnnounces.Load(),
		TimeoutsExpired: k.counters.timeoutsExpired.Load(),
		SliceRotations:  k.counters.sliceRotations.Load(),
	}
}

// Tracer receives scheduler events. Callbacks run with the kernel locked
// and must not block or call back into the kernel.
type Tracer interface {
	ContextSwitch(from, to *Thread)
	ThreadNew(t *Thread)
	ThreadDead(t *Thread)
}

// SetTracer installs a tracer. It must be called before Start.
func (k *Kernel) SetTracer(tr Tracer) {
	if k.started.Load() {
		panic("kernel: tracer installed after start")
	}
	k.tracer = tr
}
