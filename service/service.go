// Package service runs deferred runtime work on a low priority helper
// task. Platforms without a helper task use the Inline facility and
// poll from their own loop instead.
package service

import "sync/atomic"

// Stats are a facility's cumulative diagnostic counters.
type Stats struct {
	Polls     uint64
	Processed uint64
	Dropped   uint64
}

// A Facility offloads slow transport work from the runtime. Start,
// Stop and Active are idempotent.
type Facility interface {
	Start() error
	Stop()
	Active() bool
	Stats() Stats
}

// Inline is the default facility: no task exists and the owner calls
// Poll from its own loop.
type Inline struct {
	poll   func() int
	active atomic.Bool

	polls     atomic.Uint64
	processed atomic.Uint64
}

var _ Facility = (*Inline)(nil)

// NewInline wraps poll, which handles any pending work and reports how
// many items it processed.
func NewInline(poll func() int) *Inline {
	return &Inline{poll: poll}
}

func (f *Inline) Start() error {
	f.active.Store(true)
	return nil
}

func (f *Inline) Stop() { f.active.Store(false) }

func (f *Inline) Active() bool { return f.active.Load() }

// Poll runs one inline pass. It does nothing while the facility is
// stopped.
func (f *Inline) Poll() int {
	if !f.active.Load() {
		return 0
	}
	f.polls.Add(1)
	n := 0
	if f.poll != nil {
		n = f.poll()
	}
	f.processed.Add(uint64(n))
	return n
}

func (f *Inline) Stats() Stats {
	return Stats{
		Polls:     f.polls.Load(),
		Processed: f.processed.Load(),
	}
}
