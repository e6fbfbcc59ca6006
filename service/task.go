package service

import (
	"fmt"
	"sync/atomic"

	"ember/hal"
	"ember/kernel"
	"ember/softtimer"
)

// queueSlots bounds the work queue. Must divide 256 so the uint8
// head/tail arithmetic stays consistent across wrap.
const queueSlots = 16

// TaskConfig configures a helper task.
type TaskConfig struct {
	// Name is the kernel thread name. Empty selects "svc".
	Name string

	// Priority is the task's kernel priority. Zero selects the lowest
	// preemptible priority.
	Priority int

	// PollMs is the periodic poll cadence in milliseconds. Zero
	// disables the periodic wake; the task then runs only when work
	// is offered.
	PollMs uint32

	// Handler receives offered items, one at a time, on the task
	// thread. A task without a handler refuses every offer.
	Handler func(item any)

	// Poll, if set, runs after the queue drains on every wake and
	// reports how many additional items it handled.
	Poll func() int
}

// Task is a Facility backed by a dedicated kernel thread. Work arrives
// through Offer, which is safe from interrupt context, and through the
// optional periodic poll. Items queue in a fixed ring; when the ring is
// full the offer is dropped and counted, never blocked on.
type Task struct {
	k      *kernel.Kernel
	core   hal.Core
	timers *softtimer.List
	log    hal.Logger

	name    string
	prio    int
	period  uint32
	handler func(any)
	poll    func() int

	wake   *kernel.Semaphore
	timer  *softtimer.Timer
	thread *kernel.Thread

	active   atomic.Bool
	stopping atomic.Bool

	// Ring state, mutated only with interrupts masked.
	qhead uint8
	qtail uint8
	items [queueSlots]any

	polls     atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
}

var _ Facility = (*Task)(nil)

// NewTask builds a helper task on k. timers may be nil when cfg.PollMs
// is zero. A nonzero cadence that the timer list cannot represent is a
// configuration error and panics.
func NewTask(k *kernel.Kernel, timers *softtimer.List, log hal.Logger, cfg TaskConfig) *Task {
	name := cfg.Name
	if name == "" {
		name = "svc"
	}
	prio := cfg.Priority
	if prio == 0 {
		prio = k.Config().NumPreemptPriorities - 1
	}
	s := &Task{
		k:       k,
		core:    k.Core(),
		timers:  timers,
		log:     log,
		name:    name,
		prio:    prio,
		period:  cfg.PollMs,
		handler: cfg.Handler,
		poll:    cfg.Poll,
		wake:    kernel.NewSemaphore(k, 0, 1),
	}
	if cfg.PollMs > 0 {
		if timers == nil {
			panic("service: poll cadence without a timer list")
		}
		tm, err := timers.NewPeriodic(cfg.PollMs, func(*softtimer.Timer) { s.wake.Give() })
		if err != nil {
			panic("service: bad poll cadence: " + err.Error())
		}
		s.timer = tm
	}
	return s
}

// Start creates the task thread and arms the periodic poll. Starting
// an active task is a no-op.
func (s *Task) Start() error {
	if s.active.Load() {
		return nil
	}
	s.stopping.Store(false)

	// Drop a wake left over from the previous run.
	_ = s.wake.Take(kernel.NoWait)

	t, err := s.k.Go(s.name, s.prio, s.run)
	if err != nil {
		return fmt.Errorf("service %s: %w", s.name, err)
	}
	s.thread = t
	if s.timer != nil {
		if err := s.timers.Insert(s.timer, s.period); err != nil {
			s.stopping.Store(true)
			s.wake.Give()
			_ = s.k.Join(t, kernel.Forever)
			s.thread = nil
			return fmt.Errorf("service %s: %w", s.name, err)
		}
	}
	s.active.Store(true)
	if s.log != nil {
		s.log.WriteLineString("svc: " + s.name + " up")
	}
	return nil
}

// Stop disarms the poll timer and waits for the task thread to exit.
// Queued items that the task has not reached yet stay queued. Stopping
// an idle task is a no-op. Must be called from thread context.
func (s *Task) Stop() {
	if !s.active.Load() {
		return
	}
	s.active.Store(false)
	if s.timer != nil {
		s.timers.Remove(s.timer)
	}
	s.stopping.Store(true)
	s.wake.Give()
	_ = s.k.Join(s.thread, kernel.Forever)
	s.thread = nil
	if s.log != nil {
		s.log.WriteLineString("svc: " + s.name + " down")
	}
}

// Active reports whether the task is between Start and Stop.
func (s *Task) Active() bool { return s.active.Load() }

// Stats returns the cumulative counters. Safe from any context.
func (s *Task) Stats() Stats {
	return Stats{
		Polls:     s.polls.Load(),
		Processed: s.processed.Load(),
		Dropped:   s.dropped.Load(),
	}
}

// Offer queues item for the task thread. It never blocks and is safe
// from interrupt context. A full ring, a stopped task, or a task with
// no handler drops the item and counts it.
func (s *Task) Offer(item any) bool {
	if !s.active.Load() || s.handler == nil {
		s.dropped.Add(1)
		return false
	}
	key := s.core.IrqLock()
	if s.qhead-s.qtail >= queueSlots {
		s.core.IrqUnlock(key)
		s.dropped.Add(1)
		return false
	}
	s.items[s.qhead%queueSlots] = item
	s.qhead++
	s.core.IrqUnlock(key)
	s.wake.Give()
	return true
}

func (s *Task) run() {
	for {
		_ = s.wake.Take(kernel.Forever)
		if s.stopping.Load() {
			return
		}
		s.polls.Add(1)
		n := 0
		for {
			item, ok := s.take()
			if !ok {
				break
			}
			s.handler(item)
			n++
		}
		if s.poll != nil {
			n += s.poll()
		}
		if n > 0 {
			s.processed.Add(uint64(n))
		}
	}
}

func (s *Task) take() (any, bool) {
	key := s.core.IrqLock()
	if s.qtail == s.qhead {
		s.core.IrqUnlock(key)
		return nil, false
	}
	item := s.items[s.qtail%queueSlots]
	s.items[s.qtail%queueSlots] = nil
	s.qtail++
	s.core.IrqUnlock(key)
	return item, true
}
