// Package softtimer provides software timers driven from the platform
// tick interrupt: a deadline-ordered list the arch layer dispatches every
// tick, with one-shot and self-rearming periodic entries.
package softtimer

import (
	"errors"
	"sync/atomic"

	"ember/hal"
)

var (
	// ErrTimingOverflow is returned when a millisecond delay cannot be
	// represented within the configured timeout horizon.
	ErrTimingOverflow = errors.New("delay exceeds timeout horizon")
	// ErrBadPeriod is returned for a periodic timer with no period.
	ErrBadPeriod = errors.New("periodic timer without a period")
)

// Timer is one deadline entry. Callbacks run in interrupt context and
// must not block; semaphore gives and queue offers are fine.
type Timer struct {
	cb     func(*Timer)
	period int64 // rearm interval in ticks, 0 for one-shot
	expiry uint64
	armed  bool
	next   *Timer
}

// List is a deadline-ordered timer list bound to one core's tick domain.
// Insert and Remove are safe from thread context, Dispatch runs in the
// tick handler; the core's interrupt lock covers both.
type List struct {
	core hal.Core
	now  func() uint64

	tps      int64
	maxTicks int64

	head  *Timer
	fired atomic.Uint64
}

// NewList builds a timer list. now is the tick counter the deadlines are
// measured against; delays are bounded by maxTimeoutDays.
func NewList(core hal.Core, now func() uint64, ticksPerSec, maxTimeoutDays int64) *List {
	return &List{
		core:     core,
		now:      now,
		tps:      ticksPerSec,
		maxTicks: maxTimeoutDays * 24 * 60 * 60 * ticksPerSec,
	}
}

// TicksFromMs converts a millisecond delay to ticks, rounding up so a
// nonzero delay never becomes a zero wait.
func (l *List) TicksFromMs(ms uint32) (int64, error) {
	t := (int64(ms)*l.tps + 999) / 1000
	if t > l.maxTicks {
		return 0, ErrTimingOverflow
	}
	return t, nil
}

// NewOneShot returns a timer that fires once each time it is inserted.
func (l *List) NewOneShot(cb func(*Timer)) *Timer {
	return &Timer{cb: cb}
}

// NewPeriodic returns a timer that, once inserted, re-arms itself every
// periodMs after each fire. A late dispatch catches up without drift.
func (l *List) NewPeriodic(periodMs uint32, cb func(*Timer)) (*Timer, error) {
	if periodMs == 0 {
		return nil, ErrBadPeriod
	}
	ticks, err := l.TicksFromMs(periodMs)
	if err != nil {
		return nil, err
	}
	return &Timer{cb: cb, period: ticks}, nil
}

// Insert arms t to fire delayMs from now. Inserting an armed timer moves
// its deadline; a conversion error leaves the timer as it was.
func (l *List) Insert(t *Timer, delayMs uint32) error {
	ticks, err := l.TicksFromMs(delayMs)
	if err != nil {
		return err
	}
	key := l.core.IrqLock()
	if t.armed {
		l.unlinkLocked(t)
	}
	t.expiry = l.now() + uint64(ticks)
	l.insertLocked(t)
	l.core.IrqUnlock(key)
	return nil
}

// Remove disarms t. Removing an idle timer is a no-op.
func (l *List) Remove(t *Timer) {
	key := l.core.IrqLock()
	if t.armed {
		l.unlinkLocked(t)
	}
	l.core.IrqUnlock(key)
}

// Armed reports whether t is queued.
func (l *List) Armed(t *Timer) bool {
	key := l.core.IrqLock()
	armed := t.armed
	l.core.IrqUnlock(key)
	return armed
}

// Fired returns the total number of callbacks dispatched.
func (l *List) Fired() uint64 {
	return l.fired.Load()
}

// Dispatch fires every timer that is due. The arch tick hook calls it
// once per tick, before kernel time is announced; callbacks run with the
// list unlocked so they may arm other timers.
func (l *List) Dispatch() {
	now := l.now()
	for {
		key := l.core.IrqLock()
		t := l.head
		if t == nil || int64(t.expiry-now) > 0 {
			l.core.IrqUnlock(key)
			return
		}
		l.head = t.next
		t.next = nil
		t.armed = false
		if t.period > 0 {
			t.expiry += uint64(t.period)
			l.insertLocked(t)
		}
		l.core.IrqUnlock(key)

		l.fired.Add(1)
		t.cb(t)
	}
}

// insertLocked queues t in deadline order, behind entries due at the
// same tick. Comparisons are wrap-safe for deadlines within half the
// counter range, which the timeout horizon guarantees.
func (l *List) insertLocked(t *Timer) {
	var prev *Timer
	at := l.head
	for at != nil && int64(at.expiry-t.expiry) <= 0 {
		prev = at
		at = at.next
	}
	t.next = at
	if prev != nil {
		prev.next = t
	} else {
		l.head = t
	}
	t.armed = true
}

func (l *List) unlinkLocked(t *Timer) {
	var prev *Timer
	for at := l.head; at != nil; at = at.next {
		if at == t {
			if prev != nil {
				prev.next = at.next
			} else {
				l.head = at.next
			}
			t.next = nil
			t.armed = false
			return
		}
		prev = at
	}
}
