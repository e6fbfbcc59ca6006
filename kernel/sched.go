package kernel

// The scheduler keeps every runnable thread, including the running one, in
// a priority-ordered ready queue. The queue head is the cache: the thread
// that should own the CPU. All state below is guarded by the core's
// interrupt lock, and only ever touched from the running context or the
// tick handler, so the lock doubles as the single-context invariant.

func (k *Kernel) lock() uintptr      { return k.core.IrqLock() }
func (k *Kernel) unlock(key uintptr) { k.core.IrqUnlock(key) }

func (k *Kernel) currentThread() *Thread { return k.current }

// Current returns the running thread.
func (k *Kernel) Current() *Thread { return k.current }

// readyInsertLocked queues t behind every runnable thread of equal or
// higher priority.
func (k *Kernel) readyInsertLocked(t *Thread) {
	q := &k.readyQ
	at := q.head
	for at != nil && at.prio <= t.prio {
		at = at.qnext
	}
	if at == nil {
		t.qprev = q.tail
		t.qnext = nil
		if q.tail != nil {
			q.tail.qnext = t
		} else {
			q.head = t
		}
		q.tail = t
	} else {
		t.qnext = at
		t.qprev = at.qprev
		if at.qprev != nil {
			at.qprev.qnext = t
		} else {
			q.head = t
		}
		at.qprev = t
	}
	t.inReady = true
}

func (k *Kernel) readyRemoveLocked(t *Thread) {
	if !t.inReady {
		return
	}
	q := &k.readyQ
	if t.qprev != nil {
		t.qprev.qnext = t.qnext
	} else {
		q.head = t.qnext
	}
	if t.qnext != nil {
		t.qnext.qprev = t.qprev
	} else {
		q.tail = t.qprev
	}
	t.qnext, t.qprev = nil, nil
	t.inReady = false
}

// readyLocked makes t runnable and records the wake code it will receive
// when scheduled in.
func (k *Kernel) readyLocked(t *Thread, code wakeCode) {
	t.state = stateReady
	t.wake = code
	k.readyInsertLocked(t)
}

// pickNextLocked returns the thread that should run next, assuming the
// caller is leaving the CPU. The idle thread keeps the queue non-empty.
func (k *Kernel) pickNextLocked() *Thread {
	return k.readyQ.head
}

// needsSwitchLocked reports whether the cache differs from the running
// thread and the running thread may be displaced. A cooperative thread
// that is still runnable keeps the CPU.
func (k *Kernel) needsSwitchLocked() bool {
	next := k.readyQ.head
	if next == nil || next == k.current {
		return false
	}
	if k.current.state != stateReady {
		return true
	}
	return k.current.prio >= 0
}

// NeedsSwitch reports whether a context switch should be pended. The tick
// interrupt handler uses it after announcing time.
func (k *Kernel) NeedsSwitch() bool {
	key := k.lock()
	need := k.needsSwitchLocked()
	k.unlock(key)
	return need
}

// swapTo hands the CPU to next and parks the caller. The kernel lock is
// released before the handoff. Returns the wake code delivered when the
// caller is scheduled in again; an abort unwinds instead of returning.
func (k *Kernel) swapTo(next *Thread, key uintptr) wakeCode {
	self := k.current
	k.current = next
	next.slice = k.cfg.TimesliceTicks
	k.counters.switches.Add(1)
	if k.tracer != nil {
		k.tracer.ContextSwitch(self, next)
	}
	k.unlock(key)
	next.gate <- next.wake

	code := <-self.gate
	if code == wakeAborted {
		panic(abortRequest{})
	}
	return code
}

// pendCurrent blocks the current thread on wq (which may be nil for a pure
// sleep) with the given timeout, releases the lock and parks. Returns the
// wake code; the lock is not held on return.
func (k *Kernel) pendCurrent(key uintptr, wq *waitQueue, to Timeout) wakeCode {
	self := k.current
	k.readyRemoveLocked(self)
	self.state = statePending
	if wq != nil {
		wq.insert(self)
		self.wq = wq
	}
	if to.ticks >= 0 {
		k.addTimeoutLocked(self, to.ticks)
	}
	return k.swapTo(k.pickNextLocked(), key)
}

// reschedule is the common exit path of every kernel operation that may
// have changed the best runnable thread. In handler context the switch is
// deferred to a pended request; in thread context it happens immediately
// when allowed.
func (k *Kernel) reschedule(key uintptr) {
	if k.core.InISR() {
		if k.needsSwitchLocked() {
			k.core.PendSwitch()
		}
		k.unlock(key)
		return
	}
	pended := k.core.TakePendSwitch()
	if !k.needsSwitchLocked() {
		_ = pended
		k.unlock(key)
		return
	}
	self := k.current
	self.wake = wakeResumed
	k.swapTo(k.readyQ.head, key)
}

// setPriorityLocked changes t's priority and repositions it in whichever
// queue orders by priority.
func (k *Kernel) setPriorityLocked(t *Thread, prio int) {
	if t.prio == prio {
		return
	}
	t.prio = prio
	if t.inReady {
		k.readyRemoveLocked(t)
		k.readyInsertLocked(t)
	} else if t.wq != nil {
		wq := t.wq
		wq.remove(t)
		wq.insert(t)
	}
}

func (k *Kernel) registerLocked(t *Thread) {
	t.allNext = k.all
	if k.all != nil {
		k.all.allPrev = t
	}
	k.all = t
	k.threadCount.Add(1)
}

func (k *Kernel) unregisterLocked(t *Thread) {
	if t.allPrev != nil {
		t.allPrev.allNext = t.allNext
	} else {
		k.all = t.allNext
	}
	if t.allNext != nil {
		t.allNext.allPrev = t.allPrev
	}
	t.allNext, t.allPrev = nil, nil
	k.threadCount.Add(-1)
}

// Foreach calls fn for every live thread with the kernel locked. fn must
// not block or call back into the kernel.
func (k *Kernel) Foreach(fn func(*Thread)) {
	key := k.lock()
	for t := k.all; t != nil; t = t.allNext {
		fn(t)
	}
	k.unlock(key)
}
