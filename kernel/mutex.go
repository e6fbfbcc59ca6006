package kernel

// Mutex is a recursive, priority-inheriting lock. Unlike a semaphore it
// has an owner, so it cannot be used from interrupt context at all.
type Mutex struct {
	k        *Kernel
	owner    *Thread
	count    int
	origPrio int
	waiters  waitQueue

	_ [0]func() // no copying
}

// NewMutex returns an unlocked mutex.
func NewMutex(k *Kernel) *Mutex {
	return &Mutex{k: k}
}

// Holder returns the owning thread, or nil.
func (m *Mutex) Holder() *Thread {
	key := m.k.lock()
	t := m.owner
	m.k.unlock(key)
	return t
}

// Lock acquires the mutex, blocking up to the timeout. Relocking by the
// owner nests; every Lock needs a matching Unlock. A contended lock lends
// the waiter's priority to the owner until the mutex is released.
func (m *Mutex) Lock(to Timeout) error {
	k := m.k
	if k.core.InISR() {
		panic("kernel: mutex in interrupt context")
	}

	key := k.lock()
	self := k.current
	if m.owner == nil {
		m.owner = self
		m.count = 1
		m.origPrio = self.prio
		k.unlock(key)
		return nil
	}
	if m.owner == self {
		m.count++
		k.unlock(key)
		return nil
	}
	if to.ticks == 0 {
		k.unlock(key)
		return ErrBusy
	}

	if self.prio < m.owner.prio {
		k.setPriorityLocked(m.owner, self.prio)
	}

	code := k.pendCurrent(key, &m.waiters, to)
	if code == wakeSignaled {
		// Unlock transferred ownership to us.
		return nil
	}

	key = k.lock()
	m.adjustOwnerPrioLocked()
	k.unlock(key)
	return ErrTimedOut
}

// Unlock releases one level of the mutex. Releasing the last level hands
// ownership to the best waiter, if any, and restores the caller's
// priority.
func (m *Mutex) Unlock() error {
	k := m.k
	key := k.lock()
	self := k.current
	if m.owner != self {
		k.unlock(key)
		return ErrNotOwner
	}
	m.count--
	if m.count > 0 {
		k.unlock(key)
		return nil
	}

	if self.prio != m.origPrio {
		k.setPriorityLocked(self, m.origPrio)
	}

	w := m.waiters.popBest()
	if w == nil {
		m.owner = nil
		k.unlock(key)
		return nil
	}
	k.removeTimeoutLocked(w)
	w.wq = nil
	m.owner = w
	m.count = 1
	m.origPrio = w.prio
	if h := m.waiters.head; h != nil && h.prio < w.prio {
		k.setPriorityLocked(w, h.prio)
	}
	k.readyLocked(w, wakeSignaled)
	k.reschedule(key)
	return nil
}

// adjustOwnerPrioLocked recomputes the owner's lent priority after the
// waiter set shrank.
func (m *Mutex) adjustOwnerPrioLocked() {
	if m.owner == nil {
		return
	}
	prio := m.origPrio
	if h := m.waiters.head; h != nil && h.prio < prio {
		prio = h.prio
	}
	m.k.setPriorityLocked(m.owner, prio)
}
