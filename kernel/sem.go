package kernel

// MaxSemLimit is the count limit for a semaphore with no practical bound.
const MaxSemLimit = ^uint32(0)

// Semaphore is a counting semaphore with direct handoff: a give with
// waiters present transfers the signal to the best waiter instead of
// bumping the count, so no third thread can steal it in between.
type Semaphore struct {
	k       *Kernel
	count   uint32
	limit   uint32
	waiters waitQueue

	_ [0]func() // no copying
}

// NewSemaphore returns a semaphore with the given initial count and limit.
func NewSemaphore(k *Kernel, initial, limit uint32) *Semaphore {
	if limit == 0 || initial > limit {
		panic("kernel: bad semaphore count/limit")
	}
	return &Semaphore{k: k, count: initial, limit: limit}
}

// Count returns the current count. Waiters pin the count at zero.
func (s *Semaphore) Count() uint32 {
	key := s.k.lock()
	c := s.count
	s.k.unlock(key)
	return c
}

// Give signals the semaphore. Safe from interrupt context.
func (s *Semaphore) Give() {
	k := s.k
	key := k.lock()
	if w := s.waiters.popBest(); w != nil {
		k.removeTimeoutLocked(w)
		w.wq = nil
		k.readyLocked(w, wakeSignaled)
		k.reschedule(key)
		return
	}
	if s.count < s.limit {
		s.count++
	}
	k.unlock(key)
}

// Take acquires the semaphore, blocking up to the timeout. It returns
// ErrBusy for NoWait on an empty semaphore and ErrTimedOut when the
// timeout expires.
func (s *Semaphore) Take(to Timeout) error {
	k := s.k
	key := k.lock()
	if s.count > 0 {
		s.count--
		k.unlock(key)
		return nil
	}
	if to.ticks == 0 {
		k.unlock(key)
		return ErrBusy
	}
	if k.core.InISR() {
		panic("kernel: blocking semaphore take in interrupt context")
	}

	deadline := int64(-1)
	if to.ticks > 0 {
		deadline = k.uptime + to.ticks
	}
	remaining := to
	for {
		code := k.pendCurrent(key, &s.waiters, remaining)
		if code == wakeSignaled {
			return nil
		}

		// Timed out. The tick that woke us may have been announced in a
		// batch that covered less virtual time than the deadline; re-pend
		// for the remainder in that case.
		key = k.lock()
		if deadline < 0 || k.uptime >= deadline {
			k.unlock(key)
			return ErrTimedOut
		}
		remaining = Ticks(deadline - k.uptime)
	}
}
