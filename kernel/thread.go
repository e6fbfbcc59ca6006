package kernel

// wakeCode tells a thread resuming from a context switch why it was
// scheduled again.
type wakeCode uint8

const (
	// wakeResumed: the thread was runnable all along and got the CPU back.
	wakeResumed wakeCode = iota
	// wakeSignaled: a wait was satisfied by a direct handoff.
	wakeSignaled
	// wakeTimedOut: a timed wait expired.
	wakeTimedOut
	// wakeAborted: the thread must unwind and terminate.
	wakeAborted
)

type threadState uint8

const (
	stateReady threadState = iota
	statePending
	stateDead
)

// abortRequest unwinds an aborted thread through its entry function.
type abortRequest struct{}

// Thread is one schedulable unit of execution. All linkage fields are
// intrusive and owned by the kernel lock.
type Thread struct {
	k     *Kernel
	id    uint32
	name  string
	entry func()

	// gate delivers the CPU to the thread. Buffered so the switching
	// thread never blocks handing off.
	gate chan wakeCode

	state threadState
	prio  int
	// wake is the code delivered at the next switch-in.
	wake wakeCode

	// Ready queue linkage.
	qnext, qprev *Thread
	inReady      bool

	// Wait queue linkage.
	wq           *waitQueue
	wnext, wprev *Thread

	// Timeout delta-list linkage.
	tnext, tprev *Thread
	dticks       int64
	armed        bool

	// Registry linkage for Foreach.
	allNext, allPrev *Thread

	joiners waitQueue

	// Remaining round-robin quantum.
	slice int64

	// custom is the per-thread data slot. Only the thread itself touches
	// it, so it needs no lock.
	custom any

	_ [0]func() // no copying
}

// ID returns the kernel-assigned thread ID.
func (t *Thread) ID() uint32 { return t.id }

// Name returns the thread name, which may be empty if naming is disabled.
func (t *Thread) Name() string { return t.name }

// Priority returns the thread's current priority, including any transient
// boost from priority inheritance.
func (t *Thread) Priority() int {
	key := t.k.lock()
	p := t.prio
	t.k.unlock(key)
	return p
}

// Dead reports whether the thread has terminated.
func (t *Thread) Dead() bool {
	key := t.k.lock()
	d := t.state == stateDead
	t.k.unlock(key)
	return d
}

// threadMain is the goroutine body backing every thread. It waits for its
// first switch-in, runs the entry function with abort unwinding, and exits
// through the scheduler.
func (t *Thread) threadMain() {
	code := <-t.gate
	if code == wakeAborted {
		// Aborted before running any user code. The thread is current
		// here, so it exits like any other.
		t.k.exitCurrent(nil)
		return
	}

	var fatal any
	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(abortRequest); ok {
					return
				}
				fatal = r
			}
		}()
		t.entry()
	}()
	t.k.exitCurrent(fatal)
}

// Go creates a thread and makes it runnable immediately. The entry function
// runs until it returns or the thread is aborted.
func (k *Kernel) Go(name string, prio int, entry func()) (*Thread, error) {
	if !k.started.Load() {
		return nil, ErrNotRunning
	}
	if !k.cfg.validPriority(prio) {
		return nil, ErrPriority
	}

	t := k.newThread(name, prio, entry)
	key := k.lock()
	k.registerLocked(t)
	k.readyLocked(t, wakeResumed)
	go t.threadMain()
	k.counters.threadsCreated.Add(1)
	if k.tracer != nil {
		k.tracer.ThreadNew(t)
	}
	k.reschedule(key)
	return t, nil
}

func (k *Kernel) newThread(name string, prio int, entry func()) *Thread {
	if !k.cfg.ThreadNames {
		name = ""
	} else if k.cfg.MaxNameLen > 0 && len(name) > k.cfg.MaxNameLen {
		name = name[:k.cfg.MaxNameLen]
	}
	return &Thread{
		k:     k,
		id:    k.nextID.Add(1),
		name:  name,
		entry: entry,
		gate:  make(chan wakeCode, 1),
		prio:  prio,
		slice: k.cfg.TimesliceTicks,
	}
}

// exitCurrent terminates the calling thread. If fatal is non-nil the thread
// died from a panic; the fatal hook decides whether the fault stays
// confined to this thread or takes the process down.
func (k *Kernel) exitCurrent(fatal any) {
	self := k.currentThread()
	handled := true
	if fatal != nil {
		handled = k.triggerFatal(PanicInfo{Thread: self, Value: fatal})
	}

	key := k.lock()
	k.readyRemoveLocked(self)
	self.state = stateDead
	k.unregisterLocked(self)
	for {
		w := self.joiners.popBest()
		if w == nil {
			break
		}
		k.removeTimeoutLocked(w)
		w.wq = nil
		k.readyLocked(w, wakeSignaled)
	}
	k.counters.threadsExited.Add(1)
	if k.tracer != nil {
		k.tracer.ThreadDead(self)
	}

	next := k.pickNextLocked()
	k.current = next
	if k.tracer != nil {
		k.tracer.ContextSwitch(self, next)
	}
	k.counters.switches.Add(1)
	next.slice = k.cfg.TimesliceTicks
	k.unlock(key)
	next.gate <- next.wake

	if fatal != nil && !handled {
		panic(fatal)
	}
}

// Join blocks until t terminates or the timeout expires.
func (k *Kernel) Join(t *Thread, to Timeout) error {
	key := k.lock()
	self := k.current
	if t == self {
		k.unlock(key)
		return ErrDeadlock
	}
	if t.state == stateDead {
		k.unlock(key)
		return nil
	}
	if to.ticks == 0 {
		k.unlock(key)
		return ErrBusy
	}

	code := k.pendCurrent(key, &t.joiners, to)
	if code == wakeTimedOut {
		return ErrTimedOut
	}
	return nil
}

// Abort requests termination of t. The target unwinds through its entry
// function the next time it is scheduled; Join observes completion.
// Aborting the current thread does not return.
func (k *Kernel) Abort(t *Thread) {
	key := k.lock()
	self := k.current
	if t == self {
		k.unlock(key)
		panic(abortRequest{})
	}
	switch t.state {
	case stateDead:
		k.unlock(key)
	case statePending:
		k.removeTimeoutLocked(t)
		if t.wq != nil {
			t.wq.remove(t)
			t.wq = nil
		}
		k.readyLocked(t, wakeAborted)
		k.reschedule(key)
	default:
		t.wake = wakeAborted
		k.reschedule(key)
	}
}

// Sleep blocks the current thread for the given number of ticks. A
// non-positive duration yields instead.
func (k *Kernel) Sleep(ticks int64) {
	if ticks <= 0 {
		k.Yield()
		return
	}
	key := k.lock()
	k.pendCurrent(key, nil, Ticks(ticks))
}

// Yield moves the current thread behind every other runnable thread of the
// same priority and reschedules. Unlike preemption this works for
// cooperative threads too.
func (k *Kernel) Yield() {
	key := k.lock()
	self := k.current
	k.readyRemoveLocked(self)
	k.readyInsertLocked(self)
	next := k.readyQ.head
	if next == self {
		k.core.TakePendSwitch()
		k.unlock(key)
		return
	}
	self.wake = wakeResumed
	k.core.TakePendSwitch()
	k.swapTo(next, key)
}

// SetPriority changes t's priority and reschedules if that changes the
// best runnable thread.
func (k *Kernel) SetPriority(t *Thread, prio int) error {
	if !k.cfg.validPriority(prio) {
		return ErrPriority
	}
	key := k.lock()
	if t.state == stateDead {
		k.unlock(key)
		return nil
	}
	k.setPriorityLocked(t, prio)
	k.reschedule(key)
	return nil
}

// SetCustomData attaches v to the current thread.
func (k *Kernel) SetCustomData(v any) {
	k.currentThread().custom = v
}

// CustomData returns the value attached to the current thread.
func (k *Kernel) CustomData() any {
	return k.currentThread().custom
}
