package kernel

// Timeout bounds a blocking operation in ticks.
type Timeout struct {
	ticks int64
}

var (
	// NoWait makes a blocking operation fail immediately instead.
	NoWait = Timeout{0}
	// Forever disables the timeout.
	Forever = Timeout{-1}
)

// Ticks returns a timeout of n ticks. Negative n waits forever.
func Ticks(n int64) Timeout { return Timeout{n} }

// IsForever reports whether the timeout never expires.
func (to Timeout) IsForever() bool { return to.ticks < 0 }

// The timeout list is a delta list ordered by expiry: each armed thread
// stores ticks relative to its predecessor, so announcing a tick only
// decrements the head.

func (k *Kernel) addTimeoutLocked(t *Thread, ticks int64) {
	if ticks < 0 {
		return
	}
	var prev *Thread
	at := k.timeouts
	for at != nil && at.dticks <= ticks {
		ticks -= at.dticks
		prev = at
		at = at.tnext
	}
	t.dticks = ticks
	t.tprev = prev
	t.tnext = at
	if prev != nil {
		prev.tnext = t
	} else {
		k.timeouts = t
	}
	if at != nil {
		at.dticks -= ticks
		at.tprev = t
	}
	t.armed = true
}

func (k *Kernel) removeTimeoutLocked(t *Thread) {
	if !t.armed {
		return
	}
	if t.tnext != nil {
		t.tnext.dticks += t.dticks
		t.tnext.tprev = t.tprev
	}
	if t.tprev != nil {
		t.tprev.tnext = t.tnext
	} else {
		k.timeouts = t.tnext
	}
	t.tnext, t.tprev = nil, nil
	t.armed = false
}

// expireTimeoutsLocked wakes every thread whose deadline falls within the
// elapsed ticks, in deadline order.
func (k *Kernel) expireTimeoutsLocked(elapsed int64) {
	for k.timeouts != nil && k.timeouts.dticks <= elapsed {
		t := k.timeouts
		elapsed -= t.dticks
		t.dticks = 0
		k.removeTimeoutLocked(t)
		if t.wq != nil {
			t.wq.remove(t)
			t.wq = nil
		}
		k.readyLocked(t, wakeTimedOut)
		k.counters.timeoutsExpired.Add(1)
	}
	if k.timeouts != nil {
		k.timeouts.dticks -= elapsed
	}
}
