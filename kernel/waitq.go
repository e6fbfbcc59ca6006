package kernel

// waitQueue holds pended threads in priority order, FIFO within a
// priority. The links live in the Thread so queueing never allocates.
type waitQueue struct {
	head, tail *Thread
}

func (q *waitQueue) empty() bool { return q.head == nil }

func (q *waitQueue) insert(t *Thread) {
	at := q.head
	for at != nil && at.prio <= t.prio {
		at = at.wnext
	}
	if at == nil {
		t.wprev = q.tail
		t.wnext = nil
		if q.tail != nil {
			q.tail.wnext = t
		} else {
			q.head = t
		}
		q.tail = t
		return
	}
	t.wnext = at
	t.wprev = at.wprev
	if at.wprev != nil {
		at.wprev.wnext = t
	} else {
		q.head = t
	}
	at.wprev = t
}

func (q *waitQueue) remove(t *Thread) {
	if t.wprev != nil {
		t.wprev.wnext = t.wnext
	} else if q.head == t {
		q.head = t.wnext
	}
	if t.wnext != nil {
		t.wnext.wprev = t.wprev
	} else if q.tail == t {
		q.tail = t.wprev
	}
	t.wnext, t.wprev = nil, nil
}

// popBest removes and returns the highest-priority longest-waiting thread,
// or nil if the queue is empty.
func (q *waitQueue) popBest() *Thread {
	t := q.head
	if t == nil {
		return nil
	}
	q.remove(t)
	return t
}
