package vmport

import "ember/kernel"

// gilState is the global interpreter lock. None or exactly one thread
// holds it; owner is written only by the thread taking or dropping the
// lock, always on the single core.
type gilState struct {
	mu    Mutex
	owner *kernel.Thread
}

// GilEnter acquires the GIL, suspending until the holder drops it. The
// kernel's wake policy picks the next holder under contention.
func (p *Port) GilEnter() {
	p.gil.mu.Lock(true)
	p.gil.owner = p.k.Current()
	p.gilAcquires.Add(1)
}

// GilExit drops the GIL and yields, so an equal-priority thread waiting
// on it runs before this one can take it back. Calling it without
// holding the GIL is a programmer error.
func (p *Port) GilExit() {
	if p.gil.owner != p.k.Current() {
		panic("vmport: GIL exit by non-owner")
	}
	p.gil.owner = nil
	p.gil.mu.Unlock()
	p.k.Yield()
}

// GilOwner reports the holding thread, nil when the GIL is free.
func (p *Port) GilOwner() *kernel.Thread {
	return p.gil.owner
}
