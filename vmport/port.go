// Package vmport bridges a garbage-collected VM runtime onto kernel
// threads. It owns the thread registry and stack pool, the VM-facing
// mutexes, the global interpreter lock, and GC root reporting for every
// thread it created.
package vmport

import (
	"errors"
	"fmt"
	"sync/atomic"

	"ember/hal"
	"ember/kernel"
)

const (
	// MinStackSize is the smallest VM stack granted, in bytes.
	MinStackSize = 4 * 1024
	// DefaultStackSize is granted when the caller passes no size. It is
	// also the pool slot size, so no request can exceed it.
	DefaultStackSize = MinStackSize + 1024
	// MaxUserThreads bounds the stack pool. Creation past it fails with
	// ErrMaxThreads until a finished thread is reclaimed.
	MaxUserThreads = 8

	// stackMargin is held back from the granted span before reporting
	// the usable size to the VM.
	stackMargin = 1024
)

// wordSize is the byte width of a stack word on this target.
const wordSize = 4 << (^uintptr(0) >> 63)

// DefaultPriority is the kernel priority VM threads run at unless
// CreateEx says otherwise.
var DefaultPriority = kernel.PrioPreempt(5)

var (
	// ErrMaxThreads is returned when every stack slot is in use.
	ErrMaxThreads = errors.New("maximum number of threads reached")
	// ErrCreate wraps kernel-level thread creation failures.
	ErrCreate = errors.New("can't create thread")
)

// Status tracks where a VM thread is in its lifecycle.
type Status uint8

const (
	// StatusNew is set at creation, before the thread's glue has run.
	StatusNew Status = iota
	// StatusRunning is set by Start from inside the thread. Only running
	// threads get their stacks scanned.
	StatusRunning
	// StatusFinished marks a thread whose entry returned; the next
	// collection pass reclaims its record and stack slot.
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusRunning:
		return "running"
	case StatusFinished:
		return "finished"
	}
	return "unknown"
}

type phase uint8

const (
	phaseNone phase = iota
	phaseEarly
	phaseReady
)

// node is one registry entry. The registry is a singly-linked list,
// newest first, guarded by Port.mu.
type node struct {
	t      *kernel.Thread
	status Status
	alive  bool
	slot   int // stack pool index, -1 for the main thread
	arg    any
	stack  []uintptr
	next   *node
}

// Port owns every VM-visible threading surface. One Port serves one
// kernel. Construct it before the scheduler starts; InitEarly and Init
// then run on the VM main thread, in that order.
type Port struct {
	k   *kernel.Kernel
	log hal.Logger

	// collect runs the VM's collector before Create allocates. Without
	// one, Create reclaims finished registry entries directly.
	collect func()

	mu    Mutex
	phase phase
	main  *kernel.Thread
	head  *node

	stacks [MaxUserThreads][]uintptr
	used   [MaxUserThreads]bool

	// markAlive is built once so collection passes allocate nothing.
	markAlive func(*kernel.Thread)

	gil gilState

	created     atomic.Uint64
	finished    atomic.Uint64
	reclaimed   atomic.Uint64
	gilAcquires atomic.Uint64
	active      atomic.Int32
}

// New builds a port over k. log may be nil.
func New(k *kernel.Kernel, log hal.Logger) *Port {
	p := &Port{k: k, log: log}
	p.mu = NewMutex(k)
	p.gil = gilState{mu: NewMutex(k)}
	for i := range p.stacks {
		p.stacks[i] = make([]uintptr, DefaultStackSize/wordSize)
	}
	p.markAlive = func(t *kernel.Thread) {
		for n := p.head; n != nil; n = n.next {
			if n.t == t {
				n.alive = true
			}
		}
	}
	return p
}

// SetCollector installs the VM collector Create invokes before
// allocating a registry node.
func (p *Port) SetCollector(fn func()) { p.collect = fn }

// InitEarly claims the calling thread as the VM main thread and binds
// its state block. It runs before the VM heap exists and allocates
// nothing; Init completes the registry once allocation works. Calling
// it twice, or out of order with Init, is a programmer error.
func (p *Port) InitEarly(state any) {
	if p.phase != phaseNone {
		panic("vmport: InitEarly called twice")
	}
	p.main = p.k.Current()
	p.k.SetCustomData(state)
	p.phase = phaseEarly
}

// Init records the main thread in the registry. stack is the buffer the
// VM interprets on; collection passes report it like any secondary
// stack.
func (p *Port) Init(stack []uintptr) {
	switch p.phase {
	case phaseNone:
		panic("vmport: Init before InitEarly")
	case phaseReady:
		panic("vmport: Init called twice")
	}
	p.head = &node{
		t:      p.main,
		status: StatusRunning,
		slot:   -1,
		stack:  stack,
	}
	p.phase = phaseReady
}

// Create starts a VM thread at the default priority with a generated
// name. stackSize is the requested stack span in bytes: zero selects
// DefaultStackSize, smaller requests are raised to MinStackSize, larger
// ones capped at the slot size. It returns the kernel thread id and the
// usable stack size after the safety margin.
func (p *Port) Create(entry func(any), arg any, stackSize int) (uint32, int, error) {
	name := fmt.Sprintf("vm-%d", p.active.Load())
	return p.CreateEx(entry, arg, stackSize, DefaultPriority, name)
}

// CreateEx starts a VM thread with an explicit priority and name. entry
// receives arg on the new thread; the thread's glue calls Start once it
// runs, and Finish is marked for it when entry returns.
func (p *Port) CreateEx(entry func(any), arg any, stackSize, prio int, name string) (uint32, int, error) {
	if p.phase != phaseReady {
		panic("vmport: Create before Init")
	}

	if stackSize == 0 {
		stackSize = DefaultStackSize
	} else if stackSize < MinStackSize {
		stackSize = MinStackSize
	} else if stackSize > DefaultStackSize {
		stackSize = DefaultStackSize
	}

	// Give finished threads back their slots before claiming one.
	if p.collect != nil {
		p.collect()
	} else {
		p.reclaimFinished()
	}

	// The node is allocated before the registry lock is taken, the same
	// order a collector hooked by SetCollector expects.
	n := &node{status: StatusNew, arg: arg}

	p.mu.Lock(true)
	slot := p.findSlotLocked()
	if slot < 0 {
		p.mu.Unlock()
		return 0, 0, ErrMaxThreads
	}

	t, err := p.k.Go(name, prio, func() {
		defer p.Finish()
		entry(arg)
	})
	if err != nil {
		p.mu.Unlock()
		return 0, 0, fmt.Errorf("%w: %w", ErrCreate, err)
	}

	n.t = t
	n.slot = slot
	n.stack = p.stacks[slot][:stackSize/wordSize]
	n.next = p.head
	p.head = n
	p.used[slot] = true
	p.active.Add(1)
	p.created.Add(1)
	p.mu.Unlock()

	if p.log != nil {
		p.log.WriteLineString("vmport: created " + name)
	}
	return t.ID(), stackSize - stackMargin, nil
}

// Start marks the calling thread running. VM glue calls it first thing
// on a new thread. The walk takes no lock: one core runs one thread at
// a time and a status store cannot straddle a switch point.
func (p *Port) Start() {
	t := p.k.Current()
	for n := p.head; n != nil; n = n.next {
		if n.t == t {
			n.status = StatusRunning
			break
		}
	}
}

// Finish marks the calling thread finished so the next collection pass
// can reclaim its record. Create's trampoline defers it; an explicit
// call from VM glue is fine because only the first transition counts.
func (p *Port) Finish() {
	t := p.k.Current()
	p.mu.Lock(true)
	for n := p.head; n != nil; n = n.next {
		if n.t == t {
			if n.status != StatusFinished {
				n.status = StatusFinished
				p.finished.Add(1)
			}
			break
		}
	}
	p.mu.Unlock()
}

// ID returns the calling thread's kernel id.
func (p *Port) ID() uint32 { return p.k.Current().ID() }

// SetState binds the VM's per-thread state block to the calling thread.
func (p *Port) SetState(state any) { p.k.SetCustomData(state) }

// State returns the block bound by SetState on the calling thread.
func (p *Port) State() any { return p.k.CustomData() }

// GCOthers reports GC roots and reclaims finished registry entries.
// visit is called once per registered thread with its argument and, when
// the caller must scan it, the granted stack span; the span is nil for
// the calling thread's own record and for threads that are not running.
// The walk allocates nothing and runs with interrupts enabled.
func (p *Port) GCOthers(visit func(arg any, stack []uintptr)) {
	if p.phase != phaseReady {
		return
	}
	self := p.k.Current()

	p.mu.Lock(true)
	p.reclaimLocked()
	for n := p.head; n != nil; n = n.next {
		stack := n.stack
		if n.t == self || n.status != StatusRunning {
			stack = nil
		}
		visit(n.arg, stack)
	}
	p.mu.Unlock()
}

// Deinit aborts and joins every registry thread except the caller, then
// resets the port to its pre-InitEarly state so a soft reset can run the
// init sequence again. The GIL is rebuilt; a holder that died with it is
// not carried over.
func (p *Port) Deinit() {
	if p.phase != phaseReady {
		return
	}
	self := p.k.Current()

	var doomed [MaxUserThreads + 1]*kernel.Thread
	nd := 0
	p.mu.Lock(true)
	for n := p.head; n != nil; n = n.next {
		if n.t != self && n.status != StatusFinished {
			n.status = StatusFinished
			p.finished.Add(1)
			p.k.Abort(n.t)
			doomed[nd] = n.t
			nd++
		}
	}
	p.mu.Unlock()

	// Aborted threads unwind when scheduled; their records must not be
	// unlinked before the kernel is done with them.
	for _, t := range doomed[:nd] {
		_ = p.k.Join(t, kernel.Forever)
	}

	p.mu.Lock(true)
	for n := p.head; n != nil; n = n.next {
		if n.slot >= 0 {
			p.used[n.slot] = false
			p.active.Add(-1)
			p.reclaimed.Add(1)
		}
	}
	p.head = nil
	p.main = nil
	p.phase = phaseNone
	p.gil = gilState{mu: NewMutex(p.k)}
	p.mu.Unlock()

	if p.log != nil {
		p.log.WriteLineString("vmport: deinit complete")
	}
}

// reclaimFinished drops finished threads the kernel has already torn
// down. Create uses it when no collector is installed.
func (p *Port) reclaimFinished() {
	if p.phase != phaseReady {
		return
	}
	p.mu.Lock(true)
	p.reclaimLocked()
	p.mu.Unlock()
}

// reclaimLocked unlinks every record that is finished and no longer
// known to the kernel, freeing its stack slot. Records that survive get
// their alive flag reset for the next pass.
func (p *Port) reclaimLocked() {
	p.k.Foreach(p.markAlive)

	var prev *node
	for n := p.head; n != nil; n = n.next {
		if n.status == StatusFinished && !n.alive {
			if prev != nil {
				prev.next = n.next
			} else {
				p.head = n.next
			}
			if n.slot >= 0 {
				p.used[n.slot] = false
				p.active.Add(-1)
			}
			p.reclaimed.Add(1)
			continue
		}
		n.alive = false
		prev = n
	}
}

func (p *Port) findSlotLocked() int {
	for i := range p.used {
		if !p.used[i] {
			return i
		}
	}
	return -1
}

// Stats is a point-in-time snapshot of port activity.
type Stats struct {
	Created     uint64
	Finished    uint64
	Reclaimed   uint64
	GilAcquires uint64
	Active      int
}

// Stats may be called from any goroutine.
func (p *Port) Stats() Stats {
	return Stats{
		Created:     p.created.Load(),
		Finished:    p.finished.Load(),
		Reclaimed:   p.reclaimed.Load(),
		GilAcquires: p.gilAcquires.Load(),
		Active:      int(p.active.Load()),
	}
}
