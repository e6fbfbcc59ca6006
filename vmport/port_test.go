package vmport

import (
	"errors"
	"testing"
	"time"

	"ember/hal"
	"ember/kconfig"
	"ember/kernel"
)

// bootRaw runs scenario as the kernel's main thread with an uninitialized
// port, for exercising the init sequence itself.
func bootRaw(t *testing.T, scenario func(p *Port, k *kernel.Kernel, core *hal.VirtualCore)) {
	t.Helper()

	core := hal.NewVirtualCore(1_000_000)
	cfg, err := kernel.ConfigFromTable(kconfig.Default())
	if err != nil {
		t.Fatalf("ConfigFromTable() = %v, want nil", err)
	}
	k := kernel.New(core, cfg)
	if err := core.ConfigureTick(999); err != nil {
		t.Fatalf("ConfigureTick(999) = %v, want nil", err)
	}
	core.SetTickHandler(func() {
		k.AnnounceTicks(1)
		if k.NeedsSwitch() {
			core.PendSwitch()
		}
	})
	core.EnableTickInterrupt()

	p := New(k, nil)
	done := make(chan struct{})
	k.Start(func() {
		scenario(p, k, core)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("scenario did not finish")
	}
}

// bootPort is bootRaw with the init sequence already run on the main
// thread.
func bootPort(t *testing.T, scenario func(p *Port, k *kernel.Kernel, core *hal.VirtualCore)) {
	t.Helper()
	bootRaw(t, func(p *Port, k *kernel.Kernel, core *hal.VirtualCore) {
		p.InitEarly(nil)
		p.Init(make([]uintptr, 256))
		scenario(p, k, core)
	})
}

// feedTicks queues n ticks and takes delivery points one at a time.
func feedTicks(k *kernel.Kernel, core *hal.VirtualCore, n int64) {
	for i := int64(0); i < n; i++ {
		core.AdvanceTicks(1)
		k.Yield()
	}
}

// threadByID digs a kernel thread handle out of the live-thread registry.
func threadByID(k *kernel.Kernel, id uint32) *kernel.Thread {
	var found *kernel.Thread
	k.Foreach(func(t *kernel.Thread) {
		if t.ID() == id {
			found = t
		}
	})
	return found
}

func joinID(t *testing.T, k *kernel.Kernel, id uint32) {
	t.Helper()
	th := threadByID(k, id)
	if th == nil {
		return // already gone
	}
	if err := k.Join(th, kernel.Forever); err != nil {
		t.Fatalf("Join(vm thread %d) = %v, want nil", id, err)
	}
}

func panicValue(fn func()) (v any) {
	defer func() { v = recover() }()
	fn()
	return nil
}

func TestInitOrderViolationsPanic(t *testing.T) {
	bootRaw(t, func(p *Port, k *kernel.Kernel, core *hal.VirtualCore) {
		if v := panicValue(func() { p.Init(nil) }); v == nil {
			t.Errorf("Init before InitEarly did not panic")
		}
		if v := panicValue(func() { _, _, _ = p.Create(func(any) {}, nil, 0) }); v == nil {
			t.Errorf("Create before Init did not panic")
		}

		p.InitEarly(nil)
		if v := panicValue(func() { p.InitEarly(nil) }); v == nil {
			t.Errorf("second InitEarly did not panic")
		}

		p.Init(nil)
		if v := panicValue(func() { p.Init(nil) }); v == nil {
			t.Errorf("second Init did not panic")
		}
	})
}

func TestCreateRunsEntryWithArg(t *testing.T) {
	bootPort(t, func(p *Port, k *kernel.Kernel, core *hal.VirtualCore) {
		type payload struct{ n int }
		want := &payload{n: 7}

		var got any
		id, usable, err := p.Create(func(arg any) {
			p.Start()
			got = arg
		}, want, 0)
		if err != nil {
			t.Fatalf("Create() = %v, want nil", err)
		}
		if id == 0 {
			t.Errorf("Create() id = 0, want nonzero")
		}
		if usable != DefaultStackSize-stackMargin {
			t.Errorf("Create() usable = %d, want %d", usable, DefaultStackSize-stackMargin)
		}

		joinID(t, k, id)
		if got != want {
			t.Errorf("entry arg = %v, want %v", got, want)
		}
		st := p.Stats()
		if st.Created != 1 || st.Finished != 1 {
			t.Errorf("Stats() = %+v, want Created 1 Finished 1", st)
		}
	})
}

func TestCreateStackGrants(t *testing.T) {
	bootPort(t, func(p *Port, k *kernel.Kernel, core *hal.VirtualCore) {
		cases := []struct {
			request int
			usable  int
		}{
			{0, DefaultStackSize - stackMargin},
			{1, MinStackSize - stackMargin},
			{MinStackSize, MinStackSize - stackMargin},
			{DefaultStackSize, DefaultStackSize - stackMargin},
			{DefaultStackSize * 4, DefaultStackSize - stackMargin},
		}
		for _, tc := range cases {
			id, usable, err := p.Create(func(any) { p.Start() }, nil, tc.request)
			if err != nil {
				t.Fatalf("Create(stack %d) = %v, want nil", tc.request, err)
			}
			if usable != tc.usable {
				t.Errorf("Create(stack %d) usable = %d, want %d", tc.request, usable, tc.usable)
			}
			joinID(t, k, id)
		}
	})
}

func TestCreateExhaustionAndReclaim(t *testing.T) {
	bootPort(t, func(p *Port, k *kernel.Kernel, core *hal.VirtualCore) {
		gate := kernel.NewSemaphore(k, 0, MaxUserThreads)

		var ids [MaxUserThreads]uint32
		for i := range ids {
			id, _, err := p.Create(func(any) {
				p.Start()
				gate.Take(kernel.Forever)
			}, nil, 0)
			if err != nil {
				t.Fatalf("Create #%d = %v, want nil", i, err)
			}
			ids[i] = id
		}

		if _, _, err := p.Create(func(any) {}, nil, 0); !errors.Is(err, ErrMaxThreads) {
			t.Fatalf("Create #%d = %v, want ErrMaxThreads", MaxUserThreads, err)
		}

		for range ids {
			gate.Give()
		}
		for _, id := range ids {
			joinID(t, k, id)
		}

		// All records are still registered; the next create reclaims them.
		if st := p.Stats(); st.Active != MaxUserThreads {
			t.Errorf("Active before reclaim = %d, want %d", st.Active, MaxUserThreads)
		}
		id, _, err := p.Create(func(any) { p.Start() }, nil, 0)
		if err != nil {
			t.Fatalf("Create after reclaim = %v, want nil", err)
		}
		st := p.Stats()
		if st.Reclaimed != MaxUserThreads {
			t.Errorf("Reclaimed = %d, want %d", st.Reclaimed, MaxUserThreads)
		}
		if st.Active != 1 {
			t.Errorf("Active after reclaim = %d, want 1", st.Active)
		}
		joinID(t, k, id)
	})
}

func TestCreateBadPriorityKeepsSlotFree(t *testing.T) {
	bootPort(t, func(p *Port, k *kernel.Kernel, core *hal.VirtualCore) {
		_, _, err := p.CreateEx(func(any) {}, nil, 0, 99, "bogus")
		if !errors.Is(err, ErrCreate) {
			t.Fatalf("CreateEx(prio 99) = %v, want ErrCreate", err)
		}
		if !errors.Is(err, kernel.ErrPriority) {
			t.Errorf("CreateEx(prio 99) = %v, want wrapped ErrPriority", err)
		}
		if st := p.Stats(); st.Active != 0 || st.Created != 0 {
			t.Errorf("Stats() after failed create = %+v, want zero", st)
		}

		id, _, err := p.Create(func(any) { p.Start() }, nil, 0)
		if err != nil {
			t.Fatalf("Create after failure = %v, want nil", err)
		}
		joinID(t, k, id)
	})
}

func TestGCOthersVisitsAndReclaims(t *testing.T) {
	bootPort(t, func(p *Port, k *kernel.Kernel, core *hal.VirtualCore) {
		gate := kernel.NewSemaphore(k, 0, 1)

		// A running thread parked on the gate: stack must be visited.
		runnerID, _, err := p.CreateEx(func(any) {
			p.Start()
			gate.Take(kernel.Forever)
		}, "runner-arg", 0, kernel.PrioPreempt(0), "runner")
		if err != nil {
			t.Fatalf("CreateEx(runner) = %v, want nil", err)
		}
		k.Yield() // runner starts and parks

		// A finished thread: must be reclaimed, not visited.
		deadID, _, err := p.CreateEx(func(any) { p.Start() }, "dead-arg", 0, kernel.PrioPreempt(0), "dead")
		if err != nil {
			t.Fatalf("CreateEx(dead) = %v, want nil", err)
		}
		joinID(t, k, deadID)

		// A thread that never got the CPU: visited, stack skipped.
		newID, _, err := p.Create(func(any) { p.Start() }, "new-arg", 0)
		if err != nil {
			t.Fatalf("Create(new) = %v, want nil", err)
		}

		var args [4]any
		var stackLens [4]int
		count := 0
		p.GCOthers(func(arg any, stack []uintptr) {
			if count < len(args) {
				args[count] = arg
				stackLens[count] = len(stack)
			}
			count++
		})

		if count != 3 {
			t.Fatalf("GCOthers visited %d records, want 3", count)
		}
		// Registry is newest-first: the unstarted thread, the runner, main.
		if args[0] != "new-arg" || stackLens[0] != 0 {
			t.Errorf("visit 0 = (%v, %d words), want (new-arg, no stack)", args[0], stackLens[0])
		}
		if args[1] != "runner-arg" || stackLens[1] != DefaultStackSize/wordSize {
			t.Errorf("visit 1 = (%v, %d words), want (runner-arg, %d words)",
				args[1], stackLens[1], DefaultStackSize/wordSize)
		}
		if args[2] != nil || stackLens[2] != 0 {
			t.Errorf("visit 2 = (%v, %d words), want caller's record with no stack", args[2], stackLens[2])
		}
		if st := p.Stats(); st.Reclaimed != 1 {
			t.Errorf("Reclaimed = %d, want 1", st.Reclaimed)
		}

		gate.Give()
		joinID(t, k, runnerID)
		joinID(t, k, newID)
	})
}

func TestGCOthersDoesNotAllocate(t *testing.T) {
	bootPort(t, func(p *Port, k *kernel.Kernel, core *hal.VirtualCore) {
		gate := kernel.NewSemaphore(k, 0, 1)
		id, _, err := p.Create(func(any) {
			p.Start()
			gate.Take(kernel.Forever)
		}, "arg", 0)
		if err != nil {
			t.Fatalf("Create() = %v, want nil", err)
		}

		visit := func(any, []uintptr) {}
		if allocs := testing.AllocsPerRun(50, func() { p.GCOthers(visit) }); allocs != 0 {
			t.Errorf("GCOthers allocated %.1f objects per run, want 0", allocs)
		}

		gate.Give()
		joinID(t, k, id)
	})
}

func TestDeinitAbortsSecondariesAndResets(t *testing.T) {
	bootPort(t, func(p *Port, k *kernel.Kernel, core *hal.VirtualCore) {
		gate := kernel.NewSemaphore(k, 0, 4)
		for i := 0; i < 3; i++ {
			_, _, err := p.CreateEx(func(any) {
				p.Start()
				gate.Take(kernel.Forever)
			}, nil, 0, kernel.PrioPreempt(0), "blocker")
			if err != nil {
				t.Fatalf("CreateEx #%d = %v, want nil", i, err)
			}
		}
		k.Yield() // blockers park on the gate

		p.Deinit()

		st := p.Stats()
		if st.Active != 0 {
			t.Errorf("Active after Deinit = %d, want 0", st.Active)
		}
		if st.Finished != 3 {
			t.Errorf("Finished after Deinit = %d, want 3", st.Finished)
		}
		visited := 0
		p.GCOthers(func(any, []uintptr) { visited++ })
		if visited != 0 {
			t.Errorf("GCOthers after Deinit visited %d records, want 0", visited)
		}

		// A soft reset runs the init sequence again.
		p.InitEarly(nil)
		p.Init(nil)
		id, _, err := p.Create(func(any) { p.Start() }, nil, 0)
		if err != nil {
			t.Fatalf("Create after reset = %v, want nil", err)
		}
		joinID(t, k, id)
		p.GilEnter()
		p.GilExit()
	})
}

func TestDeinitBeforeInitIsNoOp(t *testing.T) {
	bootRaw(t, func(p *Port, k *kernel.Kernel, core *hal.VirtualCore) {
		p.Deinit()
	})
}

func TestStatePerThread(t *testing.T) {
	bootRaw(t, func(p *Port, k *kernel.Kernel, core *hal.VirtualCore) {
		p.InitEarly("main-state")
		p.Init(nil)
		if got := p.State(); got != "main-state" {
			t.Fatalf("State() = %v, want main-state", got)
		}

		var fresh, own any
		id, _, err := p.CreateEx(func(any) {
			p.Start()
			fresh = p.State()
			p.SetState("worker-state")
			own = p.State()
		}, nil, 0, kernel.PrioPreempt(0), "stateful")
		if err != nil {
			t.Fatalf("CreateEx() = %v, want nil", err)
		}
		joinID(t, k, id)

		if fresh != nil {
			t.Errorf("fresh thread State() = %v, want nil", fresh)
		}
		if own != "worker-state" {
			t.Errorf("worker State() = %v, want worker-state", own)
		}
		if got := p.State(); got != "main-state" {
			t.Errorf("main State() = %v after worker, want main-state", got)
		}
	})
}

func TestStatusString(t *testing.T) {
	cases := []struct {
		s    Status
		want string
	}{
		{StatusNew, "new"},
		{StatusRunning, "running"},
		{StatusFinished, "finished"},
		{Status(9), "unknown"},
	}
	for _, tc := range cases {
		if got := tc.s.String(); got != tc.want {
			t.Errorf("Status(%d).String() = %q, want %q", tc.s, got, tc.want)
		}
	}
}
