package kernel

import (
	"testing"

	"ember/hal"
	"ember/kconfig"
)

func TestHigherPriorityPreemptsOnCreate(t *testing.T) {
	boot(t, func(k *Kernel, core *hal.VirtualCore) {
		var order []string
		order = append(order, "m1")
		k.Go("hi", k.Config().PrioCoop(15), func() {
			order = append(order, "hi")
		})
		order = append(order, "m2")

		want := []string{"m1", "hi", "m2"}
		if !equalStrings(order, want) {
			t.Errorf("order = %v, want %v", order, want)
		}
	})
}

func TestLowerPriorityWaitsForBlock(t *testing.T) {
	boot(t, func(k *Kernel, core *hal.VirtualCore) {
		var order []string
		order = append(order, "m1")
		w, _ := k.Go("lo", PrioPreempt(5), func() {
			order = append(order, "lo")
		})
		order = append(order, "m2")
		k.Join(w, Forever)
		order = append(order, "m3")

		want := []string{"m1", "m2", "lo", "m3"}
		if !equalStrings(order, want) {
			t.Errorf("order = %v, want %v", order, want)
		}
	})
}

func TestCooperativeThreadKeepsCPU(t *testing.T) {
	boot(t, func(k *Kernel, core *hal.VirtualCore) {
		var order []string
		cfg := k.Config()

		c, _ := k.Go("coop", cfg.PrioCoop(15), func() {
			order = append(order, "c1")
			// Readying an even higher priority thread must not displace a
			// cooperative thread until it yields.
			k.Go("higher", cfg.PrioCoop(14), func() {
				order = append(order, "h")
			})
			order = append(order, "c2")
			k.Yield()
			order = append(order, "c3")
		})
		k.Join(c, Forever)

		want := []string{"c1", "c2", "h", "c3"}
		if !equalStrings(order, want) {
			t.Errorf("order = %v, want %v", order, want)
		}
	})
}

func TestYieldRoundRobinsEqualPriority(t *testing.T) {
	boot(t, func(k *Kernel, core *hal.VirtualCore) {
		var order []string
		mk := func(tag string) func() {
			return func() {
				for i := 0; i < 3; i++ {
					order = append(order, tag)
					k.Yield()
				}
			}
		}
		a, _ := k.Go("a", PrioPreempt(0), mk("a"))
		b, _ := k.Go("b", PrioPreempt(0), mk("b"))
		k.Join(a, Forever)
		k.Join(b, Forever)

		want := []string{"a", "b", "a", "b", "a", "b"}
		if !equalStrings(order, want) {
			t.Errorf("order = %v, want %v", order, want)
		}
	})
}

func TestTimesliceRotation(t *testing.T) {
	tbl := kconfig.Default()
	tbl.Set(kconfig.TimesliceSize, 2)
	bootKernel(t, tbl, func(k *Kernel, core *hal.VirtualCore) {
		other, _ := k.Go("other", k.Config().MainPriority, func() {
			for {
				k.Yield()
			}
		})
		defer func() {
			k.Abort(other)
			k.Join(other, Forever)
		}()

		before := k.Snapshot().SliceRotations

		// One announced tick must not rotate; the quantum is two.
		core.AdvanceTicks(1)
		k.Current().Priority() // delivery point without rescheduling
		if k.NeedsSwitch() {
			t.Errorf("NeedsSwitch() = true after 1 tick, want false")
		}

		core.AdvanceTicks(1)
		k.Current().Priority()
		if got := k.Snapshot().SliceRotations; got != before+1 {
			t.Errorf("SliceRotations = %d, want %d", got, before+1)
		}
		if !k.NeedsSwitch() {
			t.Errorf("NeedsSwitch() = false after quantum expiry, want true")
		}
	})
}

func TestSetPriorityReschedules(t *testing.T) {
	boot(t, func(k *Kernel, core *hal.VirtualCore) {
		var order []string
		w, _ := k.Go("w", PrioPreempt(5), func() {
			order = append(order, "w")
		})
		order = append(order, "m1")
		// Raising the worker above main hands over the CPU immediately.
		if err := k.SetPriority(w, k.Config().PrioCoop(15)); err != nil {
			t.Errorf("SetPriority() = %v, want nil", err)
		}
		order = append(order, "m2")

		want := []string{"m1", "w", "m2"}
		if !equalStrings(order, want) {
			t.Errorf("order = %v, want %v", order, want)
		}
	})
}

func TestSetPriorityRejectsOutOfRange(t *testing.T) {
	boot(t, func(k *Kernel, core *hal.VirtualCore) {
		if err := k.SetPriority(k.Current(), k.Config().NumPreemptPriorities); err != ErrPriority {
			t.Errorf("SetPriority(out of range) = %v, want ErrPriority", err)
		}
	})
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
