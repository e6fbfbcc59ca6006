package kernel

import (
	"testing"

	"ember/hal"
)

func TestMutexRecursive(t *testing.T) {
	boot(t, func(k *Kernel, core *hal.VirtualCore) {
		m := NewMutex(k)
		if err := m.Lock(Forever); err != nil {
			t.Errorf("Lock() = %v, want nil", err)
		}
		if err := m.Lock(Forever); err != nil {
			t.Errorf("nested Lock() = %v, want nil", err)
		}
		if err := m.Unlock(); err != nil {
			t.Errorf("Unlock() = %v, want nil", err)
		}
		if m.Holder() != k.Current() {
			t.Errorf("Holder() after partial unlock = %v, want current", m.Holder())
		}
		if err := m.Unlock(); err != nil {
			t.Errorf("final Unlock() = %v, want nil", err)
		}
		if m.Holder() != nil {
			t.Errorf("Holder() after full unlock = %v, want nil", m.Holder())
		}
	})
}

func TestMutexNotOwner(t *testing.T) {
	boot(t, func(k *Kernel, core *hal.VirtualCore) {
		m := NewMutex(k)
		gate := NewSemaphore(k, 0, 1)
		holder, _ := k.Go("holder", k.Config().PrioCoop(15), func() {
			m.Lock(Forever)
			gate.Take(Forever) // parks while holding the mutex
			m.Unlock()
		})

		if err := m.Unlock(); err != ErrNotOwner {
			t.Errorf("Unlock() from non-owner = %v, want ErrNotOwner", err)
		}
		if err := m.Lock(NoWait); err != ErrBusy {
			t.Errorf("Lock(NoWait) on held mutex = %v, want ErrBusy", err)
		}
		gate.Give()
		k.Join(holder, Forever)
	})
}

func TestMutexPriorityInheritance(t *testing.T) {
	boot(t, func(k *Kernel, core *hal.VirtualCore) {
		m := NewMutex(k)
		var order []string
		var low *Thread

		low, _ = k.Go("low", PrioPreempt(5), func() {
			self := k.Current()
			m.Lock(Forever)
			order = append(order, "low-locked")

			// The contender outranks us and blocks on the mutex; its
			// priority is lent to us until we unlock.
			k.Go("high", PrioPreempt(2), func() {
				m.Lock(Forever)
				order = append(order, "high-locked")
				if p := low.Priority(); p != PrioPreempt(5) {
					t.Errorf("low priority after unlock = %d, want %d", p, PrioPreempt(5))
				}
				m.Unlock()
			})

			if p := self.Priority(); p != PrioPreempt(2) {
				t.Errorf("boosted priority = %d, want %d", p, PrioPreempt(2))
			}
			m.Unlock()
			order = append(order, "low-after")
		})

		k.Join(low, Forever)
		want := []string{"low-locked", "high-locked", "low-after"}
		if !equalStrings(order, want) {
			t.Errorf("order = %v, want %v", order, want)
		}
	})
}

func TestMutexHandoffToBestWaiter(t *testing.T) {
	boot(t, func(k *Kernel, core *hal.VirtualCore) {
		m := NewMutex(k)
		cfg := k.Config()
		var order []string

		m.Lock(Forever)
		waiter := func(tag string, prio int) *Thread {
			w, _ := k.Go(tag, prio, func() {
				m.Lock(Forever)
				order = append(order, tag)
				m.Unlock()
			})
			return w
		}
		a := waiter("slow", cfg.PrioCoop(15))
		b := waiter("fast", cfg.PrioCoop(13))
		// The first waiter's inheritance made main cooperative, so the
		// second waiter needs an explicit yield to reach its pend.
		k.Yield()

		m.Unlock()
		k.Join(a, Forever)
		k.Join(b, Forever)

		want := []string{"fast", "slow"}
		if !equalStrings(order, want) {
			t.Errorf("acquire order = %v, want %v", order, want)
		}
	})
}
