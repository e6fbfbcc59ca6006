package vmport

import "ember/kernel"

// Mutex is the VM-facing lock: a binary semaphore, so any thread may
// release it, and the kernel's wake policy picks the next holder. The VM
// uses this shape for locks it hands between threads.
type Mutex struct {
	s *kernel.Semaphore
}

// NewMutex returns an unlocked mutex on k.
func NewMutex(k *kernel.Kernel) Mutex {
	return Mutex{s: kernel.NewSemaphore(k, 1, 1)}
}

// Lock acquires the mutex, suspending the caller while it is held. With
// wait false it fails instead. It reports whether the lock was taken.
func (m Mutex) Lock(wait bool) bool {
	to := kernel.NoWait
	if wait {
		to = kernel.Forever
	}
	return m.s.Take(to) == nil
}

// Unlock releases the mutex.
func (m Mutex) Unlock() {
	m.s.Give()
}

// RecursiveMutex nests: the holder may relock it and must unlock as many
// times. The VM serializes its allocator and collector on one of these
// when running without the GIL.
type RecursiveMutex struct {
	m *kernel.Mutex
}

// NewRecursiveMutex returns an unlocked recursive mutex on k.
func NewRecursiveMutex(k *kernel.Kernel) RecursiveMutex {
	return RecursiveMutex{m: kernel.NewMutex(k)}
}

// Lock acquires the mutex, counting reacquisition by the holder. With
// wait false it fails instead of suspending. It reports whether the lock
// was taken.
func (m RecursiveMutex) Lock(wait bool) bool {
	to := kernel.NoWait
	if wait {
		to = kernel.Forever
	}
	return m.m.Lock(to) == nil
}

// Unlock releases one level of the mutex. Unlocking a mutex held by
// another thread is a programmer error.
func (m RecursiveMutex) Unlock() {
	if err := m.m.Unlock(); err != nil {
		panic("vmport: recursive mutex: " + err.Error())
	}
}
