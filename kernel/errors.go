package kernel

import "errors"

var (
	// ErrTimedOut is returned by a timed wait that expired.
	ErrTimedOut = errors.New("timed out")
	// ErrBusy is returned by a no-wait acquire that would have blocked.
	ErrBusy = errors.New("busy")
	// ErrNotOwner is returned by Mutex.Unlock from a non-owning thread.
	ErrNotOwner = errors.New("not mutex owner")
	// ErrPriority is returned for priorities outside the configured range.
	ErrPriority = errors.New("priority out of range")
	// ErrDeadlock is returned by a join that could never complete.
	ErrDeadlock = errors.New("join would deadlock")
	// ErrNotRunning is returned for operations that need a started kernel.
	ErrNotRunning = errors.New("kernel not running")
)
