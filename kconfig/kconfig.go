// Package kconfig models the kernel configuration surface the rest of the
// system is compiled against. Options are presence-significant: an option
// defined with value 0 and an undefined option are different states, and
// several consumers key off presence alone.
package kconfig

// Option names a kernel configuration symbol, without the CONFIG_ prefix.
type Option string

// Symbol returns the full configuration symbol name.
func (o Option) Symbol() string { return "CONFIG_" + string(o) }

const (
	Multithreading     Option = "MULTITHREADING"
	ThreadCustomData   Option = "THREAD_CUSTOM_DATA"
	ThreadName         Option = "THREAD_NAME"
	ThreadMaxNameLen   Option = "THREAD_MAX_NAME_LEN"
	DynamicThread      Option = "DYNAMIC_THREAD"
	MainStackSize      Option = "MAIN_STACK_SIZE"
	MainThreadPriority Option = "MAIN_THREAD_PRIORITY"
	IdleStackSize      Option = "IDLE_STACK_SIZE"
	ISRStackSize       Option = "ISR_STACK_SIZE"

	NumPreemptPriorities Option = "NUM_PREEMPT_PRIORITIES"
	NumCoopPriorities    Option = "NUM_COOP_PRIORITIES"
	SchedScalable        Option = "SCHED_SCALABLE"
	WaitqScalable        Option = "WAITQ_SCALABLE"
	Timeslicing          Option = "TIMESLICING"
	TimesliceSize        Option = "TIMESLICE_SIZE"
	TimeslicePriority    Option = "TIMESLICE_PRIORITY"

	SysClockTicksPerSec    Option = "SYS_CLOCK_TICKS_PER_SEC"
	SysClockHWCyclesPerSec Option = "SYS_CLOCK_HW_CYCLES_PER_SEC"
	SysClockMaxTimeoutDays Option = "SYS_CLOCK_MAX_TIMEOUT_DAYS"
	TicklessKernel         Option = "TICKLESS_KERNEL"
	Timeout64Bit           Option = "TIMEOUT_64BIT"

	Poll   Option = "POLL"
	Events Option = "EVENTS"
	Errno  Option = "ERRNO"
	Assert Option = "ASSERT"

	// Options that must stay undefined for this port. Their mere presence
	// changes thread memory layout or scheduling assumptions.
	SMP                  Option = "SMP"
	Userspace            Option = "USERSPACE"
	StackCanaries        Option = "STACK_CANARIES"
	StackSentinel        Option = "STACK_SENTINEL"
	ThreadStackMemMapped Option = "THREAD_STACK_MEM_MAPPED"
	Device               Option = "DEVICE"
)
