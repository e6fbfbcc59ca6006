//go:build tinygo && baremetal

package hal

import (
	"runtime/volatile"
	"unsafe"
)

// Architectural Cortex-M system registers. These live at fixed addresses on
// every ARMv6-M/ARMv7-M part, so they are addressed directly instead of
// through a chip-specific device package.
var (
	systCSR = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE000E010)))
	systRVR = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE000E014)))
	systCVR = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE000E018)))
	scbSHPR3 = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE000ED20)))
)

const (
	systCSREnable    = 1 << 0
	systCSRClkSource = 1 << 2
	systCSRCountFlag = 1 << 16

	// SysTick exception priority field, lowest priority.
	shpr3SysTickLowest = 0xFF << 24
)
