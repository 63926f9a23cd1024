//go:build rp2040 || rp2350

package main

import (
	"runtime/volatile"
	"unsafe"

	"github.com/semf-lib/semf-lib-sub000/core"
)

// RP2040/RP2350 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWL = timerBase + 0x0C // Raw timer low word
)

// clockFreq is the tick rate of the hardware timer
const clockFreq = 1000000

var timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))

// InitClock syncs the core time base with the 1MHz hardware timer
func InitClock() {
	UpdateSystemTime()
}

// GetHardwareTime returns the low 32 bits of the microsecond counter
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// UpdateSystemTime updates the core timer with hardware time
func UpdateSystemTime() {
	core.SetTime(GetHardwareTime())
}

// pumpTimers runs every due bus step. Called from the main loop and from
// the bus wait loop.
func pumpTimers() {
	UpdateSystemTime()
	core.ProcessTimers()
}
