package core

import "sync/atomic"

// systemTicks is written by the tick source (hardware timer read in the
// main loop, or AdvanceTime in simulations) and read from timer callbacks
// that may run on another goroutine on hosts.
var systemTicksValue uint32

func getSystemTicks() uint32 {
	return atomic.LoadUint32(&systemTicksValue)
}

func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicksValue, ticks)
}
