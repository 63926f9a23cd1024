//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts masks interrupts so the timer list can be edited from
// both the main loop and a timer interrupt handler
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
