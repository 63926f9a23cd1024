//go:build !tinygo

package core

// State stands in for the saved interrupt mask on hosts
type State uintptr

// disableInterrupts is a no-op on hosts; the timer list is only touched
// from one goroutine at a time there (the simulation loop or a HostTimer
// owner running under Do)
func disableInterrupts() State {
	return 0
}

func restoreInterrupts(state State) {}
