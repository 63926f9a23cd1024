package core

// Timer frequencies for common MCUs
const (
	TimerFreq = 12000000 // 12MHz default timer frequency
)

// OneShotTimer is the timer capability consumed by bit-banged buses.
//
// Start arms the timer to fire once after the configured interval. The
// timeout callback runs when it fires; it may call Start again to arm the
// next period. Stop disarms a pending fire.
type OneShotTimer interface {
	Start()
	Stop()
	SetInterval(ticks uint32)
	SetTimeout(fn func())
}

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time (for testing/hardware integration)
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// AdvanceTime moves the system time forward and runs due timers.
// Host-side simulations use it in place of a hardware tick source.
func AdvanceTime(ticks uint32) {
	SetTime(GetTime() + ticks)
	ProcessTimers()
}

// ProcessTimers processes scheduled timers
func ProcessTimers() {
	currentTime = GetTime()
	TimerDispatch()
}
