package softi2c

import "github.com/semf-lib/semf-lib-sub000/core"

// stepCondition runs the start, restart and stop sequences.
//
//	start:   SDA low (SCL high), SCL low
//	restart: SDA high (SCL low), SCL high, then start
//	stop:    SDA low (SCL low), SCL high, SDA high
func (e *Engine) stepCondition() {
	switch e.state {
	case stateStartSDA:
		e.sda.Reset()
		e.advance(stateStartSCL)
	case stateStartSCL:
		e.scl.Reset()
		e.advance(stateWriteBit)

	case stateRestartSDA:
		e.sda.Set()
		e.advance(stateRestartSCL)
	case stateRestartSCL:
		e.scl.Set()
		e.advance(stateStartSDA)

	case stateStopSDA:
		e.sda.Reset()
		e.advance(stateStopSCL)
	case stateStopSCL:
		e.scl.Set()
		e.advance(stateStopRelease)
	case stateStopRelease:
		e.sda.Set()
		ackErr := uint32(0)
		if e.acknowledgeError {
			ackErr = 1
		}
		core.RecordTiming(core.EvtI2CStop, e.ID, core.GetTime(), ackErr, 0)
		// A NACK stop may end a FrameFirst call; the bus is free either way
		e.lastFrame = FrameFirstAndLast
		e.dispatch()
	}
}
