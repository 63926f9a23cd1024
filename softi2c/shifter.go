package softi2c

import "github.com/semf-lib/semf-lib-sub000/core"

// stepShift moves activeByte out MSB first, or assembles it from SDA.
// Written bits take three steps (data, clock high, clock low), read bits
// two (clock high, sample and clock low). The slave only sees SDA change
// while SCL is low.
func (e *Engine) stepShift() {
	switch e.state {
	case stateWriteBit:
		if e.activeByte&(1<<e.bitIndex) != 0 {
			e.sda.Set()
		} else {
			e.sda.Reset()
		}
		e.advance(stateWriteClockHigh)
	case stateWriteClockHigh:
		e.scl.Set()
		e.advance(stateWriteClockLow)
	case stateWriteClockLow:
		e.scl.Reset()
		if e.bitIndex == 0 {
			e.advance(stateCheckAckRelease)
			return
		}
		e.bitIndex--
		e.advance(stateWriteBit)

	case stateReadPrepare:
		e.sda.SetDirection(core.PinInput)
		e.loadByte(0)
		e.advance(stateReadClockHigh)
	case stateReadClockHigh:
		e.scl.Set()
		e.advance(stateReadClockLow)
	case stateReadClockLow:
		bit := e.sda.State()
		e.scl.Reset()
		if bit {
			e.activeByte |= 1 << e.bitIndex
		}
		if e.bitIndex == 0 {
			e.advance(stateSetAckDrive)
			return
		}
		e.bitIndex--
		e.advance(stateReadClockHigh)
	}
}
