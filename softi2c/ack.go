package softi2c

import "github.com/semf-lib/semf-lib-sub000/core"

// stepAck runs the ninth clock of a byte. After a transmitted byte the
// slave's acknowledge is sampled; after a received byte the master drives
// ACK while more bytes are wanted and NACK on the last one.
func (e *Engine) stepAck() {
	switch e.state {
	case stateCheckAckRelease:
		e.sda.SetDirection(core.PinInput)
		e.advance(stateCheckAckClockHigh)
	case stateCheckAckClockHigh:
		e.scl.Set()
		e.advance(stateCheckAckSample)
	case stateCheckAckSample:
		e.acknowledgeBit = e.sda.State()
		e.scl.Reset()
		e.advance(stateCheckAckFinish)
	case stateCheckAckFinish:
		e.sda.SetDirection(core.PinOutputOpenDrain)
		e.byteDone()

	case stateSetAckDrive:
		e.sda.SetDirection(core.PinOutputOpenDrain)
		if e.dataIndex+1 < len(e.data) {
			e.sda.Reset()
			e.acknowledgeBit = false
		} else {
			e.sda.Set()
			e.acknowledgeBit = true
		}
		e.advance(stateSetAckClockHigh)
	case stateSetAckClockHigh:
		e.scl.Set()
		e.advance(stateSetAckClockLow)
	case stateSetAckClockLow:
		e.scl.Reset()
		e.byteDone()
	}
}

// byteDone accounts the byte that just finished its ninth clock and picks
// the next phase: another byte, a stop, or completion on a held bus.
// A NACK on any transmitted byte, address included, ends the transaction
// with a stop regardless of frame.
func (e *Engine) byteDone() {
	ackBit := uint32(0)
	if e.acknowledgeBit {
		ackBit = 1
	}
	core.RecordTiming(core.EvtI2CByte, e.ID, core.GetTime(), uint32(e.activeByte), ackBit)

	transmitted := e.writingAddress || e.op == opWrite
	addressPhase := e.writingAddress
	switch {
	case e.writingAddress:
		e.writingAddress = false
	case e.op == opRead:
		e.data[e.dataIndex] = e.activeByte
		e.dataIndex++
	default:
		e.dataIndex++
	}

	if transmitted && e.acknowledgeBit {
		e.acknowledgeError = true
		e.nackAddress = addressPhase
		core.RecordTiming(core.EvtI2CNack, e.ID, core.GetTime(), uint32(e.address), uint32(e.dataIndex))
		core.DebugAsync("[I2C] NACK addr=" + core.Hex8(e.address) + " written=" + core.Itoa(e.dataIndex))
		e.advance(stateStopSDA)
		return
	}

	if e.dataIndex < len(e.data) {
		if e.op == opWrite {
			e.loadByte(e.data[e.dataIndex])
			e.advance(stateWriteBit)
		} else {
			e.advance(stateReadPrepare)
		}
		return
	}
	e.complete()
}
