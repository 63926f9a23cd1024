// Package softi2c implements an I2C master on two GPIO lines, clocked by a
// one-shot timer.
//
// The engine never blocks. Write and Read arm the timer and return; every
// timer fire runs one step of the transaction (exactly one pin access) and
// re-arms the timer for the next. Completion is reported through Events.
//
// Both lines are driven open-drain and rely on external pull-ups. SCL is
// never sampled, so clock stretching is not supported. SetFrequency is a
// no-op: the bus rate follows the timer interval chosen by the caller.
package softi2c

import (
	"github.com/semf-lib/semf-lib-sub000/core"
)

// Events receives completion signals. Nil members are skipped. Handlers run
// on the timer context, after the engine returned to idle, so they may start
// the next transaction directly.
type Events struct {
	DataAvailable func()          // Read finished
	DataWritten   func()          // Write finished
	Error         func(err error) // NACK or rejected Stop request
	WriteStopped  func()          // StopWrite aborted a write
	ReadStopped   func()          // StopRead aborted a read
}

// Engine is a timer-driven bit-banged I2C master
type Engine struct {
	// ID tags timing ring events when several buses are in use
	ID     uint8
	Events Events

	sda   core.DigitalPin
	scl   core.DigitalPin
	timer core.OneShotTimer

	address uint8
	frame   Frame

	state state
	op    operation

	data       []byte
	dataIndex  int
	activeByte byte
	bitIndex   uint8

	// writingAddress is set while the address byte is on the bus
	writingAddress bool

	// acknowledgeBit is the SDA level sampled on the ninth clock of a
	// transmitted byte: low is ACK, high is NACK
	acknowledgeBit   bool
	acknowledgeError bool
	nackAddress      bool

	// Frame and direction of the previous call, used to decide between a
	// restart and a plain continuation on a held bus
	lastFrame             Frame
	lastOperationWasWrite bool
}

// New creates an engine on the given pins and timer and binds the timer to
// the engine's step function. The pins and timer are borrowed, not owned.
// Call Init before the first transaction.
func New(sda, scl core.DigitalPin, timer core.OneShotTimer) *Engine {
	e := &Engine{
		sda:       sda,
		scl:       scl,
		timer:     timer,
		frame:     FrameFirstAndLast,
		lastFrame: FrameFirstAndLast,
	}
	timer.SetTimeout(e.step)
	return e
}

// Init stops the timer, releases both lines and forgets any transaction.
// The latches go high before the drivers are enabled so neither line
// glitches low.
func (e *Engine) Init() {
	e.timer.Stop()
	e.scl.Set()
	e.sda.Set()
	e.scl.SetDirection(core.PinOutputOpenDrain)
	e.sda.SetDirection(core.PinOutputOpenDrain)
	e.clearContext()
	e.lastFrame = FrameFirstAndLast
	e.lastOperationWasWrite = false
}

// Deinit stops the timer and turns both pins into inputs
func (e *Engine) Deinit() {
	e.timer.Stop()
	e.sda.SetDirection(core.PinInput)
	e.scl.SetDirection(core.PinInput)
}

// SetAddress selects the 7-bit device address for following transactions
func (e *Engine) SetAddress(addr uint8) error {
	if addr > 0x7f {
		return ErrInvalidAddress
	}
	e.address = addr
	return nil
}

// Address returns the configured 7-bit device address
func (e *Engine) Address() uint8 {
	return e.address
}

// SetFrame selects the frame for following Write/Read calls
func (e *Engine) SetFrame(f Frame) {
	e.frame = f
}

// Frame returns the configured frame
func (e *Engine) Frame() Frame {
	return e.frame
}

// Busy reports whether a transaction is in flight
func (e *Engine) Busy() bool {
	return e.op != opNone
}

// SetFrequency is accepted for interface compatibility and does nothing.
// The bus rate is derived from the timer interval.
func (e *Engine) SetFrequency(hz uint32) {
	core.DebugPrintln("[I2C] SetFrequency(" + core.Itoa(int(hz)) + ") ignored, rate follows timer interval")
}

// Write sends data to the configured address. With FrameFirst or
// FrameFirstAndLast a start condition and the address byte precede the
// payload. The buffer must stay untouched until DataWritten or Error.
func (e *Engine) Write(data []byte) error {
	if e.op != opNone {
		return ErrBusy
	}
	e.clearContext()
	e.op = opWrite
	e.data = data

	frame := e.frame
	switch {
	case frame.opens():
		e.loadAddress(false)
		e.recordStart(core.EvtI2CStart)
		e.advance(stateStartSDA)
	case len(data) == 0:
		e.lastFrame = frame
		e.lastOperationWasWrite = true
		e.complete()
		return nil
	default:
		e.loadByte(data[0])
		e.advance(stateWriteBit)
	}
	e.lastFrame = frame
	e.lastOperationWasWrite = true
	return nil
}

// Read fills buf from the configured address. With FrameFirst or
// FrameFirstAndLast a start condition and the address byte come first. On a
// bus held by a previous write (FrameFirst or FrameNext) a restart switches
// the direction. The master acknowledges every byte but the last of buf.
// Reads that send the address need a non-empty buf.
func (e *Engine) Read(buf []byte) error {
	if e.op != opNone {
		return ErrBusy
	}
	frame := e.frame
	held := e.lastFrame == FrameFirst || e.lastFrame == FrameNext
	restart := !frame.opens() && e.lastOperationWasWrite && held
	if len(buf) == 0 && (frame.opens() || restart) {
		core.RecordTiming(core.EvtI2CRejected, e.ID, core.GetTime(), uint32(opRead), 0)
		return ErrInvalidLength
	}

	e.clearContext()
	e.op = opRead
	e.data = buf

	switch {
	case frame.opens():
		e.loadAddress(true)
		e.recordStart(core.EvtI2CStart)
		e.advance(stateStartSDA)
	case restart:
		e.loadAddress(true)
		e.recordStart(core.EvtI2CRestart)
		e.advance(stateRestartSDA)
	case len(buf) == 0:
		e.lastFrame = frame
		e.lastOperationWasWrite = false
		e.complete()
		return nil
	default:
		e.advance(stateReadPrepare)
	}
	e.lastFrame = frame
	e.lastOperationWasWrite = false
	return nil
}

// StopWrite aborts a write in flight. Both pins are re-initialized without
// finishing the current byte, so no stop condition is generated and the
// device may be left mid-transfer. Without a write in flight the request is
// rejected through the return value and Events.Error.
func (e *Engine) StopWrite() error {
	if e.op != opWrite {
		return e.reject(ErrNotWriting)
	}
	e.abort()
	if e.Events.WriteStopped != nil {
		e.Events.WriteStopped()
	}
	return nil
}

// StopRead aborts a read in flight, like StopWrite
func (e *Engine) StopRead() error {
	if e.op != opRead {
		return e.reject(ErrNotReading)
	}
	e.abort()
	if e.Events.ReadStopped != nil {
		e.Events.ReadStopped()
	}
	return nil
}

func (e *Engine) abort() {
	core.RecordTiming(core.EvtI2CAbort, e.ID, core.GetTime(), uint32(e.state), uint32(e.dataIndex))
	core.DebugAsync("[I2C] abort in " + e.state.String() + " addr=" + core.Hex8(e.address))
	e.Deinit()
	e.Init()
}

func (e *Engine) reject(err error) error {
	core.RecordTiming(core.EvtI2CRejected, e.ID, core.GetTime(), uint32(e.op), 0)
	if e.Events.Error != nil {
		e.Events.Error(err)
	}
	return err
}

// step runs on every timer fire
func (e *Engine) step() {
	switch {
	case e.state == stateIdle:
		// Stale fire after an abort
	case e.state.isCondition():
		e.stepCondition()
	case e.state.isShift():
		e.stepShift()
	case e.state.isAck():
		e.stepAck()
	}
}

// advance names the next step and arms the timer for it
func (e *Engine) advance(next state) {
	e.state = next
	e.timer.Start()
}

func (e *Engine) clearContext() {
	e.state = stateIdle
	e.op = opNone
	e.data = nil
	e.dataIndex = 0
	e.activeByte = 0
	e.bitIndex = 7
	e.writingAddress = false
	e.acknowledgeBit = false
	e.acknowledgeError = false
	e.nackAddress = false
}

func (e *Engine) loadAddress(read bool) {
	b := e.address << 1
	if read {
		b |= 1
	}
	e.writingAddress = true
	e.loadByte(b)
}

func (e *Engine) loadByte(b byte) {
	e.activeByte = b
	e.bitIndex = 7
}

func (e *Engine) recordStart(evt uint8) {
	core.RecordTiming(evt, e.ID, core.GetTime(), uint32(e.address), uint32(len(e.data)))
}

// complete ends the payload phase: a stop on closing frames, otherwise the
// bus stays held with SCL low and the caller is signalled right away.
func (e *Engine) complete() {
	if e.lastFrame.closes() {
		e.advance(stateStopSDA)
		return
	}
	e.dispatch()
}

// dispatch returns the engine to idle and fires the completion event
func (e *Engine) dispatch() {
	op := e.op
	var err error
	if e.acknowledgeError {
		err = &NackError{Addr: e.address, AddressPhase: e.nackAddress, Written: e.dataIndex}
	}
	core.RecordTiming(core.EvtI2CDone, e.ID, core.GetTime(), uint32(e.address), uint32(e.dataIndex))
	e.clearContext()

	switch {
	case err != nil:
		if e.Events.Error != nil {
			e.Events.Error(err)
		}
	case op == opWrite:
		if e.Events.DataWritten != nil {
			e.Events.DataWritten()
		}
	case op == opRead:
		if e.Events.DataAvailable != nil {
			e.Events.DataAvailable()
		}
	}
}

// StepsPerBit is the number of timer fires per written data bit
const StepsPerBit = 3

// IntervalTicks returns the timer interval that clocks written bits at
// roughly bitRateHz on a timer counting at timerHz. Never less than one.
func IntervalTicks(bitRateHz, timerHz uint32) uint32 {
	if bitRateHz == 0 {
		return 1
	}
	ticks := uint64(timerHz) / (uint64(bitRateHz) * StepsPerBit)
	if ticks == 0 {
		return 1
	}
	return uint32(ticks)
}
