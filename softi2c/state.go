package softi2c

// state is the step the engine runs on the next timer fire. Each state
// performs exactly one pin access and names its successor.
type state uint8

const (
	stateIdle state = iota

	// Condition generator
	stateStartSDA    // SDA low while SCL high
	stateStartSCL    // SCL low, first bit follows
	stateRestartSDA  // release SDA while SCL low
	stateRestartSCL  // SCL high, start follows
	stateStopSDA     // SDA low while SCL low
	stateStopSCL     // SCL high
	stateStopRelease // SDA high, completion dispatch

	// Byte shifter
	stateWriteBit       // drive SDA to activeByte[bitIndex]
	stateWriteClockHigh // SCL high, slave samples
	stateWriteClockLow  // SCL low, next bit or check-ack
	stateReadPrepare    // release SDA to the slave
	stateReadClockHigh  // SCL high
	stateReadClockLow   // sample SDA, SCL low, next bit or set-ack

	// Acknowledge handler
	stateCheckAckRelease   // SDA to input
	stateCheckAckClockHigh // SCL high
	stateCheckAckSample    // sample SDA, SCL low
	stateCheckAckFinish    // SDA back to open-drain, dispatch
	stateSetAckDrive       // SDA low for ACK, released for NACK
	stateSetAckClockHigh   // SCL high
	stateSetAckClockLow    // SCL low, dispatch
)

var stateNames = [...]string{
	stateIdle:              "idle",
	stateStartSDA:          "start-sda",
	stateStartSCL:          "start-scl",
	stateRestartSDA:        "restart-sda",
	stateRestartSCL:        "restart-scl",
	stateStopSDA:           "stop-sda",
	stateStopSCL:           "stop-scl",
	stateStopRelease:       "stop-release",
	stateWriteBit:          "write-bit",
	stateWriteClockHigh:    "write-scl-high",
	stateWriteClockLow:     "write-scl-low",
	stateReadPrepare:       "read-prepare",
	stateReadClockHigh:     "read-scl-high",
	stateReadClockLow:      "read-scl-low",
	stateCheckAckRelease:   "check-ack-release",
	stateCheckAckClockHigh: "check-ack-scl-high",
	stateCheckAckSample:    "check-ack-sample",
	stateCheckAckFinish:    "check-ack-finish",
	stateSetAckDrive:       "set-ack-drive",
	stateSetAckClockHigh:   "set-ack-scl-high",
	stateSetAckClockLow:    "set-ack-scl-low",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "state?"
}

func (s state) isCondition() bool {
	return s >= stateStartSDA && s <= stateStopRelease
}

func (s state) isShift() bool {
	return s >= stateWriteBit && s <= stateReadClockLow
}

func (s state) isAck() bool {
	return s >= stateCheckAckRelease && s <= stateSetAckClockLow
}

// operation is the kind of transaction in flight
type operation uint8

const (
	opNone operation = iota
	opWrite
	opRead
)

// Frame tells the engine how a call fits into a logical transfer that may
// span several Write/Read calls.
type Frame uint8

const (
	// FrameFirst opens the transfer: start condition, bus held afterwards
	FrameFirst Frame = iota
	// FrameNext continues a held bus: no start, bus held afterwards
	FrameNext
	// FrameLast ends a held bus: no start (restart on direction change), stop afterwards
	FrameLast
	// FrameFirstAndLast is a complete transfer: start and stop
	FrameFirstAndLast
)

func (f Frame) String() string {
	switch f {
	case FrameFirst:
		return "first"
	case FrameNext:
		return "next"
	case FrameLast:
		return "last"
	case FrameFirstAndLast:
		return "first-and-last"
	}
	return "frame?"
}

// opens reports whether the frame begins with a start condition
func (f Frame) opens() bool {
	return f == FrameFirst || f == FrameFirstAndLast
}

// closes reports whether the frame ends with a stop condition
func (f Frame) closes() bool {
	return f == FrameLast || f == FrameFirstAndLast
}
