// Package sim models a two-wire open-drain bus so bit-banged masters can be
// exercised without hardware.
//
// Each line reads high through its pull-up unless the master pin or an
// attached device pulls it low. Every master pin mutation is recorded as a
// Transition, and every line edge is delivered to the attached devices
// (targets, the analyzer) until the bus settles.
package sim

import "github.com/semf-lib/semf-lib-sub000/core"

// Line selects one of the two bus wires
type Line uint8

const (
	SDA Line = iota
	SCL
)

func (l Line) String() string {
	if l == SCL {
		return "SCL"
	}
	return "SDA"
}

// Device is a bus participant other than the master
type Device interface {
	// Edge is called after line changed level; sda and scl are the levels
	// after the change
	Edge(line Line, sda, scl bool)
	// Pulls reports whether the device currently holds line low
	Pulls(line Line) bool
}

// Op is the kind of master pin mutation
type Op uint8

const (
	OpSet Op = iota
	OpReset
	OpDirection
	OpSample
)

func (o Op) String() string {
	switch o {
	case OpSet:
		return "set"
	case OpReset:
		return "reset"
	case OpDirection:
		return "dir"
	case OpSample:
		return "sample"
	}
	return "op?"
}

// Transition records one master pin access and the line level after it
type Transition struct {
	Line  Line
	Op    Op
	Dir   core.PinDirection
	Level bool
}

// Bus is a simulated open-drain bus
type Bus struct {
	pins     [2]*Pin
	levels   [2]bool
	devices  []Device
	analyzer *Analyzer
	trace    []Transition
	sampling bool
}

// maxSettle bounds device reaction chains on a single mutation
const maxSettle = 16

// NewBus creates an idle bus (both lines high) with an analyzer attached
func NewBus() *Bus {
	b := &Bus{levels: [2]bool{true, true}}
	b.pins[SDA] = &Pin{bus: b, line: SDA, dir: core.PinOutputOpenDrain, latch: true}
	b.pins[SCL] = &Pin{bus: b, line: SCL, dir: core.PinOutputOpenDrain, latch: true}
	b.analyzer = NewAnalyzer()
	b.devices = append(b.devices, b.analyzer)
	return b
}

// Attach adds a device to the bus
func (b *Bus) Attach(d Device) {
	b.devices = append(b.devices, d)
	b.settle()
}

// SDA returns the master's data pin
func (b *Bus) SDA() *Pin {
	return b.pins[SDA]
}

// SCL returns the master's clock pin
func (b *Bus) SCL() *Pin {
	return b.pins[SCL]
}

// Analyzer returns the protocol decoder watching the bus
func (b *Bus) Analyzer() *Analyzer {
	return b.analyzer
}

// Level returns the current level of a line
func (b *Bus) Level(l Line) bool {
	return b.levels[l]
}

// Idle reports whether both lines are released high
func (b *Bus) Idle() bool {
	return b.levels[SDA] && b.levels[SCL]
}

// Trace returns every master pin access so far
func (b *Bus) Trace() []Transition {
	return b.trace
}

// Mutations returns the number of recorded master pin accesses that
// change level or direction (samples excluded)
func (b *Bus) Mutations() int {
	n := 0
	for _, tr := range b.trace {
		if tr.Op != OpSample {
			n++
		}
	}
	return n
}

// RecordSamples makes State calls on master pins show up in the trace
func (b *Bus) RecordSamples(on bool) {
	b.sampling = on
}

// ClearTrace forgets recorded transitions and decoded symbols
func (b *Bus) ClearTrace() {
	b.trace = b.trace[:0]
	b.analyzer.Reset()
}

func (b *Bus) record(tr Transition) {
	tr.Level = b.levels[tr.Line]
	b.trace = append(b.trace, tr)
}

func (b *Bus) resolve(l Line) bool {
	p := b.pins[l]
	if p.dir != core.PinInput && !p.latch {
		return false
	}
	for _, d := range b.devices {
		if d.Pulls(l) {
			return false
		}
	}
	return true
}

// settle propagates level changes to the devices until nothing moves.
// SCL is resolved before SDA so a device reacting to a clock edge sees the
// clock change first.
func (b *Bus) settle() {
	for i := 0; i < maxSettle; i++ {
		changed := false
		for _, l := range [2]Line{SCL, SDA} {
			level := b.resolve(l)
			if level == b.levels[l] {
				continue
			}
			b.levels[l] = level
			changed = true
			for _, d := range b.devices {
				d.Edge(l, b.levels[SDA], b.levels[SCL])
			}
		}
		if !changed {
			return
		}
	}
	core.DebugPrintln("[SIM] bus did not settle")
}
