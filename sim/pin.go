package sim

import "github.com/semf-lib/semf-lib-sub000/core"

// Pin is the master's end of a simulated line. It implements
// core.DigitalPin.
type Pin struct {
	bus   *Bus
	line  Line
	dir   core.PinDirection
	latch bool
}

// Set releases (open-drain) or drives high (push-pull) the line
func (p *Pin) Set() {
	p.latch = true
	p.bus.settle()
	p.bus.record(Transition{Line: p.line, Op: OpSet, Dir: p.dir})
}

// Reset drives the line low unless the pin is an input
func (p *Pin) Reset() {
	p.latch = false
	p.bus.settle()
	p.bus.record(Transition{Line: p.line, Op: OpReset, Dir: p.dir})
}

// State samples the line level
func (p *Pin) State() bool {
	if p.bus.sampling {
		p.bus.record(Transition{Line: p.line, Op: OpSample, Dir: p.dir})
	}
	return p.bus.levels[p.line]
}

// SetDirection switches the pin mode, keeping the latch
func (p *Pin) SetDirection(dir core.PinDirection) {
	p.dir = dir
	p.bus.settle()
	p.bus.record(Transition{Line: p.line, Op: OpDirection, Dir: dir})
}

// Direction returns the current pin mode
func (p *Pin) Direction() core.PinDirection {
	return p.dir
}

// Latch returns the level last requested through Set/Reset
func (p *Pin) Latch() bool {
	return p.latch
}
