//go:build !tinygo

package softi2c

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/semf-lib/semf-lib-sub000/core"
)

var _ i2c.BusCloser = (*Conn)(nil)

// SetSpeed implements i2c.Bus. The request is forwarded to SetFrequency,
// which ignores it; change the timer interval to change the rate.
func (c *Conn) SetSpeed(f physic.Frequency) error {
	c.do(func() { c.eng.SetFrequency(uint32(f / physic.Hertz)) })
	return nil
}

// StepInterval is IntervalTicks for periph frequencies
func StepInterval(bitRate, timerFreq physic.Frequency) uint32 {
	if bitRate <= 0 {
		return 1
	}
	ticks := int64(timerFreq / (bitRate * StepsPerBit))
	if ticks < 1 {
		return 1
	}
	return uint32(ticks)
}

// PeriphPin adapts a periph gpio.PinIO to core.DigitalPin. Open-drain is
// emulated: high switches the pin to a pulled-up input, low drives it.
type PeriphPin struct {
	pin   gpio.PinIO
	dir   core.PinDirection
	latch bool
	err   error
}

var _ core.DigitalPin = (*PeriphPin)(nil)

// NewPeriphPin wraps p. The pin is not touched until the first call.
func NewPeriphPin(p gpio.PinIO) *PeriphPin {
	return &PeriphPin{pin: p, dir: core.PinOutputOpenDrain, latch: true}
}

// Set releases the line, or drives it high in push-pull mode
func (p *PeriphPin) Set() {
	p.latch = true
	p.apply()
}

// Reset drives the line low
func (p *PeriphPin) Reset() {
	p.latch = false
	p.apply()
}

// State reads the line
func (p *PeriphPin) State() bool {
	return p.pin.Read() == gpio.High
}

// SetDirection switches the pin mode, keeping the latch
func (p *PeriphPin) SetDirection(dir core.PinDirection) {
	p.dir = dir
	p.apply()
}

// Err returns the first error reported by the underlying pin
func (p *PeriphPin) Err() error {
	return p.err
}

func (p *PeriphPin) apply() {
	var err error
	switch {
	case p.dir == core.PinInput:
		err = p.pin.In(gpio.PullUp, gpio.NoEdge)
	case p.dir == core.PinOutputPushPull:
		err = p.pin.Out(gpio.Level(p.latch))
	case p.latch:
		err = p.pin.In(gpio.PullUp, gpio.NoEdge)
	default:
		err = p.pin.Out(gpio.Low)
	}
	if err != nil && p.err == nil {
		p.err = err
		core.DebugAsync("[I2C] pin " + p.pin.Name() + ": " + err.Error())
	}
}
