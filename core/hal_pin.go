package core

// HALPin adapts one pin of a GPIODriver to the DigitalPin capability.
//
// Open-drain is emulated the way most MCU GPIO blocks without a native
// open-drain mode are driven on an I2C bus: a high level releases the line
// by switching to input with pull-up, a low level configures the pin as an
// output and drives it low.
type HALPin struct {
	driver GPIODriver
	pin    GPIOPin
	dir    PinDirection
	latch  bool  // Last level requested through Set/Reset
	err    error // First driver error, sticky until ClearErr
}

// NewHALPin binds a pin number of the given driver. The pin starts as a
// released open-drain output.
func NewHALPin(driver GPIODriver, pin GPIOPin) *HALPin {
	p := &HALPin{driver: driver, pin: pin, dir: PinOutputOpenDrain, latch: true}
	p.apply()
	return p
}

// Pin returns the hardware pin number
func (p *HALPin) Pin() GPIOPin {
	return p.pin
}

// Set drives the line high, or releases it in open-drain mode
func (p *HALPin) Set() {
	p.latch = true
	p.apply()
}

// Reset drives the line low
func (p *HALPin) Reset() {
	p.latch = false
	p.apply()
}

// State samples the line
func (p *HALPin) State() bool {
	v, err := p.driver.GetPin(p.pin)
	p.check(err)
	return v
}

// SetDirection switches the pin mode, keeping the latched level
func (p *HALPin) SetDirection(dir PinDirection) {
	p.dir = dir
	p.apply()
}

// Direction returns the current pin mode
func (p *HALPin) Direction() PinDirection {
	return p.dir
}

// Err returns the first driver error seen since the last ClearErr
func (p *HALPin) Err() error {
	return p.err
}

// ClearErr forgets a recorded driver error
func (p *HALPin) ClearErr() {
	p.err = nil
}

func (p *HALPin) apply() {
	switch p.dir {
	case PinInput:
		p.check(p.driver.ConfigureInputPullUp(p.pin))
	case PinOutputPushPull:
		p.check(p.driver.ConfigureOutput(p.pin))
		p.check(p.driver.SetPin(p.pin, p.latch))
	default:
		if p.latch {
			p.check(p.driver.ConfigureInputPullUp(p.pin))
			return
		}
		p.check(p.driver.ConfigureOutput(p.pin))
		p.check(p.driver.SetPin(p.pin, false))
	}
}

func (p *HALPin) check(err error) {
	if err == nil {
		return
	}
	if p.err == nil {
		p.err = err
	}
	DebugAsync("[GPIO] pin " + utoa(uint32(p.pin)) + ": " + err.Error())
}
