//go:build rp2040 || rp2350

package main

import (
	"machine"

	"github.com/semf-lib/semf-lib-sub000/core"
)

type pinMode uint8

const (
	modeNone pinMode = iota
	modeOutput
	modeInputPullUp
	modeInputPullDown
)

// RPGPIODriver implements core.GPIODriver for RP2040/RP2350.
// Pins switch modes on every reconfiguration; open-drain lines flip
// between output-low and pulled-up input on each level change.
type RPGPIODriver struct {
	modes map[core.GPIOPin]pinMode
}

// NewRPGPIODriver creates a new GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		modes: make(map[core.GPIOPin]pinMode),
	}
}

// ConfigureOutput configures a pin as a digital output
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	d.configure(pin, modeOutput, machine.PinOutput)
	return nil
}

// ConfigureInputPullUp configures a pin as an input with pull-up
func (d *RPGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	d.configure(pin, modeInputPullUp, machine.PinInputPullup)
	return nil
}

// ConfigureInputPullDown configures a pin as an input with pull-down
func (d *RPGPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	d.configure(pin, modeInputPullDown, machine.PinInputPulldown)
	return nil
}

// SetPin sets the pin to high (true) or low (false)
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	if d.modes[pin] != modeOutput {
		d.configure(pin, modeOutput, machine.PinOutput)
	}
	machine.Pin(pin).Set(value)
	return nil
}

// GetPin reads the current pin state
func (d *RPGPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	if d.modes[pin] == modeNone {
		return false, nil
	}
	return machine.Pin(pin).Get(), nil
}

// ReadPin is GetPin without the error
func (d *RPGPIODriver) ReadPin(pin core.GPIOPin) bool {
	value, _ := d.GetPin(pin)
	return value
}

func (d *RPGPIODriver) configure(pin core.GPIOPin, mode pinMode, hw machine.PinMode) {
	if d.modes[pin] == mode {
		return
	}
	// GPIO numbers map directly to machine.Pin on RP2040/RP2350
	machine.Pin(pin).Configure(machine.PinConfig{Mode: hw})
	d.modes[pin] = mode
}
