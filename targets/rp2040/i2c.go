//go:build rp2040 || rp2350

package main

import (
	"github.com/semf-lib/semf-lib-sub000/core"
	"github.com/semf-lib/semf-lib-sub000/softi2c"
)

// Bit-banged bus 0 pins. Any GPIO pair works; external pull-ups required.
const (
	softSDA core.GPIOPin = 4
	softSCL core.GPIOPin = 5

	softBusRate = 100000 // Hz
)

var softConn *softi2c.Conn

// InitSoftI2C builds the bit-banged bus on softSDA/softSCL, clocked by the
// timer list, and registers it as I2C bus 0. The GPIO driver must be
// registered first.
func InitSoftI2C() error {
	gpio := core.MustGPIO()
	sda := core.NewHALPin(gpio, softSDA)
	scl := core.NewHALPin(gpio, softSCL)

	timer := core.NewOneShot(softi2c.IntervalTicks(softBusRate, clockFreq))
	eng := softi2c.New(sda, scl, timer)

	softConn = softi2c.NewConn("soft0", eng, timer)
	softConn.Poll = pumpTimers

	drv := softi2c.NewDriver()
	drv.Attach(0, softConn)
	core.SetI2CDriver(drv)

	return drv.ConfigureBus(0, softBusRate)
}
