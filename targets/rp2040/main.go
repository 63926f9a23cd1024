//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/adxl345"

	"github.com/semf-lib/semf-lib-sub000/core"
	"github.com/semf-lib/semf-lib-sub000/softi2c"
)

// samplePeriod is the interval between accelerometer reads
const samplePeriod = 100 * time.Millisecond

func main() {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitDebugUART()
	InitClock()

	core.SetGPIODriver(NewRPGPIODriver())

	if err := InitSoftI2C(); err != nil {
		core.DebugPrintln("[I2C] bus setup failed: " + err.Error())
		return
	}

	found, err := softi2c.Scan(softConn)
	if err != nil {
		core.DebugPrintln("[I2C] scan failed: " + err.Error())
	}
	for _, addr := range found {
		core.DebugPrintln("[I2C] device at " + core.Hex8(addr))
	}

	bus, err := core.MustI2C().GetBus(0)
	if err != nil {
		core.DebugPrintln("[I2C] " + err.Error())
		return
	}
	sensor := adxl345.New(bus)
	sensor.Configure()

	next := time.Now()
	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					core.DumpTimingRing()
				}
			}()

			pumpTimers()

			if time.Now().Before(next) {
				return
			}
			next = next.Add(samplePeriod)

			x, y, z := sensor.ReadRawAcceleration()
			core.DebugPrintln("x=" + core.Itoa(int(x)) + " y=" + core.Itoa(int(y)) + " z=" + core.Itoa(int(z)))
		}()

		// Yield to other goroutines
		time.Sleep(10 * time.Microsecond)
	}
}
