package config

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestLoadConfigDefaults(t *testing.T) {
	c := qt.New(t)

	cfg, err := LoadConfig([]byte(`{
		"sda_pin": 2,
		"scl_pin": 3,
		"devices": [
			{"address": 80},
			{"address": 83, "kind": "adxl345"}
		]
	}`))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Name, qt.Equals, "soft0")
	c.Assert(cfg.TimerFreq, qt.Equals, uint32(12000000))
	c.Assert(cfg.BusRate, qt.Equals, "100kHz")
	c.Assert(cfg.Timeout(), qt.Equals, time.Second)
	c.Assert(cfg.Devices[0].Kind, qt.Equals, KindMemory)
	c.Assert(cfg.Devices[0].Size, qt.Equals, 256)
	c.Assert(cfg.Devices[1].Size, qt.Equals, 64)
	c.Assert(cfg.Validate(), qt.IsNil)

	ticks, err := cfg.Interval()
	c.Assert(err, qt.IsNil)
	c.Assert(ticks, qt.Equals, uint32(40))
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	c := qt.New(t)

	_, err := LoadConfig([]byte(`{"sda_pin": "four"}`))
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestInterval(t *testing.T) {
	c := qt.New(t)

	cfg := DefaultConfig()
	cfg.BusRate = "400kHz"
	ticks, err := cfg.Interval()
	c.Assert(err, qt.IsNil)
	c.Assert(ticks, qt.Equals, uint32(10))

	cfg.TimerInterval = 7
	ticks, err = cfg.Interval()
	c.Assert(err, qt.IsNil)
	c.Assert(ticks, qt.Equals, uint32(7))

	cfg.TimerInterval = 0
	cfg.BusRate = "fast"
	_, err = cfg.Interval()
	c.Assert(err, qt.ErrorMatches, `bus_rate "fast".*`)
}

func TestTickDuration(t *testing.T) {
	c := qt.New(t)

	cfg := DefaultConfig()
	cfg.TimerFreq = 1000000
	c.Assert(cfg.TickDuration(), qt.Equals, time.Microsecond)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*BusConfig)
		err    string
	}{{
		name:   "same pins",
		modify: func(b *BusConfig) { b.SCLPin = b.SDAPin },
		err:    "sda_pin and scl_pin are both 4",
	}, {
		name:   "reserved address",
		modify: func(b *BusConfig) { b.Devices[0].Address = 0x03 },
		err:    "device address 0x03 is reserved or out of range",
	}, {
		name:   "duplicate address",
		modify: func(b *BusConfig) { b.Devices[1].Address = 0x50 },
		err:    "device address 0x50 used twice",
	}, {
		name:   "unknown kind",
		modify: func(b *BusConfig) { b.Devices[0].Kind = "flash" },
		err:    `device 0x50: unknown kind "flash"`,
	}, {
		name:   "preset overflow",
		modify: func(b *BusConfig) { b.Devices[1].PresetOffset = 63; b.Devices[1].Preset = []int{1, 2} },
		err:    "device 0x53: preset does not fit in 64 bytes",
	}, {
		name:   "preset not a byte",
		modify: func(b *BusConfig) { b.Devices[0].Preset = []int{256} },
		err:    "device 0x50: preset value 256 is not a byte",
	}, {
		name:   "bad rate",
		modify: func(b *BusConfig) { b.BusRate = "" },
		err:    `bus_rate "".*`,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			cfg := DefaultConfig()
			c.Assert(cfg.Validate(), qt.IsNil)
			test.modify(cfg)
			c.Assert(cfg.Validate(), qt.ErrorMatches, test.err)
		})
	}
}

func TestPresetBytes(t *testing.T) {
	c := qt.New(t)

	dev := DeviceConfig{Preset: []int{0x01, 0xff}}
	c.Assert(dev.PresetBytes(), qt.DeepEquals, []byte{0x01, 0xff})
}
