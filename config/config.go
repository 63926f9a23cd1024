// Package config loads the JSON description of a bit-banged bus: its pins,
// timer and the simulated devices hanging off it.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/semf-lib/semf-lib-sub000/core"
	"github.com/semf-lib/semf-lib-sub000/softi2c"
)

// Device kinds understood by the simulator
const (
	KindMemory  = "memory"
	KindADXL345 = "adxl345"
)

// DeviceConfig describes one simulated target
type DeviceConfig struct {
	Address      uint8  `json:"address"`
	Kind         string `json:"kind"`
	Size         int    `json:"size"`
	PresetOffset int    `json:"preset_offset"`
	Preset       []int  `json:"preset"`
	NackAfter    int    `json:"nack_after"`
}

// PresetBytes returns Preset as bytes
func (d DeviceConfig) PresetBytes() []byte {
	out := make([]byte, len(d.Preset))
	for i, v := range d.Preset {
		out[i] = byte(v)
	}
	return out
}

// BusConfig describes a bus and its timing
type BusConfig struct {
	Name   string `json:"name"`
	SDAPin uint32 `json:"sda_pin"`
	SCLPin uint32 `json:"scl_pin"`

	// TimerFreq is the tick rate of the step timer in Hz
	TimerFreq uint32 `json:"timer_freq"`

	// BusRate is the wanted bit rate, e.g. "100kHz". Only used when
	// TimerInterval is zero.
	BusRate string `json:"bus_rate"`

	// TimerInterval is the delay between two steps in timer ticks
	TimerInterval uint32 `json:"timer_interval"`

	TimeoutMS uint32         `json:"timeout_ms"`
	Devices   []DeviceConfig `json:"devices"`
}

// LoadConfig parses a JSON configuration and applies defaults
func LoadConfig(jsonData []byte) (*BusConfig, error) {
	var config BusConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	applyDefaults(&config)

	return &config, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *BusConfig) {
	if config.Name == "" {
		config.Name = "soft0"
	}
	if config.TimerFreq == 0 {
		config.TimerFreq = core.TimerFreq
	}
	if config.BusRate == "" {
		config.BusRate = "100kHz"
	}
	if config.TimeoutMS == 0 {
		config.TimeoutMS = 1000
	}

	for i := range config.Devices {
		dev := &config.Devices[i]
		if dev.Kind == "" {
			dev.Kind = KindMemory
		}
		if dev.Size == 0 {
			if dev.Kind == KindADXL345 {
				dev.Size = 64 // Register file 0x00..0x39
			} else {
				dev.Size = 256
			}
		}
	}
}

// DefaultConfig returns a bus on GPIO4/GPIO5 with a 24C02-style memory at
// 0x50 and an ADXL345 at 0x53
func DefaultConfig() *BusConfig {
	return &BusConfig{
		Name:      "soft0",
		SDAPin:    4,
		SCLPin:    5,
		TimerFreq: core.TimerFreq,
		BusRate:   "100kHz",
		TimeoutMS: 1000,
		Devices: []DeviceConfig{
			{Address: 0x50, Kind: KindMemory, Size: 256},
			{Address: 0x53, Kind: KindADXL345, Size: 64, Preset: []int{0xe5}},
		},
	}
}

// Validate checks pins, timing and device descriptions
func (c *BusConfig) Validate() error {
	if c.Name == "" {
		return errors.New("bus name is empty")
	}
	if c.SDAPin == c.SCLPin {
		return fmt.Errorf("sda_pin and scl_pin are both %d", c.SDAPin)
	}
	if c.TimerFreq == 0 {
		return errors.New("timer_freq is zero")
	}
	if _, err := c.Interval(); err != nil {
		return err
	}

	seen := make(map[uint8]bool)
	for _, dev := range c.Devices {
		if dev.Address < softi2c.ScanFirst || dev.Address > softi2c.ScanLast {
			return fmt.Errorf("device address %#02x is reserved or out of range", dev.Address)
		}
		if seen[dev.Address] {
			return fmt.Errorf("device address %#02x used twice", dev.Address)
		}
		seen[dev.Address] = true

		switch dev.Kind {
		case KindMemory, KindADXL345:
		default:
			return fmt.Errorf("device %#02x: unknown kind %q", dev.Address, dev.Kind)
		}
		if dev.Size <= 0 || dev.Size > 65536 {
			return fmt.Errorf("device %#02x: size %d out of range", dev.Address, dev.Size)
		}
		if dev.NackAfter < 0 {
			return fmt.Errorf("device %#02x: negative nack_after", dev.Address)
		}
		if dev.PresetOffset < 0 || dev.PresetOffset+len(dev.Preset) > dev.Size {
			return fmt.Errorf("device %#02x: preset does not fit in %d bytes", dev.Address, dev.Size)
		}
		for _, v := range dev.Preset {
			if v < 0 || v > 0xff {
				return fmt.Errorf("device %#02x: preset value %d is not a byte", dev.Address, v)
			}
		}
	}
	return nil
}

// Interval returns the step timer interval in ticks: TimerInterval when
// set, otherwise derived from BusRate
func (c *BusConfig) Interval() (uint32, error) {
	if c.TimerInterval != 0 {
		return c.TimerInterval, nil
	}
	var rate physic.Frequency
	if err := rate.Set(c.BusRate); err != nil {
		return 0, fmt.Errorf("bus_rate %q: %w", c.BusRate, err)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("bus_rate %q must be positive", c.BusRate)
	}
	return softi2c.StepInterval(rate, physic.Frequency(c.TimerFreq)*physic.Hertz), nil
}

// Timeout returns the per-transaction timeout
func (c *BusConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// TickDuration returns the wall-clock length of one timer tick
func (c *BusConfig) TickDuration() time.Duration {
	if c.TimerFreq == 0 {
		return time.Microsecond
	}
	return time.Second / time.Duration(c.TimerFreq)
}
