package softi2c

import (
	"errors"
	"sync"

	"github.com/semf-lib/semf-lib-sub000/core"
	"tinygo.org/x/drivers"
)

// Driver implements core.I2CDriver on top of bit-banged buses, one Conn
// per bus ID.
type Driver struct {
	mu sync.Mutex

	buses map[core.I2CBusID]*Conn

	// Track configuration state per bus
	configured map[core.I2CBusID]bool
}

var _ core.I2CDriver = (*Driver)(nil)

// NewDriver constructs an empty driver
func NewDriver() *Driver {
	return &Driver{
		buses:      make(map[core.I2CBusID]*Conn),
		configured: make(map[core.I2CBusID]bool),
	}
}

// Attach registers conn as bus. The bus is unusable until ConfigureBus.
func (d *Driver) Attach(bus core.I2CBusID, conn *Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.buses[bus] = conn
	d.configured[bus] = false
}

// ConfigureBus initializes the engine of an attached bus. The frequency is
// forwarded to SetFrequency, which ignores it; the rate follows the timer.
func (d *Driver) ConfigureBus(bus core.I2CBusID, frequencyHz uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	conn, exists := d.buses[bus]
	if !exists {
		return errors.New("unsupported I2C bus ID")
	}
	if !d.configured[bus] {
		conn.do(conn.eng.Init)
		d.configured[bus] = true
	}
	conn.do(func() { conn.eng.SetFrequency(frequencyHz) })
	return nil
}

// Write transmits data to a device at the given address on the specified bus.
func (d *Driver) Write(bus core.I2CBusID, addr core.I2CAddress, data []byte) error {
	conn, err := d.conn(bus)
	if err != nil {
		return err
	}
	return conn.Tx(uint16(addr), data, nil)
}

// Read reads data from a device, optionally writing a register address first.
// If regData is non-empty, it's transmitted before the read (restart in between).
func (d *Driver) Read(bus core.I2CBusID, addr core.I2CAddress, regData []byte, readLen uint8) ([]byte, error) {
	conn, err := d.conn(bus)
	if err != nil {
		return nil, err
	}
	readBuf := make([]byte, readLen)
	if err := conn.Tx(uint16(addr), regData, readBuf); err != nil {
		return nil, err
	}
	return readBuf, nil
}

// GetBus returns the configured bus for TinyGo device drivers
func (d *Driver) GetBus(bus core.I2CBusID) (drivers.I2C, error) {
	conn, err := d.conn(bus)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (d *Driver) conn(bus core.I2CBusID) (*Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	conn, exists := d.buses[bus]
	if !exists || !d.configured[bus] {
		return nil, errors.New("I2C bus not configured")
	}
	return conn, nil
}
