package softi2c

import (
	"errors"

	"tinygo.org/x/drivers"
)

// Addresses outside this range are reserved by the I2C specification
const (
	ScanFirst = 0x08
	ScanLast  = 0x77
)

// Scan probes every non-reserved 7-bit address with an empty write and
// returns the ones that acknowledged. Errors other than a NACK abort the
// scan.
func Scan(bus drivers.I2C) ([]uint8, error) {
	var found []uint8
	for addr := uint16(ScanFirst); addr <= ScanLast; addr++ {
		err := bus.Tx(addr, nil, nil)
		switch {
		case err == nil:
			found = append(found, uint8(addr))
		case errors.Is(err, ErrNack):
		default:
			return found, err
		}
	}
	return found, nil
}
