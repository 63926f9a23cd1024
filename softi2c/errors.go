package softi2c

import (
	"errors"

	"github.com/semf-lib/semf-lib-sub000/core"
)

var (
	// ErrNack signals that the addressed device did not acknowledge
	ErrNack = errors.New("softi2c: NACK received")

	// ErrNotWriting rejects StopWrite when no write is in flight
	ErrNotWriting = errors.New("softi2c: not writing")

	// ErrNotReading rejects StopRead when no read is in flight
	ErrNotReading = errors.New("softi2c: not reading")

	// ErrBusy rejects Write/Read while another transaction is in flight
	ErrBusy = errors.New("softi2c: transaction in progress")

	// ErrInvalidAddress rejects addresses outside the 7-bit range
	ErrInvalidAddress = errors.New("softi2c: invalid 7-bit address")

	// ErrInvalidLength rejects a Read that addresses the device without a
	// buffer. Once it has acknowledged the address the device drives the
	// first data bit, which would block the stop condition.
	ErrInvalidLength = errors.New("softi2c: read needs at least one byte")

	// ErrClosed rejects transactions on a closed connection
	ErrClosed = errors.New("softi2c: bus closed")

	// ErrTimeout is returned by blocking adapters when the completion
	// signal did not arrive in time
	ErrTimeout = errors.New("softi2c: transaction timed out")
)

// NackError describes an acknowledge failure. It matches ErrNack with
// errors.Is.
type NackError struct {
	Addr uint8 // 7-bit device address

	// AddressPhase is true when the address byte itself was refused
	AddressPhase bool

	// Written counts payload bytes clocked onto the bus, the refused one
	// included
	Written int
}

func (e *NackError) Error() string {
	if e.AddressPhase {
		return "softi2c: NACK on address " + core.Hex8(e.Addr)
	}
	return "softi2c: NACK from " + core.Hex8(e.Addr) + " after " + core.Itoa(e.Written) + " bytes"
}

func (e *NackError) Unwrap() error {
	return ErrNack
}
