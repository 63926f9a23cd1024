package softi2c

import (
	"context"
	"errors"
	"sync"
	"time"

	"tinygo.org/x/drivers"
)

// errStopped marks a transaction aborted by the connection itself
var errStopped = errors.New("softi2c: transaction stopped")

// serializer is implemented by timers whose timeouts run on another
// goroutine (core.HostTimer). Engine calls from the caller's side go
// through Do so they never interleave with a step.
type serializer interface {
	Do(fn func())
}

// Conn turns an Engine into a blocking bus with the drivers.I2C shape
// (Tx), so device drivers can sit on top of the bit-banged master.
//
// NewConn takes over the engine's Events.
type Conn struct {
	// Poll is called while waiting for completion. Targets without a timer
	// interrupt pump their timer list from it.
	Poll func()

	// Timeout bounds a single Tx; zero waits forever
	Timeout time.Duration

	name string
	eng  *Engine
	ser  serializer
	mu     sync.Mutex
	done   chan error
	closed bool
}

var _ drivers.I2C = (*Conn)(nil)

// NewConn wraps eng. The timer is inspected for a Do method to serialize
// calls with timer callbacks.
func NewConn(name string, eng *Engine, timer any) *Conn {
	c := &Conn{
		name: name,
		eng:  eng,
		done: make(chan error, 1),
	}
	if s, ok := timer.(serializer); ok {
		c.ser = s
	}
	eng.Events = Events{
		DataWritten:   func() { c.signal(nil) },
		DataAvailable: func() { c.signal(nil) },
		Error:         c.signal,
		WriteStopped:  func() { c.signal(errStopped) },
		ReadStopped:   func() { c.signal(errStopped) },
	}
	return c
}

// Engine returns the wrapped engine
func (c *Conn) Engine() *Engine {
	return c.eng
}

func (c *Conn) String() string {
	return c.name
}

// Tx writes w and then reads r from the 7-bit address addr. When both are
// given the read follows a restart without an intermediate stop. With both
// empty the device is only addressed, which probes for its presence.
func (c *Conn) Tx(addr uint16, w, r []byte) error {
	return c.TxContext(context.Background(), addr, w, r)
}

// TxContext is Tx with cancellation
func (c *Conn) TxContext(ctx context.Context, addr uint16, w, r []byte) error {
	if addr > 0x7f {
		return ErrInvalidAddress
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	c.do(func() { _ = c.eng.SetAddress(uint8(addr)) })

	switch {
	case len(r) == 0:
		return c.run(ctx, FrameFirstAndLast, true, w)
	case len(w) == 0:
		return c.run(ctx, FrameFirstAndLast, false, r)
	}
	if err := c.run(ctx, FrameFirst, true, w); err != nil {
		return err
	}
	return c.run(ctx, FrameLast, false, r)
}

// ReadRegister writes the register number and reads len(buf) bytes after
// a restart
func (c *Conn) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return c.Tx(uint16(addr), []byte{r}, buf)
}

// WriteRegister writes the register number followed by buf in one
// transaction
func (c *Conn) WriteRegister(addr uint8, r uint8, buf []byte) error {
	w := make([]byte, 0, len(buf)+1)
	w = append(w, r)
	w = append(w, buf...)
	return c.Tx(uint16(addr), w, nil)
}

// Close releases both lines. Later transactions fail with ErrClosed.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.do(c.eng.Deinit)
	return nil
}

func (c *Conn) run(ctx context.Context, frame Frame, write bool, buf []byte) error {
	select {
	case <-c.done:
	default:
	}

	var err error
	c.do(func() {
		c.eng.SetFrame(frame)
		if write {
			err = c.eng.Write(buf)
		} else {
			err = c.eng.Read(buf)
		}
	})
	if err != nil {
		return err
	}
	return c.wait(ctx, write)
}

func (c *Conn) wait(ctx context.Context, write bool) error {
	for {
		select {
		case err := <-c.done:
			return err
		case <-ctx.Done():
			return c.cancel(write)
		default:
		}
		if c.Poll != nil {
			c.Poll()
			continue
		}
		select {
		case err := <-c.done:
			return err
		case <-ctx.Done():
			return c.cancel(write)
		}
	}
}

// cancel aborts the transaction in flight. A completion that raced the
// deadline wins over the timeout.
func (c *Conn) cancel(write bool) error {
	c.do(func() {
		if write {
			_ = c.eng.StopWrite()
		} else {
			_ = c.eng.StopRead()
		}
	})
	select {
	case err := <-c.done:
		if err != errStopped {
			return err
		}
	default:
	}
	return ErrTimeout
}

func (c *Conn) signal(err error) {
	select {
	case c.done <- err:
	default:
	}
}

func (c *Conn) do(fn func()) {
	if c.ser != nil {
		c.ser.Do(fn)
		return
	}
	fn()
}
