package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/google/shlex"
	"tinygo.org/x/drivers/adxl345"

	"github.com/semf-lib/semf-lib-sub000/config"
	"github.com/semf-lib/semf-lib-sub000/core"
	"github.com/semf-lib/semf-lib-sub000/sim"
	"github.com/semf-lib/semf-lib-sub000/softi2c"
)

var errQuit = errors.New("quit")

// adxl345DeviceID is the fixed content of the DEVID register
const adxl345DeviceID = 0xe5

// session is one simulated bus with its devices and a blocking connection
type session struct {
	cfg     *config.BusConfig
	bus     *sim.Bus
	conn    *softi2c.Conn
	targets map[uint8]*sim.Target
	out     io.Writer
}

// newSession builds the bus described by cfg. With realtime the engine is
// clocked by a host timer in wall-clock time, otherwise the timer list is
// advanced by hand while waiting, which runs as fast as possible.
func newSession(cfg *config.BusConfig, realtime bool, out io.Writer) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	interval, err := cfg.Interval()
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:     cfg,
		bus:     sim.NewBus(),
		targets: make(map[uint8]*sim.Target),
		out:     out,
	}
	for _, dc := range cfg.Devices {
		t := sim.NewTarget(dc.Address, dc.Size)
		t.NackAfter = dc.NackAfter
		t.Preload(dc.PresetOffset, dc.PresetBytes())
		s.targets[dc.Address] = t
		s.bus.Attach(t)
	}

	var timer core.OneShotTimer
	if realtime {
		ht := core.NewHostTimer(cfg.TickDuration())
		ht.SetInterval(interval)
		timer = ht
	} else {
		core.ResetTimers()
		timer = core.NewOneShot(interval)
	}

	eng := softi2c.New(s.bus.SDA(), s.bus.SCL(), timer)
	s.conn = softi2c.NewConn(cfg.Name, eng, timer)
	s.conn.Timeout = cfg.Timeout()
	if !realtime {
		s.conn.Poll = func() { core.AdvanceTime(interval) }
	}

	drv := softi2c.NewDriver()
	drv.Attach(0, s.conn)
	core.SetI2CDriver(drv)
	if err := drv.ConfigureBus(0, 100000); err != nil {
		return nil, err
	}
	return s, nil
}

// exec runs one script line
func (s *session) exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse %q: %w", line, err)
	}
	if len(args) == 0 {
		return nil
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		s.printHelp()
	case "write", "w":
		return s.cmdWrite(args)
	case "read", "r":
		return s.cmdRead(args)
	case "wr":
		return s.cmdWriteRead(args)
	case "scan":
		return s.cmdScan()
	case "adxl":
		return s.cmdADXL(args)
	case "dump":
		return s.cmdDump(args)
	case "trace":
		fmt.Fprintln(s.out, s.bus.Analyzer().String())
		s.bus.ClearTrace()
	case "ring":
		core.DumpTimingRing()
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
	return nil
}

func (s *session) printHelp() {
	fmt.Fprintln(s.out, "\nAvailable commands:")
	fmt.Fprintln(s.out, "  write ADDR BYTE...       - Write bytes to a device")
	fmt.Fprintln(s.out, "  read ADDR N              - Read N bytes from a device")
	fmt.Fprintln(s.out, "  wr ADDR N BYTE...        - Write bytes, restart, read N bytes")
	fmt.Fprintln(s.out, "  scan                     - Probe addresses 0x08..0x77")
	fmt.Fprintln(s.out, "  adxl [ADDR]              - Configure an ADXL345 and read one sample")
	fmt.Fprintln(s.out, "  dump ADDR [OFFSET N]     - Show simulated device memory")
	fmt.Fprintln(s.out, "  trace                    - Show decoded bus activity and clear it")
	fmt.Fprintln(s.out, "  ring                     - Dump the timing ring to the debug writer")
	fmt.Fprintln(s.out, "  quit/exit/q              - Exit the program")
	fmt.Fprintln(s.out)
}

func (s *session) cmdWrite(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: write ADDR BYTE...")
	}
	addr, err := parseByte(args[0])
	if err != nil {
		return err
	}
	data, err := parseBytes(args[1:])
	if err != nil {
		return err
	}
	if err := core.MustI2C().Write(0, core.I2CAddress(addr), data); err != nil {
		return fmt.Errorf("write %#02x: %w", addr, err)
	}
	fmt.Fprintf(s.out, "wrote %d bytes to %#02x\n", len(data), addr)
	return nil
}

func (s *session) cmdRead(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: read ADDR N")
	}
	return s.readAfter(args[0], args[1], nil)
}

func (s *session) cmdWriteRead(args []string) error {
	if len(args) < 3 {
		return errors.New("usage: wr ADDR N BYTE...")
	}
	reg, err := parseBytes(args[2:])
	if err != nil {
		return err
	}
	return s.readAfter(args[0], args[1], reg)
}

func (s *session) readAfter(addrArg, nArg string, reg []byte) error {
	addr, err := parseByte(addrArg)
	if err != nil {
		return err
	}
	n, err := parseByte(nArg)
	if err != nil {
		return err
	}
	data, err := core.MustI2C().Read(0, core.I2CAddress(addr), reg, n)
	if err != nil {
		return fmt.Errorf("read %#02x: %w", addr, err)
	}
	fmt.Fprintf(s.out, "% x\n", data)
	return nil
}

func (s *session) cmdScan() error {
	found, err := softi2c.Scan(s.conn)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Fprintln(s.out, "no devices")
		return nil
	}
	for i, addr := range found {
		if i > 0 {
			fmt.Fprint(s.out, " ")
		}
		fmt.Fprintf(s.out, "%#02x", addr)
	}
	fmt.Fprintln(s.out)
	return nil
}

func (s *session) cmdADXL(args []string) error {
	addr := uint8(0x53)
	if len(args) > 0 {
		a, err := parseByte(args[0])
		if err != nil {
			return err
		}
		addr = a
	}

	// The driver drops bus errors, so check the device ID first
	id := make([]byte, 1)
	if err := s.conn.ReadRegister(addr, adxl345.REG_DEVID, id); err != nil {
		return fmt.Errorf("adxl %#02x: %w", addr, err)
	}
	if id[0] != adxl345DeviceID {
		return fmt.Errorf("adxl %#02x: device id %#02x, want %#02x", addr, id[0], adxl345DeviceID)
	}

	bus, err := core.MustI2C().GetBus(0)
	if err != nil {
		return err
	}
	sensor := adxl345.New(bus)
	sensor.Address = uint16(addr)
	sensor.Configure()
	x, y, z := sensor.ReadRawAcceleration()
	fmt.Fprintf(s.out, "x=%d y=%d z=%d\n", x, y, z)
	return nil
}

func (s *session) cmdDump(args []string) error {
	if len(args) != 1 && len(args) != 3 {
		return errors.New("usage: dump ADDR [OFFSET N]")
	}
	addr, err := parseByte(args[0])
	if err != nil {
		return err
	}
	t, ok := s.targets[addr]
	if !ok {
		return fmt.Errorf("no simulated device at %#02x (have %s)", addr, s.addresses())
	}
	off, n := 0, len(t.Mem)
	if len(args) == 3 {
		if off, err = strconv.Atoi(args[1]); err != nil {
			return err
		}
		if n, err = strconv.Atoi(args[2]); err != nil {
			return err
		}
	}
	if off < 0 || n < 0 || off+n > len(t.Mem) {
		return fmt.Errorf("range %d+%d outside %d bytes", off, n, len(t.Mem))
	}
	for row := off; row < off+n; row += 16 {
		end := row + 16
		if end > off+n {
			end = off + n
		}
		fmt.Fprintf(s.out, "%04x: % x\n", row, t.Mem[row:end])
	}
	return nil
}

func (s *session) addresses() string {
	var addrs []int
	for a := range s.targets {
		addrs = append(addrs, int(a))
	}
	sort.Ints(addrs)
	out := ""
	for i, a := range addrs {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%#02x", a)
	}
	return out
}

func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("bad byte %q: %w", s, err)
	}
	return uint8(v), nil
}

func parseBytes(args []string) ([]byte, error) {
	out := make([]byte, 0, len(args))
	for _, a := range args {
		b, err := parseByte(a)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
