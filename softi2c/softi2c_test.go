package softi2c

import (
	"bytes"
	"errors"
	"testing"

	"github.com/semf-lib/semf-lib-sub000/core"
	"github.com/semf-lib/semf-lib-sub000/sim"
)

type harness struct {
	bus   *sim.Bus
	timer *sim.Timer
	eng   *Engine
	dev   *sim.Target

	written   int
	available int
	wStopped  int
	rStopped  int
	errs      []error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		bus:   sim.NewBus(),
		timer: sim.NewTimer(),
		dev:   sim.NewTarget(0x50, 256),
	}
	h.bus.Attach(h.dev)
	h.eng = New(h.bus.SDA(), h.bus.SCL(), h.timer)
	h.eng.Events = Events{
		DataWritten:   func() { h.written++ },
		DataAvailable: func() { h.available++ },
		Error:         func(err error) { h.errs = append(h.errs, err) },
		WriteStopped:  func() { h.wStopped++ },
		ReadStopped:   func() { h.rStopped++ },
	}
	h.eng.Init()
	if err := h.eng.SetAddress(0x50); err != nil {
		t.Fatalf("SetAddress: %v", err)
	}
	h.bus.ClearTrace()
	return h
}

// run fires the timer until the engine stops re-arming it
func (h *harness) run(t *testing.T) int {
	t.Helper()
	n := h.timer.Run(10000)
	if h.timer.Armed() {
		t.Fatalf("engine still running after %d steps", n)
	}
	return n
}

// pinOp is a Transition without the resulting level
type pinOp struct {
	line sim.Line
	op   sim.Op
	dir  core.PinDirection
}

func pinOps(trace []sim.Transition) []pinOp {
	var out []pinOp
	for _, tr := range trace {
		if tr.Op == sim.OpSample {
			continue
		}
		out = append(out, pinOp{tr.Line, tr.Op, tr.Dir})
	}
	return out
}

const od = core.PinOutputOpenDrain

func expectStart() []pinOp {
	return []pinOp{{sim.SDA, sim.OpReset, od}, {sim.SCL, sim.OpReset, od}}
}

func expectStop() []pinOp {
	return []pinOp{{sim.SDA, sim.OpReset, od}, {sim.SCL, sim.OpSet, od}, {sim.SDA, sim.OpSet, od}}
}

func expectByte(v byte) []pinOp {
	var out []pinOp
	for i := 7; i >= 0; i-- {
		op := sim.OpReset
		if v&(1<<uint(i)) != 0 {
			op = sim.OpSet
		}
		out = append(out,
			pinOp{sim.SDA, op, od},
			pinOp{sim.SCL, sim.OpSet, od},
			pinOp{sim.SCL, sim.OpReset, od})
	}
	return append(out,
		pinOp{sim.SDA, sim.OpDirection, core.PinInput},
		pinOp{sim.SCL, sim.OpSet, od},
		pinOp{sim.SCL, sim.OpReset, od},
		pinOp{sim.SDA, sim.OpDirection, od})
}

func TestWriteFirstAndLast(t *testing.T) {
	h := newHarness(t)

	if err := h.eng.Write([]byte{0xaa, 0x55}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !h.eng.Busy() {
		t.Errorf("engine should be busy after Write")
	}
	if h.bus.Mutations() != 0 {
		t.Errorf("Write touched pins before the first timer fire")
	}

	steps := h.run(t)

	// Start + (address + 2 bytes) * 28 + stop
	if steps != 89 {
		t.Errorf("steps = %d, want 89", steps)
	}
	if h.bus.Mutations() != steps {
		t.Errorf("mutations = %d, want one per step (%d)", h.bus.Mutations(), steps)
	}
	if got := h.bus.Analyzer().String(); got != "S A0+ AA+ 55+ P" {
		t.Errorf("bus = %q", got)
	}
	if h.written != 1 || h.available != 0 || len(h.errs) != 0 {
		t.Errorf("events: written=%d available=%d errs=%v", h.written, h.available, h.errs)
	}
	if h.eng.Busy() || !h.bus.Idle() {
		t.Errorf("busy=%v idle=%v after completion", h.eng.Busy(), h.bus.Idle())
	}
	if len(h.dev.Written) != 1 || !bytes.Equal(h.dev.Written[0], []byte{0xaa, 0x55}) {
		t.Errorf("device saw %x", h.dev.Written)
	}
}

func TestWriteTransitionSequence(t *testing.T) {
	h := newHarness(t)

	if err := h.eng.Write([]byte{0x3c}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	h.run(t)

	var want []pinOp
	want = append(want, expectStart()...)
	want = append(want, expectByte(0xa0)...)
	want = append(want, expectByte(0x3c)...)
	want = append(want, expectStop()...)

	got := pinOps(h.bus.Trace())
	if len(got) != len(want) {
		t.Fatalf("got %d pin operations, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("op %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadAfterHeldWrite(t *testing.T) {
	h := newHarness(t)
	h.dev.Preload(0x00, []byte{0x11, 0x22, 0x33})

	h.eng.SetFrame(FrameFirst)
	if err := h.eng.Write([]byte{0x00}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	h.run(t)
	if h.written != 1 {
		t.Fatalf("DataWritten not signalled")
	}
	if h.bus.Level(sim.SCL) {
		t.Errorf("SCL should stay low while the bus is held")
	}

	buf := make([]byte, 3)
	h.eng.SetFrame(FrameLast)
	if err := h.eng.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	steps := h.run(t)

	// Restart + start + address + 3 read bytes + stop
	if steps != 2+2+28+3*20+3 {
		t.Errorf("read steps = %d", steps)
	}
	if !bytes.Equal(buf, []byte{0x11, 0x22, 0x33}) {
		t.Errorf("read %x", buf)
	}
	a := h.bus.Analyzer()
	if got := a.String(); got != "S A0+ 00+ Sr A1+ 11+ 22+ 33- P" {
		t.Errorf("bus = %q", got)
	}
	if a.Count(sim.SymStart) != 1 || a.Count(sim.SymRestart) != 1 || a.Count(sim.SymStop) != 1 {
		t.Errorf("conditions: %q", a.String())
	}
	if h.available != 1 || len(h.errs) != 0 {
		t.Errorf("events: available=%d errs=%v", h.available, h.errs)
	}
}

func TestReadFirstAndLast(t *testing.T) {
	h := newHarness(t)
	h.dev.Preload(0, []byte{0xde, 0xad})

	buf := make([]byte, 2)
	if err := h.eng.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	h.run(t)

	if !bytes.Equal(buf, []byte{0xde, 0xad}) {
		t.Errorf("read %x", buf)
	}
	if got := h.bus.Analyzer().String(); got != "S A1+ DE+ AD- P" {
		t.Errorf("bus = %q", got)
	}
	if h.available != 1 || h.written != 0 {
		t.Errorf("events: available=%d written=%d", h.available, h.written)
	}
}

func TestAddressNack(t *testing.T) {
	for _, frame := range []Frame{FrameFirstAndLast, FrameFirst} {
		t.Run(frame.String(), func(t *testing.T) {
			h := newHarness(t)
			h.eng.SetAddress(0x42)
			h.eng.SetFrame(frame)

			if err := h.eng.Write([]byte{0x01, 0x02}); err != nil {
				t.Fatalf("Write: %v", err)
			}
			h.run(t)

			if got := h.bus.Analyzer().String(); got != "S 84- P" {
				t.Errorf("bus = %q", got)
			}
			if h.written != 0 || len(h.errs) != 1 {
				t.Fatalf("events: written=%d errs=%v", h.written, h.errs)
			}
			var nack *NackError
			if !errors.As(h.errs[0], &nack) {
				t.Fatalf("error %v is not a NackError", h.errs[0])
			}
			if !errors.Is(h.errs[0], ErrNack) {
				t.Errorf("error does not match ErrNack")
			}
			if !nack.AddressPhase || nack.Written != 0 || nack.Addr != 0x42 {
				t.Errorf("nack = %+v", *nack)
			}
			if !h.bus.Idle() || h.eng.Busy() {
				t.Errorf("bus not released after NACK")
			}
		})
	}
}

func TestNackMidWrite(t *testing.T) {
	h := newHarness(t)
	h.dev.NackAfter = 2

	if err := h.eng.Write([]byte{0x10, 0x20, 0x30}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	h.run(t)

	if got := h.bus.Analyzer().String(); got != "S A0+ 10+ 20- P" {
		t.Errorf("bus = %q", got)
	}
	if h.written != 0 || len(h.errs) != 1 {
		t.Fatalf("events: written=%d errs=%v", h.written, h.errs)
	}
	var nack *NackError
	if !errors.As(h.errs[0], &nack) || nack.AddressPhase || nack.Written != 2 {
		t.Errorf("error = %v", h.errs[0])
	}
}

func TestReadAddressNack(t *testing.T) {
	h := newHarness(t)
	h.eng.SetAddress(0x33)

	buf := make([]byte, 4)
	if err := h.eng.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	h.run(t)

	if got := h.bus.Analyzer().String(); got != "S 67- P" {
		t.Errorf("bus = %q", got)
	}
	if h.available != 0 || len(h.errs) != 1 || !errors.Is(h.errs[0], ErrNack) {
		t.Errorf("events: available=%d errs=%v", h.available, h.errs)
	}
}

func TestHeldBusNextFrames(t *testing.T) {
	h := newHarness(t)

	chunks := []struct {
		frame Frame
		data  []byte
	}{
		{FrameFirst, []byte{0x05}},
		{FrameNext, []byte{0xaa}},
		{FrameLast, []byte{0xbb}},
	}
	for _, c := range chunks {
		h.eng.SetFrame(c.frame)
		if err := h.eng.Write(c.data); err != nil {
			t.Fatalf("Write(%s): %v", c.frame, err)
		}
		h.run(t)
	}

	if got := h.bus.Analyzer().String(); got != "S A0+ 05+ AA+ BB+ P" {
		t.Errorf("bus = %q", got)
	}
	if h.written != 3 {
		t.Errorf("written = %d, want 3", h.written)
	}
	if h.dev.Mem[5] != 0xaa || h.dev.Mem[6] != 0xbb {
		t.Errorf("memory = %x", h.dev.Mem[4:8])
	}
}

func TestZeroLengthWriteProbe(t *testing.T) {
	h := newHarness(t)

	if err := h.eng.Write(nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	steps := h.run(t)

	if steps != 2+28+3 {
		t.Errorf("steps = %d", steps)
	}
	if got := h.bus.Analyzer().String(); got != "S A0+ P" {
		t.Errorf("bus = %q", got)
	}
	if h.written != 1 {
		t.Errorf("written = %d", h.written)
	}
}

func TestEmptyAddressedReadRejected(t *testing.T) {
	h := newHarness(t)

	if err := h.eng.Read(nil); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("Read(nil) = %v", err)
	}
	if h.eng.Busy() || h.timer.Armed() || len(h.bus.Trace()) != 0 {
		t.Fatalf("rejected read started: busy=%v trace=%v", h.eng.Busy(), h.bus.Trace())
	}

	h.eng.SetFrame(FrameFirst)
	if err := h.eng.Write([]byte{0x00}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	h.run(t)

	// A restart would address the device as well
	h.eng.SetFrame(FrameLast)
	if err := h.eng.Read([]byte{}); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("Read after held write = %v", err)
	}

	buf := make([]byte, 1)
	if err := h.eng.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	h.run(t)

	if got := h.bus.Analyzer().String(); got != "S A0+ 00+ Sr A1+ 00- P" {
		t.Errorf("bus = %q", got)
	}
	if !h.bus.Idle() {
		t.Errorf("bus not released")
	}
	if h.written != 1 || h.available != 1 || len(h.errs) != 0 {
		t.Errorf("events: written=%d available=%d errs=%v", h.written, h.available, h.errs)
	}
}

func TestStopWhenIdle(t *testing.T) {
	h := newHarness(t)

	if err := h.eng.StopWrite(); !errors.Is(err, ErrNotWriting) {
		t.Errorf("StopWrite = %v", err)
	}
	if err := h.eng.StopRead(); !errors.Is(err, ErrNotReading) {
		t.Errorf("StopRead = %v", err)
	}
	if len(h.bus.Trace()) != 0 {
		t.Errorf("rejected stop touched pins: %v", h.bus.Trace())
	}
	if len(h.errs) != 2 || h.errs[0] != ErrNotWriting || h.errs[1] != ErrNotReading {
		t.Errorf("error events = %v", h.errs)
	}
	if h.wStopped != 0 || h.rStopped != 0 {
		t.Errorf("stopped events fired")
	}
}

func TestStopReadWhileWriting(t *testing.T) {
	h := newHarness(t)

	h.eng.Write([]byte{0x01})
	h.timer.Fire()

	if err := h.eng.StopRead(); !errors.Is(err, ErrNotReading) {
		t.Errorf("StopRead = %v", err)
	}
	h.run(t)
	if h.written != 1 {
		t.Errorf("write did not complete after rejected StopRead")
	}
}

func TestStopWriteAborts(t *testing.T) {
	h := newHarness(t)

	h.eng.Write([]byte{0x01, 0x02, 0x03})
	for i := 0; i < 9; i++ {
		h.timer.Fire()
	}
	before := len(h.bus.Trace())

	if err := h.eng.StopWrite(); err != nil {
		t.Fatalf("StopWrite: %v", err)
	}
	if h.wStopped != 1 || h.written != 0 || len(h.errs) != 0 {
		t.Errorf("events: stopped=%d written=%d errs=%v", h.wStopped, h.written, h.errs)
	}
	if h.eng.Busy() || h.timer.Armed() {
		t.Errorf("engine busy=%v armed=%v after abort", h.eng.Busy(), h.timer.Armed())
	}
	if !h.bus.Idle() {
		t.Errorf("lines not released after abort")
	}
	if h.bus.Analyzer().Count(sim.SymByte) != 0 {
		t.Errorf("aborted byte completed: %q", h.bus.Analyzer().String())
	}

	in := core.PinInput
	want := []pinOp{
		{sim.SDA, sim.OpDirection, in},
		{sim.SCL, sim.OpDirection, in},
		{sim.SCL, sim.OpSet, in},
		{sim.SDA, sim.OpSet, in},
		{sim.SCL, sim.OpDirection, od},
		{sim.SDA, sim.OpDirection, od},
	}
	got := pinOps(h.bus.Trace()[before:])
	if len(got) != len(want) {
		t.Fatalf("abort did %d pin operations, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("op %d: got %+v, want %+v", i, got[i], want[i])
		}
	}

	// A stale fire does nothing
	h.eng.step()
	if len(h.bus.Trace()) != before+len(want) {
		t.Errorf("idle step touched pins")
	}

	// The engine is usable again
	h.bus.ClearTrace()
	h.eng.Write([]byte{0x07})
	h.run(t)
	if h.written != 1 {
		t.Errorf("write after abort did not complete")
	}
	if n := len(h.bus.Analyzer().Bytes()); n != 2 {
		t.Errorf("decoded %d bytes after abort, want 2", n)
	}
}

func TestStopReadAborts(t *testing.T) {
	h := newHarness(t)

	buf := make([]byte, 2)
	h.eng.Read(buf)
	for i := 0; i < 40; i++ {
		h.timer.Fire()
	}
	if err := h.eng.StopRead(); err != nil {
		t.Fatalf("StopRead: %v", err)
	}
	if h.rStopped != 1 || h.available != 0 {
		t.Errorf("events: stopped=%d available=%d", h.rStopped, h.available)
	}
	if h.eng.Busy() || h.timer.Armed() {
		t.Errorf("engine still running after abort")
	}
}

func TestBusy(t *testing.T) {
	h := newHarness(t)

	h.eng.Write([]byte{0x01})
	if err := h.eng.Write([]byte{0x02}); !errors.Is(err, ErrBusy) {
		t.Errorf("second Write = %v", err)
	}
	if err := h.eng.Read(make([]byte, 1)); !errors.Is(err, ErrBusy) {
		t.Errorf("Read while writing = %v", err)
	}
	h.run(t)
	if got := h.bus.Analyzer().String(); got != "S A0+ 01+ P" {
		t.Errorf("bus = %q", got)
	}
}

func TestSetAddress(t *testing.T) {
	h := newHarness(t)

	if err := h.eng.SetAddress(0x80); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("SetAddress(0x80) = %v", err)
	}
	if h.eng.Address() != 0x50 {
		t.Errorf("address changed to %#x", h.eng.Address())
	}
}

func TestSetFrequencyIsNoop(t *testing.T) {
	h := newHarness(t)
	h.timer.SetInterval(7)

	h.eng.SetFrequency(400000)
	if h.timer.Interval() != 7 {
		t.Errorf("interval changed to %d", h.timer.Interval())
	}
	if len(h.bus.Trace()) != 0 {
		t.Errorf("SetFrequency touched pins")
	}

	h.eng.Write([]byte{0x01})
	if steps := h.run(t); steps != 2+2*28+3 {
		t.Errorf("steps = %d", steps)
	}
}

func TestChainFromCallback(t *testing.T) {
	h := newHarness(t)
	h.dev.Preload(0x40, []byte{0x99})

	buf := make([]byte, 1)
	h.eng.Events.DataWritten = func() {
		h.written++
		h.eng.SetFrame(FrameLast)
		if err := h.eng.Read(buf); err != nil {
			t.Errorf("Read from callback: %v", err)
		}
	}
	h.eng.SetFrame(FrameFirst)
	h.eng.Write([]byte{0x40})
	h.run(t)

	if buf[0] != 0x99 || h.available != 1 {
		t.Errorf("buf=%x available=%d", buf, h.available)
	}
	if got := h.bus.Analyzer().String(); got != "S A0+ 40+ Sr A1+ 99- P" {
		t.Errorf("bus = %q", got)
	}
}

func TestEngineOnTimerList(t *testing.T) {
	core.ResetTimers()
	core.SetTime(0)
	defer core.ResetTimers()

	bus := sim.NewBus()
	dev := sim.NewTarget(0x50, 16)
	bus.Attach(dev)

	timer := core.NewOneShot(10)
	eng := New(bus.SDA(), bus.SCL(), timer)
	done := 0
	eng.Events.DataWritten = func() { done++ }
	eng.Init()
	eng.SetAddress(0x50)

	eng.Write([]byte{0x02, 0x77})
	for i := 0; i < 1000 && eng.Busy(); i++ {
		core.AdvanceTime(10)
	}

	if done != 1 {
		t.Fatalf("write did not complete")
	}
	if timer.Fired() != 89 {
		t.Errorf("fired = %d, want 89", timer.Fired())
	}
	if dev.Mem[2] != 0x77 {
		t.Errorf("mem[2] = %#x", dev.Mem[2])
	}
	if core.PendingTimers() != 0 {
		t.Errorf("timer left scheduled")
	}
}

func TestIntervalTicks(t *testing.T) {
	tests := []struct {
		rate, timer, want uint32
	}{
		{100000, 12000000, 40},
		{400000, 12000000, 10},
		{0, 12000000, 1},
		{10000000, 12000000, 1},
	}
	for _, tt := range tests {
		if got := IntervalTicks(tt.rate, tt.timer); got != tt.want {
			t.Errorf("IntervalTicks(%d, %d) = %d, want %d", tt.rate, tt.timer, got, tt.want)
		}
	}
}
