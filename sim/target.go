package sim

// target states
const (
	tIdle = iota
	tAddr
	tRecv
	tSend
	tIgnore
)

// Target is a 7-bit addressed register/memory device, in the style of a
// 24C02 EEPROM: the first byte written after the address sets the internal
// pointer, further written bytes are stored at the pointer, reads return
// bytes from the pointer. The pointer wraps at the end of Mem.
//
// The target decodes the bus on its own: it samples SDA on rising SCL,
// drives SDA only while SCL is low (after falling edges) and ignores
// traffic for other addresses.
type Target struct {
	Addr uint8
	Mem  []byte

	// NackAfter makes the target refuse the n-th payload byte of a write
	// (1-based). Zero acknowledges everything.
	NackAfter int

	// Written collects the payload bytes of every write transaction,
	// pointer byte included
	Written [][]byte

	state    int
	ptr      int
	ptrSet   bool
	read     bool
	bits     int
	shift    byte
	ackPhase bool // Holding SDA low for our acknowledge
	sent     int  // Bits of tx clocked out
	tx       byte
	mAck     bool // Master acknowledged our last byte
	pull     bool
	received int // Payload bytes in the current write
}

// NewTarget creates a target with size bytes of zeroed memory
func NewTarget(addr uint8, size int) *Target {
	if size <= 0 {
		size = 256
	}
	return &Target{Addr: addr & 0x7f, Mem: make([]byte, size)}
}

// Preload copies data into memory at offset
func (t *Target) Preload(offset int, data []byte) {
	for i, b := range data {
		t.Mem[(offset+i)%len(t.Mem)] = b
	}
}

// Pointer returns the current register pointer
func (t *Target) Pointer() int {
	return t.ptr
}

// Pulls implements Device
func (t *Target) Pulls(line Line) bool {
	return line == SDA && t.pull
}

// Edge implements Device
func (t *Target) Edge(line Line, sda, scl bool) {
	if line == SDA {
		if !scl {
			return
		}
		if !sda {
			t.start()
		} else {
			t.stop()
		}
		return
	}
	if scl {
		t.clockHigh(sda)
	} else {
		t.clockLow()
	}
}

func (t *Target) start() {
	t.state = tAddr
	t.bits, t.shift = 0, 0
	t.ackPhase = false
	t.pull = false
}

func (t *Target) stop() {
	t.state = tIdle
	t.pull = false
	t.ackPhase = false
}

func (t *Target) clockHigh(sda bool) {
	switch t.state {
	case tAddr, tRecv:
		if t.ackPhase {
			return
		}
		t.shift <<= 1
		if sda {
			t.shift |= 1
		}
		t.bits++
	case tSend:
		if t.sent == 8 {
			t.mAck = !sda
		}
	}
}

func (t *Target) clockLow() {
	switch t.state {
	case tAddr, tRecv:
		if t.ackPhase {
			t.ackPhase = false
			t.pull = false
			t.bits, t.shift = 0, 0
			if t.state == tAddr {
				if t.read {
					t.state = tSend
					t.load()
				} else {
					t.state = tRecv
					t.ptrSet = false
					t.received = 0
					t.Written = append(t.Written, nil)
				}
			}
			return
		}
		if t.bits < 8 {
			return
		}
		if t.state == tAddr {
			t.address(t.shift)
			return
		}
		t.receive(t.shift)
	case tSend:
		if t.sent < 8 {
			t.sent++
			if t.sent < 8 {
				t.drive(t.tx&(0x80>>uint(t.sent)) != 0)
			} else {
				t.pull = false
			}
			return
		}
		if t.mAck {
			t.load()
			return
		}
		t.state = tIgnore
		t.pull = false
	}
}

func (t *Target) address(b byte) {
	if b>>1 != t.Addr {
		t.state = tIgnore
		t.pull = false
		return
	}
	t.read = b&1 == 1
	t.ack()
}

func (t *Target) receive(b byte) {
	t.received++
	if t.NackAfter > 0 && t.received == t.NackAfter {
		t.state = tIgnore
		t.pull = false
		return
	}
	last := len(t.Written) - 1
	t.Written[last] = append(t.Written[last], b)
	if !t.ptrSet {
		t.ptr = int(b) % len(t.Mem)
		t.ptrSet = true
	} else {
		t.Mem[t.ptr] = b
		t.ptr = (t.ptr + 1) % len(t.Mem)
	}
	t.ack()
}

func (t *Target) ack() {
	t.ackPhase = true
	t.pull = true
}

// load fetches the next byte to send and drives its MSB
func (t *Target) load() {
	t.tx = t.Mem[t.ptr]
	t.ptr = (t.ptr + 1) % len(t.Mem)
	t.sent = 0
	t.drive(t.tx&0x80 != 0)
}

func (t *Target) drive(bit bool) {
	t.pull = !bit
}
