//go:build !tinygo

package core

import (
	"sync"
	"time"
)

// HostTimer is a OneShotTimer on top of time.AfterFunc, for buses driven
// from a Linux host (periph GPIO, simulators).
//
// Timeouts run serialized under the timer's lock. Start, Stop and
// SetInterval must be called either from the timeout callback or inside Do,
// which is how owners of the timer access shared state safely.
type HostTimer struct {
	mu       sync.Mutex
	tick     time.Duration
	interval uint32
	timeout  func()
	t        *time.Timer
	gen      uint64 // Bumped on every Start/Stop; stale fires compare against it
	armed    bool
}

// NewHostTimer creates a timer whose interval unit is one tick
func NewHostTimer(tick time.Duration) *HostTimer {
	if tick <= 0 {
		tick = time.Microsecond
	}
	return &HostTimer{tick: tick, interval: 1}
}

// SetInterval sets the delay in ticks
func (h *HostTimer) SetInterval(ticks uint32) {
	h.interval = ticks
}

// SetTimeout binds the callback run when the timer fires
func (h *HostTimer) SetTimeout(fn func()) {
	h.timeout = fn
}

// Start arms the timer
func (h *HostTimer) Start() {
	if h.t != nil {
		h.t.Stop()
	}
	h.gen++
	h.armed = true
	gen := h.gen
	h.t = time.AfterFunc(time.Duration(h.interval)*h.tick, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if gen != h.gen || !h.armed {
			return
		}
		h.armed = false
		if h.timeout != nil {
			h.timeout()
		}
	})
}

// Stop disarms the timer
func (h *HostTimer) Stop() {
	h.gen++
	h.armed = false
	if h.t != nil {
		h.t.Stop()
		h.t = nil
	}
}

// Do runs fn serialized with timeouts
func (h *HostTimer) Do(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
}
