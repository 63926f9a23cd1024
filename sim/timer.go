package sim

// Timer is a manually fired core.OneShotTimer. Tests and simulations step
// it explicitly, so every fire is deterministic.
type Timer struct {
	interval uint32
	timeout  func()
	armed    bool
	fires    int
	starts   int
}

// NewTimer creates a disarmed timer
func NewTimer() *Timer {
	return &Timer{interval: 1}
}

// SetInterval records the interval; the manual timer does not wait on it
func (t *Timer) SetInterval(ticks uint32) {
	t.interval = ticks
}

// Interval returns the recorded interval
func (t *Timer) Interval() uint32 {
	return t.interval
}

// SetTimeout binds the fire callback
func (t *Timer) SetTimeout(fn func()) {
	t.timeout = fn
}

// Start arms the timer
func (t *Timer) Start() {
	t.armed = true
	t.starts++
}

// Stop disarms the timer
func (t *Timer) Stop() {
	t.armed = false
}

// Armed reports whether a fire is pending
func (t *Timer) Armed() bool {
	return t.armed
}

// Fire runs the timeout if armed and reports whether it did
func (t *Timer) Fire() bool {
	if !t.armed {
		return false
	}
	t.armed = false
	t.fires++
	if t.timeout != nil {
		t.timeout()
	}
	return true
}

// Run fires until the timer stays disarmed or limit fires happened.
// It returns the number of fires.
func (t *Timer) Run(limit int) int {
	n := 0
	for n < limit && t.Fire() {
		n++
	}
	return n
}

// Fires returns the total number of fires
func (t *Timer) Fires() int {
	return t.fires
}

// Starts returns how many times the timer was armed
func (t *Timer) Starts() int {
	return t.starts
}
