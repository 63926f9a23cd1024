package core

// OneShot is a OneShotTimer backed by the global timer list.
// It fires from TimerDispatch, so the platform main loop (or timer
// interrupt) must keep calling ProcessTimers.
type OneShot struct {
	timer    Timer
	interval uint32
	timeout  func()
	armed    bool
	fired    uint32
}

// NewOneShot creates a disarmed timer with the given interval in ticks
func NewOneShot(interval uint32) *OneShot {
	return &OneShot{interval: interval}
}

// SetInterval sets the delay between Start and the timeout
func (o *OneShot) SetInterval(ticks uint32) {
	o.interval = ticks
}

// Interval returns the configured delay in ticks
func (o *OneShot) Interval() uint32 {
	return o.interval
}

// SetTimeout binds the callback run when the timer fires
func (o *OneShot) SetTimeout(fn func()) {
	o.timeout = fn
}

// Start arms the timer one interval from now. A pending fire is replaced.
func (o *OneShot) Start() {
	if o.armed {
		RemoveTimer(&o.timer)
	}
	o.armed = true
	o.timer.WakeTime = GetTime() + o.interval
	o.timer.Handler = o.fire
	ScheduleTimer(&o.timer)
}

// Stop disarms the timer
func (o *OneShot) Stop() {
	if o.armed {
		RemoveTimer(&o.timer)
		o.armed = false
	}
}

// Armed reports whether a fire is pending
func (o *OneShot) Armed() bool {
	return o.armed
}

// Fired returns how many times the timeout ran
func (o *OneShot) Fired() uint32 {
	return o.fired
}

func (o *OneShot) fire(t *Timer) uint8 {
	o.armed = false
	o.fired++
	RecordTiming(EvtTimerFire, 0, t.WakeTime, o.interval, o.fired)
	if o.timeout != nil {
		o.timeout()
	}
	// Start re-inserts the timer itself when the callback re-arms
	return SF_DONE
}
