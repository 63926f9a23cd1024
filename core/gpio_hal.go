package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	// Reconfiguring a pin that is already in use must switch its mode
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInputPullUp configures a pin as a digital input with pull-up resistor
	ConfigureInputPullUp(pin GPIOPin) error

	// ConfigureInputPullDown configures a pin as a digital input with pull-down resistor
	ConfigureInputPullDown(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error

	// GetPin reads the current pin state
	GetPin(pin GPIOPin) (bool, error)

	// ReadPin reads the current pin state (alias for GetPin for convenience)
	ReadPin(pin GPIOPin) bool
}

// PinDirection selects how a DigitalPin drives its line
type PinDirection uint8

const (
	// PinOutputOpenDrain drives low, releases for high (external pull-up)
	PinOutputOpenDrain PinDirection = iota
	// PinInput releases the line and only samples it
	PinInput
	// PinOutputPushPull drives both levels
	PinOutputPushPull
)

func (d PinDirection) String() string {
	switch d {
	case PinOutputOpenDrain:
		return "open-drain"
	case PinInput:
		return "input"
	case PinOutputPushPull:
		return "push-pull"
	}
	return "direction(" + itoa(int(d)) + ")"
}

// DigitalPin is the single-pin capability consumed by bit-banged buses.
// Implementations are borrowed by their users: nothing beyond level and
// direction changes may be requested through it.
type DigitalPin interface {
	// Set drives the pin high (or releases it in open-drain mode)
	Set()
	// Reset drives the pin low
	Reset()
	// State samples the current line level
	State() bool
	// SetDirection switches between open-drain, input and push-pull
	SetDirection(dir PinDirection)
}

// Global singleton used by core code.
var gpioDriver GPIODriver

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}
