package core

// OutputDriver is the coil output the player writes to.
// Both methods run in interrupt context and must not block or allocate.
type OutputDriver interface {
	// SetPWMLevel loads the PWM compare register (0 to 255)
	SetPWMLevel(level uint8)

	// TogglePin inverts the square wave output pin
	TogglePin()
}

// ComplementDriver is implemented by outputs with a second, inverted channel
// used for bidirectional drive.
type ComplementDriver interface {
	SetComplementLevel(level uint8)
}

// TickDriver programs the compare-match timer that calls Player.Tick.
type TickDriver interface {
	// ConfigureTicks makes the timer fire every interval clock cycles
	ConfigureTicks(interval uint32) error
}

// Global singletons used by core code.
var (
	outputDriver OutputDriver
	tickDriver   TickDriver
)

// SetOutputDriver is called by target-specific code to register its driver.
func SetOutputDriver(d OutputDriver) {
	outputDriver = d
}

// SetTickDriver is called by target-specific code to register its driver.
func SetTickDriver(d TickDriver) {
	tickDriver = d
}

// MustOutput returns the configured driver or panics if missing.
func MustOutput() OutputDriver {
	if outputDriver == nil {
		panic("output driver not configured")
	}
	return outputDriver
}

// MustTick returns the configured driver or panics if missing.
func MustTick() TickDriver {
	if tickDriver == nil {
		panic("tick driver not configured")
	}
	return tickDriver
}
