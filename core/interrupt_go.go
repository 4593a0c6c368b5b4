//go:build !tinygo

package core

import "sync"

// State is a placeholder for interrupt state on regular Go
type State uintptr

// irqMask stands in for the global interrupt enable so a goroutine
// driving Tick cannot observe a half-published program.
var irqMask sync.Mutex

// disableInterrupts masks the emulated tick interrupt
func disableInterrupts() State {
	irqMask.Lock()
	return 0
}

// restoreInterrupts unmasks the emulated tick interrupt
func restoreInterrupts(state State) {
	irqMask.Unlock()
}

// enterISR serializes an emulated interrupt with the main context
func enterISR() {
	irqMask.Lock()
}

func exitISR() {
	irqMask.Unlock()
}
