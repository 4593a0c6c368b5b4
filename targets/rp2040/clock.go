//go:build rp2040

package main

import (
	"device/rp"
	"errors"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"coildriver/core"
)

// RP2040 Timer peripheral memory map. ALARM0 belongs to the TinyGo runtime.
const (
	timerBase     = 0x40054000
	timerTIMERAWL = timerBase + 0x28 // Low word, no latching side effects
	timerALARM1   = timerBase + 0x14
	timerINTR     = timerBase + 0x34 // Raw interrupts, write 1 to clear
	timerINTE     = timerBase + 0x38 // Interrupt enable
	alarm1Mask    = 1 << 1
	minAlarmDelta = 2 // An alarm in the past would wait a full wrap
)

var (
	timerRawL     = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerAlarm1 = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM1)))
	timerIntr   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
)

// AlarmTicker drives core.Player.Tick from timer ALARM1.
// The 1MHz timer is the resolver's clock.
type AlarmTicker struct {
	player   *core.Player
	interval uint32
	next     uint32
}

var ticker AlarmTicker

// InitTicker installs the ALARM1 interrupt handler
func InitTicker() *AlarmTicker {
	irq := interrupt.New(rp.IRQ_TIMER_IRQ_1, func(interrupt.Interrupt) {
		ticker.fire()
	})
	irq.SetPriority(0x00)
	irq.Enable()
	return &ticker
}

// Attach sets the player ticked by the alarm
func (t *AlarmTicker) Attach(p *core.Player) {
	t.player = p
}

// ConfigureTicks implements core.TickDriver
func (t *AlarmTicker) ConfigureTicks(interval uint32) error {
	if interval < minAlarmDelta {
		return errors.New("tick interval below alarm resolution")
	}
	t.interval = interval
	t.next = timerRawL.Get() + interval
	timerAlarm1.Set(t.next)
	timerInte.SetBits(alarm1Mask)
	return nil
}

// Stop disarms the alarm
func (t *AlarmTicker) Stop() {
	timerInte.ClearBits(alarm1Mask)
	t.interval = 0
}

func (t *AlarmTicker) fire() {
	timerIntr.Set(alarm1Mask)
	if t.interval == 0 {
		return
	}

	// Schedule from the previous deadline so the period does not drift
	t.next += t.interval
	if int32(t.next-timerRawL.Get()) < minAlarmDelta {
		t.next = timerRawL.Get() + minAlarmDelta
	}
	timerAlarm1.Set(t.next)

	if t.player != nil {
		t.player.Tick()
	}
}
