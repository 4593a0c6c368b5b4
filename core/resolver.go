package core

import (
	"fmt"
	"math"
)

// MaxInterval is the largest value the 16-bit compare register can hold.
const MaxInterval = 65535

// Hardware describes the timer the waveform is played on.
type Hardware struct {
	ClockRate      uint32 // Timer input clock in Hz
	TablePrescaler uint32 // Clock cycles per table tick
	MinRepeat      uint8  // Smallest square wave repeat count
	TableCapacity  uint16 // Usable table entries, at most TableCapacity
}

// DefaultHardware matches a 16MHz AVR with a /256 table tick.
func DefaultHardware() Hardware {
	return Hardware{
		ClockRate:      16000000,
		TablePrescaler: 256,
		MinRepeat:      64,
		TableCapacity:  TableCapacity,
	}
}

// Validate checks the hardware description for values the resolver cannot use.
func (hw Hardware) Validate() error {
	if hw.ClockRate == 0 {
		return fmt.Errorf("%w: clock rate is zero", ErrInvalidParameter)
	}
	if hw.TablePrescaler == 0 {
		return fmt.Errorf("%w: table prescaler is zero", ErrInvalidParameter)
	}
	if hw.MinRepeat == 0 {
		return fmt.Errorf("%w: min repeat is zero", ErrInvalidParameter)
	}
	if hw.TableCapacity == 0 || hw.TableCapacity > TableCapacity {
		return fmt.Errorf("%w: %d entries", ErrTableOverflow, hw.TableCapacity)
	}
	return nil
}

// TableRate returns the number of table ticks per second.
func (hw Hardware) TableRate() float64 {
	return float64(hw.ClockRate) / float64(hw.TablePrescaler)
}

// SquareTiming holds the two-level divider for a square wave.
// The pin toggles every RepeatCount*Interval clock cycles.
type SquareTiming struct {
	RepeatCount uint8
	Interval    uint16
}

// HalfPeriod returns the clock cycles between two toggles.
func (st SquareTiming) HalfPeriod() uint32 {
	return uint32(st.RepeatCount) * uint32(st.Interval)
}

// TableParams holds the table length and the ticks each entry is held for.
type TableParams struct {
	Length uint16
	Scale  uint8
}

func checkFrequency(freq float64) error {
	if math.IsNaN(freq) || math.IsInf(freq, 0) || freq <= 0 {
		return fmt.Errorf("%w: %v Hz", ErrFrequencyOutOfRange, freq)
	}
	return nil
}

// ResolveSquare computes the repeat count and compare interval for a square
// wave. An exact factorization is preferred; otherwise the closest
// approximation is accepted.
func ResolveSquare(freq float64, hw Hardware) (SquareTiming, error) {
	if err := checkFrequency(freq); err != nil {
		return SquareTiming{}, err
	}

	// The pin toggles twice per period
	ticks := math.Round(float64(hw.ClockRate) / 2 / freq)
	if ticks < 1 || ticks > math.MaxUint32 {
		return SquareTiming{}, fmt.Errorf("%w: %v Hz needs %v ticks", ErrFrequencyOutOfRange, freq, ticks)
	}
	period := uint32(ticks)

	var repeat uint8
	var interval uint32
	if f, ok := Factorize(period, hw.MinRepeat); ok {
		repeat = f
		interval = period / uint32(f)
	} else {
		repeat, interval = ApproximateFactor(period, hw.MinRepeat)
	}

	if interval == 0 || interval > MaxInterval {
		return SquareTiming{}, fmt.Errorf("%w: %v Hz needs interval %d", ErrFrequencyOutOfRange, freq, interval)
	}

	return SquareTiming{RepeatCount: repeat, Interval: uint16(interval)}, nil
}

// ResolveTable computes the table length and playback scale for a
// synthesized wave. The scale is the smallest that keeps the period within
// the table capacity.
func ResolveTable(freq float64, hw Hardware) (TableParams, error) {
	if err := checkFrequency(freq); err != nil {
		return TableParams{}, err
	}

	capacity := float64(hw.TableCapacity)
	if hw.TableCapacity == 0 || hw.TableCapacity > TableCapacity {
		return TableParams{}, fmt.Errorf("%w: %d entries", ErrTableOverflow, hw.TableCapacity)
	}

	period := hw.TableRate() / freq
	if period < 1 {
		return TableParams{}, fmt.Errorf("%w: %v Hz is above the table rate", ErrFrequencyOutOfRange, freq)
	}

	scale := math.Ceil(period / capacity)
	if scale < 1 {
		scale = 1
	}
	if scale > MaxFactor {
		return TableParams{}, fmt.Errorf("%w: %v Hz needs scale %v", ErrFrequencyOutOfRange, freq, scale)
	}

	length := math.Round(period / scale)
	if length < 1 {
		length = 1
	}
	if length > capacity {
		length = capacity
	}

	return TableParams{Length: uint16(length), Scale: uint8(scale)}, nil
}
