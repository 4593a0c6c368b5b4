//go:build rp2040

package main

import (
	"errors"
	"machine"
	"strings"
)

// carrierPeriod is the PWM period in nanoseconds (250kHz)
const carrierPeriod = 4000

// pwmPeripheral abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

type pwmOutput struct {
	pwm     pwmPeripheral
	channel uint8
	top     uint32
}

func newPWMOutput(pin machine.Pin) (pwmOutput, error) {
	// GPIO N maps to slice (N >> 1) & 0x7
	pwm := getPWMPeripheral(uint8((uint32(pin) >> 1) & 0x7))
	if err := pwm.Configure(machine.PWMConfig{Period: carrierPeriod}); err != nil {
		return pwmOutput{}, err
	}
	ch, err := pwm.Channel(pin)
	if err != nil {
		return pwmOutput{}, err
	}
	return pwmOutput{pwm: pwm, channel: ch, top: pwm.Top()}, nil
}

func (o pwmOutput) set(level uint8) {
	o.pwm.Set(o.channel, uint32(level)*o.top/255)
}

// CoilOutput drives the coil: PWM level for sampled waves, a plain GPIO for
// square waves and an optional inverted PWM for bidirectional drive.
type CoilOutput struct {
	level      pwmOutput
	complement pwmOutput
	hasComp    bool
	square     machine.Pin
	high       bool
}

// NewCoilOutput configures the pins by name ("gpio16")
func NewCoilOutput(pwmPin, complementPin, squarePin string) (*CoilOutput, error) {
	p, err := parsePin(pwmPin)
	if err != nil {
		return nil, err
	}
	sq, err := parsePin(squarePin)
	if err != nil {
		return nil, err
	}

	o := &CoilOutput{square: sq}
	if o.level, err = newPWMOutput(p); err != nil {
		return nil, err
	}
	if complementPin != "" {
		c, err := parsePin(complementPin)
		if err != nil {
			return nil, err
		}
		if o.complement, err = newPWMOutput(c); err != nil {
			return nil, err
		}
		o.hasComp = true
	}

	sq.Configure(machine.PinConfig{Mode: machine.PinOutput})
	sq.Low()
	return o, nil
}

// SetPWMLevel implements core.OutputDriver
func (o *CoilOutput) SetPWMLevel(level uint8) {
	o.level.set(level)
}

// TogglePin implements core.OutputDriver
func (o *CoilOutput) TogglePin() {
	o.high = !o.high
	o.square.Set(o.high)
}

// SetComplementLevel implements core.ComplementDriver
func (o *CoilOutput) SetComplementLevel(level uint8) {
	if o.hasComp {
		o.complement.set(level)
	}
}

// parsePin converts "gpioN" to a machine.Pin
func parsePin(name string) (machine.Pin, error) {
	digits, ok := strings.CutPrefix(name, "gpio")
	if !ok || digits == "" || len(digits) > 2 {
		return 0, errors.New("bad pin name: " + name)
	}
	n := 0
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, errors.New("bad pin name: " + name)
		}
		n = n*10 + int(c-'0')
	}
	if n > 29 {
		return 0, errors.New("no such pin: " + name)
	}
	return machine.Pin(n), nil
}

// getPWMPeripheral returns the PWM peripheral for a slice
func getPWMPeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
