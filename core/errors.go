package core

import "errors"

var (
	// ErrInvalidParameter marks a violated precondition; it is raised with panic.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrFrequencyOutOfRange is returned when a frequency cannot be expressed
	// with the timer registers and table capacity of the hardware.
	ErrFrequencyOutOfRange = errors.New("frequency out of range")

	// ErrTableOverflow is returned when a table length exceeds TableCapacity.
	ErrTableOverflow = errors.New("table length exceeds capacity")

	ErrUnknownShape = errors.New("unknown wave shape")
	ErrNoProgram    = errors.New("no wave configured")
	ErrNoStore      = errors.New("no wave store configured")
	ErrStore        = errors.New("wave store failure")
)
