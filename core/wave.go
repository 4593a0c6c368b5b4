package core

import (
	"fmt"
	"strings"
)

// Shape is the waveform played on the coil output.
// The values are the low two bits of the persisted mode byte.
type Shape uint8

const (
	ShapeSquare Shape = 0
	ShapeSine   Shape = 1
	ShapeSaw    Shape = 2
)

// Mode byte layout
const (
	ModeShapeMask     = 0b11
	ModeBidirectional = 0b100
)

func (s Shape) String() string {
	switch s {
	case ShapeSquare:
		return "square"
	case ShapeSine:
		return "sine"
	case ShapeSaw:
		return "saw"
	default:
		return "shape(" + itoa(int(s)) + ")"
	}
}

// Valid reports whether s is one of the supported shapes.
func (s Shape) Valid() bool {
	return s <= ShapeSaw
}

// ParseShape converts a shape name to a Shape.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "square", "sq":
		return ShapeSquare, nil
	case "sine", "sin":
		return ShapeSine, nil
	case "saw", "sawtooth":
		return ShapeSaw, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownShape, name)
}

// WaveConfig is the requested waveform.
type WaveConfig struct {
	Shape         Shape
	Frequency     float64
	Bidirectional bool // Drive the complementary output with the inverted level
}

// Mode packs the shape and flags into the persisted mode byte.
func (c WaveConfig) Mode() uint8 {
	m := uint8(c.Shape) & ModeShapeMask
	if c.Bidirectional {
		m |= ModeBidirectional
	}
	return m
}

// ConfigFromMode unpacks a mode byte and frequency.
func ConfigFromMode(mode uint8, freq float64) (WaveConfig, error) {
	shape := Shape(mode & ModeShapeMask)
	if !shape.Valid() {
		return WaveConfig{}, fmt.Errorf("%w: mode 0x%02x", ErrUnknownShape, mode)
	}
	return WaveConfig{
		Shape:         shape,
		Frequency:     freq,
		Bidirectional: mode&ModeBidirectional != 0,
	}, nil
}
